// Package recorder writes the per-session time series and the cross-run
// summary table as CSV.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ja7ad/benchprof/pkg/system/util"
	"github.com/ja7ad/benchprof/pkg/types"
)

const (
	ColTimestamp      = "timestamp"
	ColCPU            = "cpu_usage"
	ColRAMUsage       = "ram_usage"
	ColRAMUsed        = "ram_used"
	ColSwapUsage      = "disk_swap_usage"
	ColSwapUsed       = "disk_swap_used"
	ColProgramRunning = "program_running"
)

// Header returns the time-series columns for the given core count:
// timestamp, cpu_usage, cpu_0..cpu_{n-1}, the four memory columns and
// program_running.
func Header(cores int) []string {
	h := make([]string, 0, 2+cores+4+1)
	h = append(h, ColTimestamp, ColCPU)
	for i := range cores {
		h = append(h, fmt.Sprintf("cpu_%d", i))
	}
	return append(h, ColRAMUsage, ColRAMUsed, ColSwapUsage, ColSwapUsed, ColProgramRunning)
}

// RunName is the run identifier and file stem: <prefix>_<target>_<YYYYMMDD_HHMMSS>.
func RunName(prefix, target string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", prefix, target, at.Format("20060102_150405"))
}

// TimeSeriesPath places a run's CSV inside dir.
func TimeSeriesPath(dir, runName string) string {
	return filepath.Join(dir, runName+".csv")
}

// Recorder owns one open time-series file.
type Recorder struct {
	path  string
	cores int
	f     *os.File
	w     *csv.Writer
}

// Create truncates (or creates) the file at path, creating parent
// directories as needed, and writes the header.
func Create(path string, cores int) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create: %w", err)
	}
	r := &Recorder{path: path, cores: cores, f: f, w: csv.NewWriter(f)}
	if err := r.write(Header(cores)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) Path() string { return r.path }

// Append writes one row and flushes it so an interrupted session keeps every
// completed tick.
func (r *Recorder) Append(s types.Sample) error {
	if r.f == nil {
		return ErrClosed
	}
	if len(s.PerCore) != r.cores {
		return fmt.Errorf("%w: got %d, header has %d", ErrColumns, len(s.PerCore), r.cores)
	}
	return r.write(row(s))
}

func row(s types.Sample) []string {
	rec := make([]string, 0, 2+len(s.PerCore)+4+1)
	rec = append(rec, util.FmtFloat(util.Round2(s.Elapsed)), util.FmtFloat(s.CPU))
	for _, c := range s.PerCore {
		rec = append(rec, util.FmtFloat(c))
	}
	return append(rec,
		util.FmtFloat(s.RAMPercent),
		util.FmtFloat(s.RAMUsed.GB()),
		util.FmtFloat(s.SwapPercent),
		util.FmtFloat(s.SwapUsed.GB()),
		strconv.FormatBool(s.TargetRunning),
	)
}

func (r *Recorder) write(rec []string) error {
	if err := r.w.Write(rec); err != nil {
		return fmt.Errorf("recorder: write %s: %w", r.path, err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("recorder: flush %s: %w", r.path, err)
	}
	return nil
}

// Close flushes and closes the file. Calls after the first are no-ops.
func (r *Recorder) Close() error {
	if r.f == nil {
		return nil
	}
	r.w.Flush()
	werr := r.w.Error()
	cerr := r.f.Close()
	r.f = nil
	if werr != nil {
		return fmt.Errorf("recorder: flush %s: %w", r.path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("recorder: close %s: %w", r.path, cerr)
	}
	return nil
}
