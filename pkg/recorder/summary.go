package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ja7ad/benchprof/pkg/system/util"
	"github.com/ja7ad/benchprof/pkg/types"
)

// SummaryHeader is written once, when the summary table is first created.
var SummaryHeader = []string{"filename", "records", "time"}

// DefaultSummaryFile is the summary table name inside the results directory.
const DefaultSummaryFile = "execution_times.csv"

// AppendSummary appends one row to the shared summary table at path. The
// file is held under an exclusive advisory lock while the header check and
// the write happen, so concurrent sessions do not interleave rows or write the
// header twice.
func AppendSummary(path string, s types.SessionSummary) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("recorder: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open summary: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("recorder: close summary: %w", cerr)
		}
	}()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("recorder: lock summary: %w", err)
	}
	defer func() { _ = unlockFile(f) }()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("recorder: stat summary: %w", err)
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(SummaryHeader); err != nil {
			return fmt.Errorf("recorder: write summary header: %w", err)
		}
	}
	if err := w.Write([]string{s.RunID, s.Records, util.FmtFloat(s.ExecutionSeconds)}); err != nil {
		return fmt.Errorf("recorder: write summary: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("recorder: flush summary: %w", err)
	}
	return nil
}
