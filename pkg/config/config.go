// Package config loads profiler settings.
//
// Settings come from a single YAML file named by the --config flag or the
// BENCHPROF_CONFIG environment variable. Every field is optional except the
// target; missing fields keep the values of Default. Command-line flags set
// explicitly are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/benchprof/pkg/metrics"
	"github.com/ja7ad/benchprof/pkg/recorder"
	"github.com/ja7ad/benchprof/pkg/rendezvous"
	"github.com/ja7ad/benchprof/pkg/system/proc"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "BENCHPROF_CONFIG"

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// Target is matched as a substring of the benchmark script name.
	Target string `yaml:"target"`

	// ResultsDir receives the time-series files and, by default, the summary table.
	// Default: results
	ResultsDir string `yaml:"results_dir"`

	// CSVPrefix starts every time-series file name.
	// Default: system_stats
	CSVPrefix string `yaml:"csv_prefix"`

	// SummaryFile is the shared cross-run table. Relative paths are resolved
	// against ResultsDir.
	// Default: execution_times.csv
	SummaryFile string `yaml:"summary_file"`

	Rendezvous RendezvousConfig `yaml:"rendezvous"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Process    ProcessConfig    `yaml:"process"`
	Log        LogConfig        `yaml:"log"`
}

// RendezvousConfig configures the start handshake socket.
type RendezvousConfig struct {
	// Default: 127.0.0.1
	Host string `yaml:"host"`

	// Default: 8888
	Port int `yaml:"port"`

	// RetryDelay is the wait between bind attempts while the port is busy.
	// Default: 1s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Timeout bounds the wait for the workload's start signal.
	// Default: 0 (wait forever)
	Timeout time.Duration `yaml:"timeout"`
}

// SamplerConfig configures metric collection.
type SamplerConfig struct {
	// CPUWindow is how long each CPU reading blocks.
	// Default: 100ms
	CPUWindow time.Duration `yaml:"cpu_window"`

	// Interval is an extra pause between ticks.
	// Default: 0 (ticks run back to back)
	Interval time.Duration `yaml:"interval"`
}

// ProcessConfig configures target detection.
type ProcessConfig struct {
	// Backend selects the process table: "procfs" or "psutil".
	// Default: platform default (procfs on Linux)
	Backend string `yaml:"backend"`

	// Runtime must appear in the first argument of the target process.
	// Default: python
	Runtime string `yaml:"runtime"`
}

// LogConfig configures the process-wide logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ResultsDir:  "results",
		CSVPrefix:   "system_stats",
		SummaryFile: recorder.DefaultSummaryFile,
		Rendezvous: RendezvousConfig{
			Host:       rendezvous.DefaultHost,
			Port:       rendezvous.DefaultPort,
			RetryDelay: rendezvous.DefaultRetryDelay,
		},
		Sampler: SamplerConfig{CPUWindow: metrics.DefaultWindow},
		Process: ProcessConfig{Runtime: proc.DefaultRuntime},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Target == "":
		return fmt.Errorf("%w: target is required", ErrInvalid)
	case c.Rendezvous.Host == "":
		return fmt.Errorf("%w: rendezvous.host is empty", ErrInvalid)
	case c.Rendezvous.Port < 1 || c.Rendezvous.Port > 65535:
		return fmt.Errorf("%w: rendezvous.port %d out of range", ErrInvalid, c.Rendezvous.Port)
	case c.Rendezvous.RetryDelay < 0, c.Rendezvous.Timeout < 0:
		return fmt.Errorf("%w: rendezvous durations must be >= 0", ErrInvalid)
	case c.Sampler.CPUWindow <= 0:
		return fmt.Errorf("%w: sampler.cpu_window must be > 0", ErrInvalid)
	case c.Sampler.Interval < 0:
		return fmt.Errorf("%w: sampler.interval must be >= 0", ErrInvalid)
	}
	switch c.Process.Backend {
	case "", proc.BackendProcfs, proc.BackendPsutil:
	default:
		return fmt.Errorf("%w: process.backend %q", ErrInvalid, c.Process.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// SummaryPath resolves SummaryFile against ResultsDir.
func (c *Config) SummaryPath() string {
	if filepath.IsAbs(c.SummaryFile) {
		return c.SummaryFile
	}
	return filepath.Join(c.ResultsDir, c.SummaryFile)
}

// Endpoint converts the rendezvous section for the socket package.
func (c *Config) Endpoint() rendezvous.Config {
	return rendezvous.Config{
		Host:       c.Rendezvous.Host,
		Port:       c.Rendezvous.Port,
		RetryDelay: c.Rendezvous.RetryDelay,
		Timeout:    c.Rendezvous.Timeout,
	}
}
