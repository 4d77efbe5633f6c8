package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/benchprof/pkg/config"
	"github.com/ja7ad/benchprof/pkg/metrics"
	"github.com/ja7ad/benchprof/pkg/recorder"
	"github.com/ja7ad/benchprof/pkg/rendezvous"
	"github.com/ja7ad/benchprof/pkg/session"
	"github.com/ja7ad/benchprof/pkg/system/proc"
	"github.com/ja7ad/benchprof/pkg/types"
)

type opts struct {
	configPath string

	// profile
	target     string
	resultsDir string
	csvPrefix  string
	summary    string
	cpuWindow  time.Duration
	interval   time.Duration
	backend    string
	runtime    string
	execTime   string
	records    string

	// rendezvous
	host       string
	port       int
	retryDelay time.Duration
	timeout    time.Duration
	token      string

	// logging
	logLevel  string
	logFormat string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "benchprof --profiled-file NAME",
		Short: "Host resource profiler synchronized with a benchmark process",
		Long: `benchprof samples host CPU (overall and per core), RAM and swap into a CSV
time series while a benchmark script runs. It waits until a process whose
script name contains the target shows up, then blocks until that workload
sends "start" over a loopback socket, so sampling and the timed section begin
together. Press Ctrl-C to stop; you are then asked for the measured execution
time and record count, which are appended to the shared summary table.

Examples:
  benchprof --profiled-file bench_dict
  benchprof --config benchprof.yaml --exec-time 12.4 --records 100000
  benchprof signal            # from a shell-based workload`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, o)
		},
	}
	bindShared(root.PersistentFlags(), &o)
	bindProfile(root.Flags(), &o)

	sig := &cobra.Command{
		Use:   "signal",
		Short: "Send the start signal to a waiting profiler",
		Long: `signal connects to the profiler's rendezvous port and sends the start token.
If no profiler is listening the workload is running unprofiled; signal logs
that and exits successfully.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignal(cmd, o)
		},
	}
	sig.Flags().StringVar(&o.token, "token", rendezvous.StartToken, "message to send")
	root.AddCommand(sig)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func bindShared(fs *pflag.FlagSet, o *opts) {
	fs.StringVarP(&o.configPath, "config", "c", "", "YAML config file (default $"+config.EnvVar+")")
	fs.StringVar(&o.host, "host", rendezvous.DefaultHost, "rendezvous host")
	fs.IntVar(&o.port, "port", rendezvous.DefaultPort, "rendezvous port")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
}

func bindProfile(fs *pflag.FlagSet, o *opts) {
	fs.StringVarP(&o.target, "profiled-file", "p", "", "substring of the benchmark script name to wait for")
	fs.StringVar(&o.resultsDir, "results-dir", "results", "directory for time-series and summary files")
	fs.StringVar(&o.csvPrefix, "csv-prefix", "system_stats", "time-series file name prefix")
	fs.StringVar(&o.summary, "summary-file", recorder.DefaultSummaryFile, "cross-run summary table (relative to --results-dir)")
	fs.DurationVar(&o.cpuWindow, "cpu-window", metrics.DefaultWindow, "blocking window of each CPU reading")
	fs.DurationVarP(&o.interval, "interval", "i", 0, "extra pause between ticks")
	fs.StringVar(&o.backend, "process-backend", "", "process table backend: procfs or psutil (default: platform)")
	fs.StringVar(&o.runtime, "runtime", proc.DefaultRuntime, "runtime name the target's first argument must contain")
	fs.DurationVar(&o.retryDelay, "retry-delay", rendezvous.DefaultRetryDelay, "pause between bind attempts while the port is busy")
	fs.DurationVar(&o.timeout, "start-timeout", 0, "give up waiting for the start signal after this long (0 = never)")
	fs.StringVar(&o.execTime, "exec-time", "", "execution time for the summary row (skips the prompt)")
	fs.StringVar(&o.records, "records", "", "record count for the summary row (skips the prompt)")
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, o opts) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(config.EnvVar)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("profiled-file", func() { cfg.Target = o.target })
	set("results-dir", func() { cfg.ResultsDir = o.resultsDir })
	set("csv-prefix", func() { cfg.CSVPrefix = o.csvPrefix })
	set("summary-file", func() { cfg.SummaryFile = o.summary })
	set("cpu-window", func() { cfg.Sampler.CPUWindow = o.cpuWindow })
	set("interval", func() { cfg.Sampler.Interval = o.interval })
	set("process-backend", func() { cfg.Process.Backend = o.backend })
	set("runtime", func() { cfg.Process.Runtime = o.runtime })
	set("host", func() { cfg.Rendezvous.Host = o.host })
	set("port", func() { cfg.Rendezvous.Port = o.port })
	set("retry-delay", func() { cfg.Rendezvous.RetryDelay = o.retryDelay })
	set("start-timeout", func() { cfg.Rendezvous.Timeout = o.timeout })
	set("log-level", func() { cfg.Log.Level = o.logLevel })
	set("log-format", func() { cfg.Log.Format = o.logFormat })
	return cfg, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	hopts := &slog.HandlerOptions{Level: lv}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}

func runProfile(cmd *cobra.Command, o opts) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// After the first interrupt, restore default handling so a second Ctrl-C
	// during the summary prompt exits immediately.
	context.AfterFunc(ctx, stop)

	sampler, err := metrics.NewPsutilSampler(ctx, cfg.Sampler.CPUWindow)
	if err != nil {
		return err
	}
	table, err := proc.NewTable(cfg.Process.Backend)
	if err != nil {
		return err
	}

	printBanner(ctx, cmd.OutOrStdout(), sampler.Cores())

	runName := recorder.RunName(cfg.CSVPrefix, cfg.Target, time.Now())
	var source session.SummarySource = session.PromptSource{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	if cmd.Flags().Changed("exec-time") || cmd.Flags().Changed("records") {
		source = session.StaticSource{ExecutionTime: o.execTime, Records: o.records}
	}

	endpoint := cfg.Endpoint()
	sess, err := session.New(session.Options{
		Target:         cfg.Target,
		Runtime:        cfg.Process.Runtime,
		TimeSeriesPath: recorder.TimeSeriesPath(cfg.ResultsDir, runName),
		SummaryPath:    cfg.SummaryPath(),
		RunID:          runName,
		Interval:       cfg.Sampler.Interval,
		Sampler:        sampler,
		Table:          table,
		Listen: func(ctx context.Context) (session.Handshaker, error) {
			srv, err := rendezvous.Listen(ctx, endpoint, logger)
			if err != nil {
				return nil, err
			}
			return srv, nil
		},
		Summary: source,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if err := sess.Run(ctx); err != nil {
		logger.Error("profiling session failed", "run", runName, "err", err)
		return err
	}
	return nil
}

func runSignal(cmd *cobra.Command, o opts) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	c, err := rendezvous.Dial(cmd.Context(), cfg.Endpoint())
	if err != nil {
		logger.Info("running without profiling", "err", err)
		return nil
	}
	ack, err := c.Send(o.token)
	if err != nil {
		return err
	}
	logger.Debug("start signal acknowledged", "ack", ack)
	return nil
}

func printBanner(ctx context.Context, w io.Writer, cores int) {
	hostname, kernel, memTotal := "unknown", "unknown", "unknown"
	if info, err := host.InfoWithContext(ctx); err == nil {
		hostname, kernel = info.Hostname, info.KernelVersion
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memTotal = types.ToBytes(vm.Total).Humanized()
	}
	fmt.Fprintf(w, _console, hostname, kernel, cores, memTotal, time.Now().Format("2006-01-02 15:04:05"))
}

const _console = `benchprof - host resource profiler

       Host: %s
       Kernel: %s
       Physical cores: %d
       Mem: %s

Profiling started at %s (Ctrl-C to stop)

`
