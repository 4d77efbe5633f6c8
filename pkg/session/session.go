// Package session runs one profiling session: wait for the target process,
// rendezvous with it once, sample host metrics until interrupted, then write
// the cross-run summary row.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ja7ad/benchprof/pkg/metrics"
	"github.com/ja7ad/benchprof/pkg/recorder"
	"github.com/ja7ad/benchprof/pkg/rendezvous"
	"github.com/ja7ad/benchprof/pkg/stats"
	"github.com/ja7ad/benchprof/pkg/system/proc"
	"github.com/ja7ad/benchprof/pkg/system/util"
	"github.com/ja7ad/benchprof/pkg/types"
)

var ErrIllegalTransition = errors.New("session: illegal state transition")

// Handshaker is the profiler side of the rendezvous.
type Handshaker interface {
	WaitForStart(ctx context.Context, expected string) (bool, error)
	Stop() error
}

// Options wires a Session. Sampler, Table, Listen and Summary are required.
type Options struct {
	Target         string
	Runtime        string
	TimeSeriesPath string
	SummaryPath    string

	// RunID defaults to the time-series file name without extension.
	RunID string

	// Interval is an extra pause after each tick.
	Interval time.Duration

	Sampler metrics.Sampler
	Table   proc.Table

	// Listen binds the rendezvous server; it is called once, after the
	// time-series file is open.
	Listen func(ctx context.Context) (Handshaker, error)

	Summary SummarySource
	Logger  *slog.Logger

	// OnTransition observes every state change.
	OnTransition func(from, to State)
}

// Session is single-use.
type Session struct {
	opts   Options
	logger *slog.Logger
	state  atomic.Int32

	handshaken bool
	acc        *stats.Accumulator
}

func New(opts Options) (*Session, error) {
	switch {
	case opts.Target == "":
		return nil, errors.New("session: target is required")
	case opts.TimeSeriesPath == "", opts.SummaryPath == "":
		return nil, errors.New("session: output paths are required")
	case opts.Sampler == nil, opts.Table == nil, opts.Listen == nil, opts.Summary == nil:
		return nil, errors.New("session: sampler, table, listen and summary are required")
	}
	if opts.RunID == "" {
		base := filepath.Base(opts.TimeSeriesPath)
		opts.RunID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{opts: opts, logger: logger, acc: stats.New()}, nil
}

func (s *Session) State() State { return State(s.state.Load()) }

// Stats returns the aggregates over samples taken while the target ran.
func (s *Session) Stats() stats.Result { return s.acc.Averages() }

func (s *Session) transition(to State) {
	from := s.State()
	if !canTransition(from, to) {
		panic(fmt.Sprintf("%v: %s -> %s", ErrIllegalTransition, from, to))
	}
	s.state.Store(int32(to))
	s.logger.Debug("session state", "from", from.String(), "to", to.String())
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(from, to)
	}
}

// Run drives the session to Done. Cancelling ctx is the operator interrupt:
// Run then finalizes normally and returns nil. Metric, socket and file
// failures end the session with an error and skip the summary row; the
// time-series file and the rendezvous listener are released on every path.
func (s *Session) Run(ctx context.Context) error {
	if s.State() != Idle {
		return fmt.Errorf("%w: session already ran", ErrIllegalTransition)
	}
	start := time.Now()

	rec, err := recorder.Create(s.opts.TimeSeriesPath, s.opts.Sampler.Cores())
	if err != nil {
		return err
	}
	defer rec.Close()
	s.transition(WaitingForTarget)
	s.logger.Info("profiling system state before program execution",
		"target", s.opts.Target, "output", rec.Path(), "cores", s.opts.Sampler.Cores())

	hs, err := s.opts.Listen(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("session: rendezvous: %w", err)
	}
	if hs != nil {
		defer hs.Stop()
	}

	if ctx.Err() == nil {
		if err := s.loop(ctx, hs, rec, start); err != nil {
			return err
		}
	}
	return s.finalize(hs, rec, start)
}

func (s *Session) loop(ctx context.Context, hs Handshaker, rec *recorder.Recorder, start time.Time) error {
	w := proc.NewWatcher(s.opts.Table, s.opts.Runtime, s.logger)
	w.OnDetect(func(ctx context.Context) error { return s.handshake(ctx, hs) })

	running := false
	for ctx.Err() == nil {
		now, err := w.IsTargetRunning(ctx, s.opts.Target, running)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, proc.ErrScan) {
				return err
			}
			s.logger.Warn("process scan failed, keeping previous state", "err", err)
		}
		running = now

		sample, err := s.sample(ctx, start, running)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("metrics unavailable", "err", err)
			return err
		}
		if err := rec.Append(sample); err != nil {
			s.logger.Error("time series write failed", "err", err)
			return err
		}
		s.acc.Apply(sample)
		s.logger.Debug("tick", "elapsed", util.Round2(sample.Elapsed), "program_running", running)

		if s.opts.Interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.Interval):
			}
		}
	}
	return nil
}

// handshake runs at most once per session, no matter how often the target
// appears. Only cancellation is returned as an error; a wrong token or a
// broken connection is logged and sampling continues unsynchronized.
func (s *Session) handshake(ctx context.Context, hs Handshaker) error {
	if s.handshaken {
		return nil
	}
	s.handshaken = true
	s.transition(Handshaking)

	if hs != nil {
		s.logger.Info("waiting for start signal", "token", rendezvous.StartToken)
		matched, err := hs.WaitForStart(ctx, rendezvous.StartToken)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.logger.Warn("rendezvous failed, sampling without synchronization", "err", err)
		case !matched:
			s.logger.Warn("rendezvous token mismatch, sampling anyway")
		}
	}

	s.transition(Sampling)
	return nil
}

// sample reads overall CPU, per-core CPU, RAM and swap, in that order.
func (s *Session) sample(ctx context.Context, start time.Time, running bool) (types.Sample, error) {
	cpu, err := s.opts.Sampler.CPU(ctx)
	if err != nil {
		return types.Sample{}, err
	}
	perCore, err := s.opts.Sampler.PerCore(ctx)
	if err != nil {
		return types.Sample{}, err
	}
	ram, err := s.opts.Sampler.RAM(ctx)
	if err != nil {
		return types.Sample{}, err
	}
	swap, err := s.opts.Sampler.Swap(ctx)
	if err != nil {
		return types.Sample{}, err
	}
	return types.Sample{
		Elapsed:       time.Since(start).Seconds(),
		CPU:           cpu,
		PerCore:       perCore,
		RAMPercent:    ram.Percent,
		RAMUsed:       ram.Used,
		SwapPercent:   swap.Percent,
		SwapUsed:      swap.Used,
		TargetRunning: running,
	}, nil
}

func (s *Session) finalize(hs Handshaker, rec *recorder.Recorder, start time.Time) error {
	s.transition(Finalizing)
	if hs != nil {
		if err := hs.Stop(); err != nil {
			s.logger.Warn("rendezvous stop", "err", err)
		}
	}

	total := time.Since(start).Seconds()
	s.logger.Info("total execution time", "seconds", fmt.Sprintf("%.2f", total))
	if avg := s.acc.Averages(); avg.Samples > 0 {
		s.logger.Info("target run aggregates",
			"samples", avg.Samples,
			"baseline_samples", s.acc.Baseline(),
			"cpu_mean", fmt.Sprintf("%.2f", avg.MeanCPU),
			"cpu_peak", fmt.Sprintf("%.2f", avg.PeakCPU),
			"ram_mean", fmt.Sprintf("%.2f", avg.MeanRAM),
			"ram_peak_gb", fmt.Sprintf("%.2f", avg.RAMUsedGB))
	}

	// The session context is already cancelled on interrupt; the prompt gets its own.
	in, err := s.opts.Summary.SummaryInput(context.Background())
	if err != nil {
		s.logger.Warn("summary input incomplete", "err", err)
	}
	summary, ok := Summarize(s.opts.RunID, in)
	if !ok {
		s.logger.Error("invalid execution time, recording 0.0", "input", in.ExecutionTime)
	}
	if err := recorder.AppendSummary(s.opts.SummaryPath, summary); err != nil {
		return err
	}
	if err := rec.Close(); err != nil {
		return err
	}
	s.transition(Done)
	return nil
}
