package proc

import (
	"context"
	"log/slog"
)

// Watcher checks whether the target script is running.
type Watcher struct {
	table    Table
	runtime  string
	logger   *slog.Logger
	onDetect func(ctx context.Context) error
}

// NewWatcher builds a Watcher over table. An empty runtime means DefaultRuntime.
func NewWatcher(table Table, runtime string, logger *slog.Logger) *Watcher {
	if runtime == "" {
		runtime = DefaultRuntime
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{table: table, runtime: runtime, logger: logger}
}

// OnDetect sets the hook run on every not-running -> running edge, before
// IsTargetRunning returns. The hook may block.
func (w *Watcher) OnDetect(fn func(ctx context.Context) error) {
	w.onDetect = fn
}

// IsTargetRunning scans the table once. The first matching process is enough;
// no PID disambiguation is done. If the table cannot be listed, previous is
// returned along with the error.
func (w *Watcher) IsTargetRunning(ctx context.Context, target string, previous bool) (bool, error) {
	procs, err := w.table.Processes(ctx)
	if err != nil {
		return previous, err
	}

	running := false
	for _, p := range procs {
		if Matches(p.Args, w.runtime, target) {
			running = true
			w.logger.Debug("target process matched", "pid", p.PID, "args", p.Args)
			break
		}
	}

	if running && !previous {
		w.logger.Info("target program detected", "target", target)
		if w.onDetect != nil {
			if err := w.onDetect(ctx); err != nil {
				return running, err
			}
		}
	}
	return running, nil
}
