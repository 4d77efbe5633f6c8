package proc

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultRuntime is the interpreter name the first argument must contain.
	DefaultRuntime = "python"

	// ModuleFlag makes the runtime execute a module; the script is the next argument.
	ModuleFlag = "-m"

	BackendProcfs = "procfs"
	BackendPsutil = "psutil"
)

// Process is one entry of the process table.
type Process struct {
	PID  int
	Args []string
}

// Table lists the current processes. Implementations skip entries they cannot
// read instead of failing the whole listing.
type Table interface {
	Processes(ctx context.Context) ([]Process, error)
}

// NewTable returns the process table backend with the given name. An empty
// name selects the platform default.
func NewTable(backend string) (Table, error) {
	switch backend {
	case "":
		return defaultTable()
	case BackendProcfs:
		return NewProcfsTable("")
	case BackendPsutil:
		return PsutilTable{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// ScriptName resolves the script or module launched by a runtime invocation.
// ok is false when args is not a runtime invocation or names no script.
func ScriptName(args []string, runtime string) (name string, ok bool) {
	if len(args) == 0 || !strings.Contains(args[0], runtime) {
		return "", false
	}
	if len(args) < 2 {
		return "", false
	}
	if args[1] == ModuleFlag {
		if len(args) < 3 {
			return "", false
		}
		return args[2], true
	}
	return args[1], true
}

// Matches reports whether args launch a script whose name contains target.
func Matches(args []string, runtime, target string) bool {
	name, ok := ScriptName(args, runtime)
	return ok && strings.Contains(name, target)
}
