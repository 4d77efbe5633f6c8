//go:build linux

package proc

import (
	"context"
	"fmt"

	"github.com/prometheus/procfs"
)

// ProcfsTable lists processes from a procfs mount.
type ProcfsTable struct {
	fs procfs.FS
}

// NewProcfsTable opens the procfs mounted at mountPoint, or /proc when empty.
func NewProcfsTable(mountPoint string) (*ProcfsTable, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrScan, mountPoint, err)
	}
	return &ProcfsTable{fs: fs}, nil
}

func (t *ProcfsTable) Processes(ctx context.Context) ([]Process, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		args, err := p.CmdLine()
		if err != nil || len(args) == 0 {
			// exited mid-scan, kernel thread, or no permission
			continue
		}
		out = append(out, Process{PID: p.PID, Args: args})
	}
	return out, nil
}

func defaultTable() (Table, error) {
	return NewProcfsTable("")
}
