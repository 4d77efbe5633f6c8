package proc

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// PsutilTable lists processes through gopsutil.
type PsutilTable struct{}

func (PsutilTable) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil || len(args) == 0 {
			continue
		}
		out = append(out, Process{PID: int(p.Pid), Args: args})
	}
	return out, nil
}
