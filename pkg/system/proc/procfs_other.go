//go:build !linux

package proc

import (
	"context"
	"fmt"
	"runtime"
)

// ProcfsTable is only available on Linux.
type ProcfsTable struct{}

func NewProcfsTable(string) (*ProcfsTable, error) {
	return nil, fmt.Errorf("%w: procfs is not available on %s", ErrUnknownBackend, runtime.GOOS)
}

func (t *ProcfsTable) Processes(context.Context) ([]Process, error) {
	return nil, ErrScan
}

func defaultTable() (Table, error) {
	return PsutilTable{}, nil
}
