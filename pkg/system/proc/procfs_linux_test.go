//go:build linux

package proc

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findPID(t *testing.T, procs []Process, pid int) (Process, bool) {
	t.Helper()
	for _, p := range procs {
		if p.PID == pid {
			return p, true
		}
	}
	return Process{}, false
}

func TestProcfsTable_Self(t *testing.T) {
	tbl, err := NewProcfsTable("")
	require.NoError(t, err)

	procs, err := tbl.Processes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, procs)

	me, ok := findPID(t, procs, os.Getpid())
	require.True(t, ok, "current process should be listed")
	assert.Equal(t, os.Args, me.Args)
}

func TestProcfsTable_BadMount(t *testing.T) {
	_, err := NewProcfsTable("/nonexistent-procfs-mount")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScan)
}

func TestPsutilTable_Self(t *testing.T) {
	procs, err := PsutilTable{}.Processes(context.Background())
	require.NoError(t, err)

	me, ok := findPID(t, procs, os.Getpid())
	require.True(t, ok, "current process should be listed")
	assert.Equal(t, os.Args[0], me.Args[0])
}

func TestNewTable_DefaultIsProcfs(t *testing.T) {
	tbl, err := NewTable("")
	require.NoError(t, err)
	assert.IsType(t, &ProcfsTable{}, tbl)
}
