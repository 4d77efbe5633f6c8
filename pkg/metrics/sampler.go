// Package metrics reads host-wide CPU, RAM and swap figures.
//
// CPU readings are not instantaneous: CPU and PerCore each block for the
// configured window (100ms by default) while the OS counters are diffed, so a
// tick that reads both spends roughly twice the window inside the sampler.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ja7ad/benchprof/pkg/system/util"
	"github.com/ja7ad/benchprof/pkg/types"
)

// DefaultWindow is the blocking interval of one CPU utilization reading.
const DefaultWindow = 100 * time.Millisecond

type Sampler interface {
	// Cores is the physical core count; PerCore always returns this many values.
	Cores() int
	CPU(ctx context.Context) (float64, error)
	PerCore(ctx context.Context) ([]float64, error)
	RAM(ctx context.Context) (types.Memory, error)
	Swap(ctx context.Context) (types.Memory, error)
}

// PsutilSampler implements Sampler on top of gopsutil.
type PsutilSampler struct {
	window time.Duration
	cores  int
}

// NewPsutilSampler probes the physical core count once; it is fixed for the
// lifetime of the sampler so the CSV header stays valid.
func NewPsutilSampler(ctx context.Context, window time.Duration) (*PsutilSampler, error) {
	if window <= 0 {
		return nil, ErrBadWindow
	}
	n, err := cpu.CountsWithContext(ctx, false)
	if err != nil || n <= 0 {
		// Some virtualized hosts hide topology; fall back to logical CPUs.
		n, err = cpu.CountsWithContext(ctx, true)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: core count: %v", ErrUnavailable, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: core count is zero", ErrUnavailable)
	}
	return &PsutilSampler{window: window, cores: n}, nil
}

func (s *PsutilSampler) Cores() int { return s.cores }

func (s *PsutilSampler) CPU(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, s.window, false)
	if err != nil {
		return 0, fmt.Errorf("%w: cpu: %v", ErrUnavailable, err)
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("%w: cpu: empty reading", ErrUnavailable)
	}
	return util.ClampPercent(pcts[0]), nil
}

func (s *PsutilSampler) PerCore(ctx context.Context) ([]float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, s.window, true)
	if err != nil {
		return nil, fmt.Errorf("%w: per-core cpu: %v", ErrUnavailable, err)
	}
	return FoldCores(pcts, s.cores), nil
}

func (s *PsutilSampler) RAM(ctx context.Context) (types.Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return types.Memory{}, fmt.Errorf("%w: ram: %v", ErrUnavailable, err)
	}
	return types.Memory{Percent: vm.UsedPercent, Used: types.ToBytes(vm.Used)}, nil
}

func (s *PsutilSampler) Swap(ctx context.Context) (types.Memory, error) {
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return types.Memory{}, fmt.Errorf("%w: swap: %v", ErrUnavailable, err)
	}
	return types.Memory{Percent: sw.UsedPercent, Used: types.ToBytes(sw.Used)}, nil
}

// FoldCores maps per-logical-CPU readings onto n physical cores.
//
// Linux numbers SMT siblings as cpu i, i+n, i+2n..., so logical CPU j is
// averaged into core j%n. Missing cores read as 0.
func FoldCores(readings []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if len(readings) == n {
		for i, v := range readings {
			out[i] = util.ClampPercent(v)
		}
		return out
	}
	counts := make([]int, n)
	for j, v := range readings {
		out[j%n] += util.ClampPercent(v)
		counts[j%n]++
	}
	for i := range out {
		out[i] = util.SafeDiv(out[i], float64(counts[i]))
	}
	return out
}
