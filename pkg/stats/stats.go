// Package stats keeps running aggregates over a session's samples.
package stats

import (
	"github.com/ja7ad/benchprof/pkg/system/util"
	"github.com/ja7ad/benchprof/pkg/types"
)

// Result is the aggregate over the samples taken while the target ran.
// Fields are percentages, except RAMUsedGB.
type Result struct {
	Samples   int
	MeanCPU   float64
	PeakCPU   float64
	MeanRAM   float64
	PeakRAM   float64
	RAMUsedGB float64 // peak
	MeanSwap  float64
}

// Accumulator folds samples into a Result. Baseline samples (target not
// running) are counted separately and do not affect the aggregates.
type Accumulator struct {
	count    int
	baseline int
	sumCPU   float64
	sumRAM   float64
	sumSwap  float64
	peakCPU  float64
	peakRAM  float64
	peakUsed float64
}

func New() *Accumulator { return &Accumulator{} }

// Apply adds one sample.
func (a *Accumulator) Apply(s types.Sample) {
	if !s.TargetRunning {
		a.baseline++
		return
	}
	a.count++
	a.sumCPU += s.CPU
	a.sumRAM += s.RAMPercent
	a.sumSwap += s.SwapPercent
	a.peakCPU = max(a.peakCPU, s.CPU)
	a.peakRAM = max(a.peakRAM, s.RAMPercent)
	a.peakUsed = max(a.peakUsed, s.RAMUsed.GB())
}

// Baseline is the number of samples taken while the target was not running.
func (a *Accumulator) Baseline() int { return a.baseline }

// Averages returns the aggregates so far; all zero when no sample saw the target.
func (a *Accumulator) Averages() Result {
	n := float64(a.count)
	return Result{
		Samples:   a.count,
		MeanCPU:   util.SafeDiv(a.sumCPU, n),
		PeakCPU:   a.peakCPU,
		MeanRAM:   util.SafeDiv(a.sumRAM, n),
		PeakRAM:   a.peakRAM,
		RAMUsedGB: a.peakUsed,
		MeanSwap:  util.SafeDiv(a.sumSwap, n),
	}
}
