package types

// Sample is one tick of host metrics. Elapsed is measured on the monotonic
// clock from session start. PerCore has one entry per physical core and keeps
// the same index order for the whole session.
type Sample struct {
	Elapsed       float64
	CPU           float64
	PerCore       []float64
	RAMPercent    float64
	RAMUsed       Bytes
	SwapPercent   float64
	SwapUsed      Bytes
	TargetRunning bool
}

// Memory is a RAM or swap reading.
type Memory struct {
	Percent float64
	Used    Bytes
}

// SessionSummary is the row appended to the cross-run summary table.
// Records holds the operator's text verbatim; it is not required to be numeric.
type SessionSummary struct {
	RunID            string
	Records          string
	ExecutionSeconds float64
}
