package proc

import "errors"

var (
	// ErrScan indicates the process table itself could not be listed.
	ErrScan = errors.New("proc: process table scan failed")

	// ErrUnknownBackend indicates NewTable was given an unsupported backend name.
	ErrUnknownBackend = errors.New("proc: unknown process table backend")
)
