package recorder

import "errors"

var (
	// ErrColumns indicates a sample whose per-core list does not match the header.
	ErrColumns = errors.New("recorder: per-core column count mismatch")

	// ErrClosed indicates a write after Close.
	ErrClosed = errors.New("recorder: closed")
)
