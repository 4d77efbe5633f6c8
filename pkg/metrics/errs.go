package metrics

import "errors"

var (
	// ErrUnavailable indicates the OS could not report a metric (unsupported
	// platform, missing permission, unreadable /proc). It is fatal to a session.
	ErrUnavailable = errors.New("metrics: unavailable")

	// ErrBadWindow indicates a non-positive CPU sampling window.
	ErrBadWindow = errors.New("metrics: cpu window must be > 0")
)
