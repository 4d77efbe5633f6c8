package rendezvous

import "errors"

var (
	// ErrBind indicates the listener could not be bound for a reason other
	// than the port being in use.
	ErrBind = errors.New("rendezvous: bind failed")

	// ErrClosed indicates the server was stopped.
	ErrClosed = errors.New("rendezvous: server closed")

	// ErrHandshake indicates the connection failed mid-handshake.
	ErrHandshake = errors.New("rendezvous: handshake failed")

	// ErrNoServer indicates the client found no listening profiler.
	ErrNoServer = errors.New("rendezvous: no server listening")
)
