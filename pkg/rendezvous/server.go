package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Server is the profiler side of the handshake.
type Server struct {
	ln      net.Listener
	timeout time.Duration
	logger  *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

// Listen binds cfg.Address(). While the port is in use it retries every
// cfg.RetryDelay until it succeeds or ctx is done; any other bind error is
// returned immediately wrapped in ErrBind.
func Listen(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var lc net.ListenConfig
	addr := cfg.Address()
	for attempt := 1; ; attempt++ {
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			logger.Debug("rendezvous listening", "addr", ln.Addr().String())
			return &Server{ln: ln, timeout: cfg.Timeout, logger: logger}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrBind, addr, err)
		}

		logger.Warn("rendezvous port in use, retrying", "addr", addr, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// WaitForStart accepts one connection, reads one message and compares it
// byte-for-byte with expected. The client always gets an acknowledgment
// before the connection is closed. A mismatch is logged and reported as
// matched == false with a nil error; control returns to the caller either way.
//
// WaitForStart blocks until a client connects, ctx is done, or the configured
// timeout (if any) passes.
func (s *Server) WaitForStart(ctx context.Context, expected string) (matched bool, err error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, err := s.accept(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	unblock := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer unblock()

	buf := make([]byte, MaxMessage)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("%w: read: %v", ErrHandshake, err)
	}

	got := string(buf[:n])
	matched = got == expected
	ack := AckOK
	if !matched {
		ack = AckUnexpected
		s.logger.Warn("unexpected rendezvous message", "got", got, "want", expected)
	} else {
		s.logger.Info("start signal received", "remote", conn.RemoteAddr().String())
	}

	if _, err := conn.Write([]byte(ack)); err != nil {
		s.logger.Warn("rendezvous acknowledgment not delivered", "err", err)
	}
	return matched, nil
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	type deadliner interface{ SetDeadline(time.Time) error }
	if dl, ok := s.ln.(deadliner); ok {
		unblock := context.AfterFunc(ctx, func() { _ = dl.SetDeadline(time.Unix(1, 0)) })
		defer unblock()
	}

	conn, err := s.ln.Accept()
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, net.ErrClosed) {
		return nil, ErrClosed
	}
	return nil, fmt.Errorf("%w: accept: %v", ErrHandshake, err)
}

// Stop closes the listener. It is safe to call more than once and from an
// interrupt path; calls after the first return nil.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.stopErr = err
		}
	})
	return s.stopErr
}
