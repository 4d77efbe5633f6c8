package rendezvous

import (
	"context"
	"fmt"
	"io"
	"net"
)

// Client is the workload side of the handshake.
type Client struct {
	conn net.Conn
}

// Dial connects to the profiler right away. It does not retry: when it fails
// the caller should run without synchronization.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoServer, cfg.Address(), err)
	}
	return &Client{conn: conn}, nil
}

// SendStart sends StartToken, waits for the acknowledgment and closes the
// connection. It blocks until the profiler accepts the connection.
func (c *Client) SendStart() error {
	_, err := c.Send(StartToken)
	return err
}

// Send writes msg, reads one acknowledgment and closes the connection.
func (c *Client) Send(msg string) (ack string, err error) {
	defer c.conn.Close()

	if _, err := io.WriteString(c.conn, msg); err != nil {
		return "", fmt.Errorf("%w: write: %v", ErrHandshake, err)
	}
	buf := make([]byte, MaxMessage)
	n, err := c.conn.Read(buf)
	if err != nil && n == 0 {
		return "", fmt.Errorf("%w: read ack: %v", ErrHandshake, err)
	}
	return string(buf[:n]), nil
}

// Close releases the connection without sending anything.
func (c *Client) Close() error { return c.conn.Close() }
