package rendezvous

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8888
	DefaultRetryDelay = time.Second

	// StartToken is the only message a workload sends.
	StartToken = "start"

	AckOK         = "Message received successfully."
	AckUnexpected = "Unexpected message."

	// MaxMessage bounds every read on the socket.
	MaxMessage = 1024
)

// Config is the host/port pair shared by both roles.
type Config struct {
	Host string
	Port int

	// RetryDelay is the pause between bind attempts while the port is in use.
	RetryDelay time.Duration

	// Timeout bounds WaitForStart. Zero waits forever.
	Timeout time.Duration
}

// DefaultConfig returns the loopback endpoint both roles agree on.
func DefaultConfig() Config {
	return Config{Host: DefaultHost, Port: DefaultPort, RetryDelay: DefaultRetryDelay}
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
