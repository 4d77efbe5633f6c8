// Package rendezvous implements the one-shot start handshake between the
// profiler and a benchmark workload over a loopback TCP socket.
//
// The profiler owns a Server: it binds the configured host/port (retrying
// while another listener still holds the port), and later blocks in
// WaitForStart until the workload connects and sends StartToken. The workload
// owns a Client: it connects as soon as it starts and calls SendStart once its
// input data is loaded, right before the timed section. A workload that
// cannot connect should run unsynchronized instead of retrying.
//
// Messages are raw bytes, one bounded read of at most MaxMessage bytes each
// way. There is no framing, authentication or encryption; the socket is meant
// for loopback only.
package rendezvous
