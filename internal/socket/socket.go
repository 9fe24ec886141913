// Package socket implements the bound UDP/IPv4 receiver the capture
// thread drains at wire rate.
package socket

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kiranshila/grex-packet-capture/internal/xcapture"
)

// Endpoint is a bound, blocking IPv4 UDP socket tuned for high-rate
// ingest: address reuse and a large, verified kernel receive buffer.
type Endpoint struct {
	fd int
}

// New opens an IPv4 UDP socket, binds 0.0.0.0:port, enables
// SO_REUSEADDR, requests rcvBufBytes for SO_RCVBUF and verifies the
// kernel honored it.
//
// The kernel commonly doubles the requested value for bookkeeping
// (see socket(7)), so verification accepts either the requested value
// or exactly double it; anything else is a ConfigError naming the
// net.core.rmem_max sysctl as the knob the operator must raise.
func New(port uint16, rcvBufBytes int) (*Endpoint, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufBytes); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}

	got, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to read back SO_RCVBUF: %w", err)
	}
	if got != rcvBufBytes && got != 2*rcvBufBytes {
		unix.Close(fd)
		return nil, &xcapture.ConfigError{
			Msg:      "SO_RCVBUF was not honored; raise net.core.rmem_max",
			Expected: rcvBufBytes,
			Found:    got,
		}
	}

	sa := &unix.SockaddrInet4{Port: int(port)}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind 0.0.0.0:%d: %w", port, err)
	}

	return &Endpoint{fd: fd}, nil
}

// Recv blocks until one datagram arrives and fills buf with it. A read
// that returns fewer than len(buf) bytes is reported as
// SizeMismatchError; the caller treats the packet as corrupt and
// continues. A datagram longer than buf is truncated to len(buf) by the
// read and is not reported.
func (e *Endpoint) Recv(buf []byte) (int, error) {
	n, err := unix.Read(e.fd, buf)
	if err != nil {
		return 0, fmt.Errorf("recv failed: %w", err)
	}
	if n != len(buf) {
		return n, &xcapture.SizeMismatchError{N: n}
	}
	return n, nil
}

// Close releases the underlying file descriptor.
func (e *Endpoint) Close() error {
	return unix.Close(e.fd)
}
