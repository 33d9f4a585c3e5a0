package ping

import (
	"net"
	"time"
)

// maxPacketSize bounds a single read; larger datagrams are truncated.
const maxPacketSize = 1500

// waitSlice caps a single readiness wait so cancellation is noticed promptly.
const waitSlice = 100 * time.Millisecond

// Conn is the ICMP socket a Session drives.
type Conn interface {
	// Mode is the mode the socket was actually opened in, never ModeAuto.
	Mode() Mode
	// BindToInterface restricts the socket to the named interface.
	BindToInterface(name string) error
	// SendTo transmits one ICMP message to dst.
	SendTo(b []byte, dst net.IP) error
	// WaitReadable blocks until a datagram is available or timeout elapses.
	// A zero timeout polls without blocking.
	WaitReadable(timeout time.Duration) (bool, error)
	// Recv reads one datagram into b.
	Recv(b []byte) (int, error)
	// LocalPort is the port the socket is bound to.
	LocalPort() (int, error)
	Close() error
}

// OpenFunc opens an ICMP socket of the requested mode.
type OpenFunc func(mode Mode) (Conn, error)
