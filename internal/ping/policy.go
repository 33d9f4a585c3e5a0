package ping

import (
	"fmt"
	"strings"
)

// Mode selects the kind of ICMP socket.
type Mode int

const (
	// ModeAuto opens a raw socket and falls back to a datagram socket when
	// the process lacks the privilege.
	ModeAuto Mode = iota
	// ModeRaw requires a raw socket.
	ModeRaw
	// ModeDatagram uses an unprivileged datagram ICMP socket.
	ModeDatagram
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeRaw:
		return "raw"
	case ModeDatagram:
		return "dgram"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "auto", "raw" or "dgram" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "raw":
		return ModeRaw, nil
	case "dgram", "datagram":
		return ModeDatagram, nil
	}
	return ModeAuto, fmt.Errorf("unknown socket mode %q (must be auto, raw or dgram)", s)
}

// HasIPHeader reports whether datagrams read from a socket of the given mode
// start with the IPv4 header. Raw sockets always deliver it, and so do
// Windows and Darwin for every socket type; unprivileged datagram sockets on
// the other platforms strip it.
func HasIPHeader(goos string, mode Mode) bool {
	return goos == "windows" || goos == "darwin" || mode == ModeRaw
}

// IdentifierPolicy returns the identifier an echo reply must carry given the
// identifier that was sent. localPort reports the socket's bound port.
type IdentifierPolicy func(sent uint16, hasIPHeader bool, localPort func() (int, error)) (uint16, error)

// KernelPortPolicy expects the socket's local port when the IP header is
// absent: datagram ICMP sockets have the kernel overwrite the identifier
// with the port the socket is bound to.
func KernelPortPolicy(sent uint16, hasIPHeader bool, localPort func() (int, error)) (uint16, error) {
	if hasIPHeader {
		return sent, nil
	}
	port, err := localPort()
	if err != nil {
		return 0, err
	}
	return uint16(port), nil
}

// SentIDPolicy always expects the identifier that was sent.
func SentIDPolicy(sent uint16, _ bool, _ func() (int, error)) (uint16, error) {
	return sent, nil
}
