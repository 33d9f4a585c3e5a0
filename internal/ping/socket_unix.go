//go:build linux || darwin

package ping

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// socketFunc creates the socket descriptor; tests replace it.
var socketFunc = unix.Socket

type socket struct {
	fd   int
	mode Mode
}

// OpenSocket opens an IPv4 ICMP socket. In ModeAuto a raw socket is tried
// first and EPERM falls back to a datagram socket; any other failure is
// returned as is.
func OpenSocket(mode Mode) (Conn, error) {
	auto := mode != ModeRaw && mode != ModeDatagram
	if auto {
		mode = ModeRaw
	}
	s, err := openSocket(mode)
	if err != nil && auto && errors.Is(err, unix.EPERM) {
		s, err = openSocket(ModeDatagram)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSocket(mode Mode) (*socket, error) {
	typ := unix.SOCK_RAW
	if mode == ModeDatagram {
		typ = unix.SOCK_DGRAM
	}
	fd, err := socketFunc(unix.AF_INET, typ, unix.IPPROTO_ICMP)
	if err != nil {
		return nil, fmt.Errorf("open %s socket: %w", mode, err)
	}
	unix.CloseOnExec(fd)
	return &socket{fd: fd, mode: mode}, nil
}

func (s *socket) Mode() Mode { return s.mode }

func (s *socket) SendTo(b []byte, dst net.IP) error {
	ip4 := dst.To4()
	if ip4 == nil {
		return fmt.Errorf("not an IPv4 address: %s", dst)
	}
	sa := &unix.SockaddrInet4{}
	copy(sa.Addr[:], ip4)
	return unix.Sendto(s.fd, b, 0, sa)
}

func (s *socket) WaitReadable(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, pollMillis(time.Until(deadline)))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// pollMillis rounds up so poll never returns before the deadline.
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func (s *socket) Recv(b []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(s.fd, b, 0)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (s *socket) LocalPort() (int, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return 0, err
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("unexpected socket address %T", sa)
	}
	return in4.Port, nil
}

func (s *socket) Close() error {
	return unix.Close(s.fd)
}
