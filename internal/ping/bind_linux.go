package ping

import "golang.org/x/sys/unix"

func (s *socket) BindToInterface(name string) error {
	return unix.SetsockoptString(s.fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, name)
}
