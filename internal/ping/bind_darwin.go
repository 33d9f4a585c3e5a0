package ping

import (
	"net"

	"golang.org/x/sys/unix"
)

func (s *socket) BindToInterface(name string) error {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return err
	}
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_IP, unix.IP_BOUND_IF, ifi.Index)
}
