//go:build !linux && !darwin

package ping

import (
	"fmt"
	"runtime"
)

// OpenSocket is only implemented for Linux and Darwin.
func OpenSocket(mode Mode) (Conn, error) {
	return nil, fmt.Errorf("open %s socket: ICMP sockets are not supported on %s", mode, runtime.GOOS)
}
