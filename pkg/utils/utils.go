// pkg/utils/utils.go
package utils

import (
	"log/slog"
	"os"
	"runtime"
)

// CheckPrivileges reports whether the process can open raw ICMP sockets and
// warns when it cannot. Without them the engine falls back to datagram
// sockets, which need net.ipv4.ping_group_range on Linux.
func CheckPrivileges(logger *slog.Logger) bool {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		return true
	}
	logger.Warn("Running as non-root. Raw ICMP sockets are unavailable; datagram sockets will be used.",
		"component", "security", "euid", os.Geteuid())
	return false
}
