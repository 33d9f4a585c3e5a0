//go:build unix

package utils

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// CheckFileDescriptorLimit warns if the worker count might exceed the open
// file limit. Every in-flight probe holds one socket.
func CheckFileDescriptorLimit(logger *slog.Logger, workers int) bool {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return true
	}
	const margin = 100
	if rLimit.Cur > margin && uint64(workers) < rLimit.Cur-margin {
		return true
	}
	logger.Warn("Worker count is close to the file descriptor limit.",
		"component", "resource", "workers", workers, "limit", rLimit.Cur)
	return false
}
