//go:build !unix

package utils

import "log/slog"

// CheckFileDescriptorLimit has no limit to check on this platform.
func CheckFileDescriptorLimit(logger *slog.Logger, workers int) bool {
	return true
}
