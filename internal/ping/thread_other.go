//go:build !linux

package ping

import "sync/atomic"

var callCounter atomic.Int64

// threadID has no portable thread identifier to read outside Linux, so
// every call gets a fresh value instead.
func threadID() int {
	return int(callCounter.Add(1))
}
