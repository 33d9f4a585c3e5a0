package ping

import (
	"hash/crc32"
	"strconv"
)

// Identifier derives the echo identifier for a caller from its process and
// thread ids, so concurrent callers on one host rarely collide without
// sharing a counter. Collisions are still possible; the sequence check
// narrows them.
func Identifier(pid, tid int) uint16 {
	key := strconv.Itoa(pid) + strconv.Itoa(tid)
	return uint16(crc32.ChecksumIEEE([]byte(key)) & 0xffff)
}
