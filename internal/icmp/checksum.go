package icmp

// Checksum returns the RFC 1071 one's-complement checksum of b.
//
// Words are formed low byte first: b[i] is the low byte and b[i+1] the
// high byte, and an odd trailing byte is a low byte with a zero high byte.
// The result is therefore the byte-swapped form of the network-order
// checksum and belongs in the packet in little-endian order.
func Checksum(b []byte) uint16 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i]) | uint32(b[i+1])<<8
	}
	if n&1 == 1 {
		sum += uint32(b[n-1])
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
