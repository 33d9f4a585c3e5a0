package icmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// IPHeaderLen is the length of an IPv4 header without options.
	IPHeaderLen = 20
	// HeaderLen is the length of an ICMP header.
	HeaderLen = 8
	// TimestampLen is the length of the send time at the start of an echo payload.
	TimestampLen = 8

	paddingByte = 'Q'
)

// ErrTruncated is returned when a buffer is shorter than the structure
// being decoded.
var ErrTruncated = errors.New("truncated packet")

// Marshal serializes the header in network byte order.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderLen)
	h.put(b)
	return b
}

func (h Header) put(b []byte) {
	b[0] = byte(h.Type)
	b[1] = h.Code
	binary.BigEndian.PutUint16(b[2:4], h.Checksum)
	binary.BigEndian.PutUint16(b[4:6], h.ID)
	binary.BigEndian.PutUint16(b[6:8], h.Seq)
}

// EncodeEchoRequest builds an Echo Request with the given identifier and
// sequence. The payload is size bytes long, never shorter than the 8-byte
// send timestamp, and the rest is filler.
func EncodeEchoRequest(id, seq uint16, size int, sent float64) []byte {
	if size < TimestampLen {
		size = TimestampLen
	}
	pkt := make([]byte, HeaderLen+size)
	Header{Type: TypeEchoRequest, ID: id, Seq: seq}.put(pkt)

	payload := pkt[HeaderLen:]
	binary.BigEndian.PutUint64(payload, math.Float64bits(sent))
	for i := TimestampLen; i < len(payload); i++ {
		payload[i] = paddingByte
	}

	binary.LittleEndian.PutUint16(pkt[2:4], Checksum(pkt))
	return pkt
}

// DecodeIPHeader parses the first 20 bytes of b.
func DecodeIPHeader(b []byte) (IPHeader, error) {
	if len(b) < IPHeaderLen {
		return IPHeader{}, fmt.Errorf("ip header: %w (%d of %d bytes)", ErrTruncated, len(b), IPHeaderLen)
	}
	return IPHeader{
		Version:     b[0],
		TOS:         b[1],
		TotalLength: binary.BigEndian.Uint16(b[2:4]),
		ID:          binary.BigEndian.Uint16(b[4:6]),
		Flags:       binary.BigEndian.Uint16(b[6:8]),
		TTL:         b[8],
		Protocol:    b[9],
		Checksum:    binary.BigEndian.Uint16(b[10:12]),
		Src:         dottedQuad(binary.BigEndian.Uint32(b[12:16])),
		Dst:         dottedQuad(binary.BigEndian.Uint32(b[16:20])),
	}, nil
}

// DecodeHeader parses the first 8 bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("icmp header: %w (%d of %d bytes)", ErrTruncated, len(b), HeaderLen)
	}
	return Header{
		Type:     Type(b[0]),
		Code:     b[1],
		Checksum: binary.BigEndian.Uint16(b[2:4]),
		ID:       binary.BigEndian.Uint16(b[4:6]),
		Seq:      binary.BigEndian.Uint16(b[6:8]),
	}, nil
}

// EchoTimestamp returns the send time embedded at the start of an echo payload.
func EchoTimestamp(payload []byte) (float64, error) {
	if len(payload) < TimestampLen {
		return 0, fmt.Errorf("echo timestamp: %w (%d of %d bytes)", ErrTruncated, len(payload), TimestampLen)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(payload[:TimestampLen])), nil
}

func dottedQuad(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip>>24&0xff, ip>>16&0xff, ip>>8&0xff, ip&0xff)
}
