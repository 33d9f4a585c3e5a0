// Package icmp builds and parses the IPv4 and ICMP headers used by the
// ping engine.
package icmp

import (
	"fmt"
	"net"
)

// Type is the ICMP message type (RFC 792).
type Type uint8

const (
	TypeEchoReply              Type = 0
	TypeDestinationUnreachable Type = 3
	TypeRedirectMessage        Type = 5
	TypeEchoRequest            Type = 8
	TypeRouterAdvertisement    Type = 9
	TypeRouterSolicitation     Type = 10
	TypeTimeExceeded           Type = 11
	TypeBadIPHeader            Type = 12
	TypeTimestamp              Type = 13
	TypeTimestampReply         Type = 14
)

func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "Echo Reply"
	case TypeDestinationUnreachable:
		return "Destination Unreachable"
	case TypeRedirectMessage:
		return "Redirect Message"
	case TypeEchoRequest:
		return "Echo Request"
	case TypeRouterAdvertisement:
		return "Router Advertisement"
	case TypeRouterSolicitation:
		return "Router Solicitation"
	case TypeTimeExceeded:
		return "Time Exceeded"
	case TypeBadIPHeader:
		return "Bad IP Header"
	case TypeTimestamp:
		return "Timestamp"
	case TypeTimestampReply:
		return "Timestamp Reply"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// DestinationUnreachableCode is the code of a Destination Unreachable message.
type DestinationUnreachableCode uint8

const (
	CodeNetworkUnreachable DestinationUnreachableCode = iota
	CodeHostUnreachable
	CodeProtocolUnreachable
	CodePortUnreachable
	CodeFragmentationRequired
	CodeSourceRouteFailed
	CodeNetworkUnknown
	CodeHostUnknown
	CodeSourceHostIsolated
	CodeNetworkAdministrativelyProhibited
	CodeHostAdministrativelyProhibited
	CodeNetworkUnreachableForTOS
	CodeHostUnreachableForTOS
	CodeCommunicationAdministrativelyProhibited
	CodeHostPrecedenceViolation
	CodePrecedenceCutoffInEffect
)

var unreachableNames = [...]string{
	"network unreachable",
	"host unreachable",
	"protocol unreachable",
	"port unreachable",
	"fragmentation required",
	"source route failed",
	"network unknown",
	"host unknown",
	"source host isolated",
	"network administratively prohibited",
	"host administratively prohibited",
	"network unreachable for TOS",
	"host unreachable for TOS",
	"communication administratively prohibited",
	"host precedence violation",
	"precedence cutoff in effect",
}

func (c DestinationUnreachableCode) String() string {
	if int(c) < len(unreachableNames) {
		return unreachableNames[c]
	}
	return fmt.Sprintf("code %d", uint8(c))
}

// TimeExceededCode is the code of a Time Exceeded message.
type TimeExceededCode uint8

const (
	CodeTTLExpired TimeExceededCode = iota
	CodeFragmentReassemblyTimeExceeded
)

func (c TimeExceededCode) String() string {
	switch c {
	case CodeTTLExpired:
		return "time to live expired"
	case CodeFragmentReassemblyTimeExceeded:
		return "fragment reassembly time exceeded"
	default:
		return fmt.Sprintf("code %d", uint8(c))
	}
}

// IPHeader holds the fixed 20-byte IPv4 header. Version keeps the whole
// first byte (version and IHL) and Flags the whole flags/fragment word.
type IPHeader struct {
	Version     uint8
	TOS         uint8
	TotalLength uint16
	ID          uint16
	Flags       uint16
	TTL         uint8
	Protocol    uint8
	Checksum    uint16
	Src         string
	Dst         string
}

// SourceIP returns Src as a net.IP, or nil when it does not parse.
func (h *IPHeader) SourceIP() net.IP {
	if h == nil {
		return nil
	}
	return net.ParseIP(h.Src)
}

// Header is the fixed 8-byte ICMP header. ID and Seq are only meaningful
// for echo messages.
type Header struct {
	Type     Type
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

func (h Header) String() string {
	return fmt.Sprintf("%s code=%d id=%d seq=%d", h.Type, h.Code, h.ID, h.Seq)
}
