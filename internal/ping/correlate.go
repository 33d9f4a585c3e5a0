package ping

import (
	"time"

	"pingprobe/internal/icmp"
)

// Inbound is one parsed datagram. IP is nil when the socket strips the IP
// header.
type Inbound struct {
	IP       *icmp.IPHeader
	ICMP     icmp.Header
	Payload  []byte
	Received time.Time
}

// Correlator matches inbound messages against the outstanding request.
type Correlator struct {
	ID  uint16
	Seq uint16
}

// Match classifies p. It returns done=true for a terminal packet: a matching
// echo reply (with its round-trip time) or an ICMP error message (with the
// error). Everything else is unrelated traffic and the caller keeps reading.
func (c Correlator) Match(p Inbound) (rtt time.Duration, done bool, err error) {
	h := p.ICMP

	// Error messages carry no echo identifier; they end the attempt.
	switch h.Type {
	case icmp.TypeTimeExceeded:
		if icmp.TimeExceededCode(h.Code) == icmp.CodeTTLExpired {
			return 0, true, &Error{Kind: KindTTLExpired, IP: p.IP, ICMP: &h}
		}
		return 0, true, &Error{Kind: KindTimeExceeded, IP: p.IP, ICMP: &h}
	case icmp.TypeDestinationUnreachable:
		if icmp.DestinationUnreachableCode(h.Code) == icmp.CodeHostUnreachable {
			return 0, true, &Error{Kind: KindHostUnreachable, IP: p.IP, ICMP: &h}
		}
		return 0, true, &Error{Kind: KindDestinationUnreachable, IP: p.IP, ICMP: &h}
	}

	if h.ID == 0 || h.Type == icmp.TypeEchoRequest {
		return 0, false, nil
	}
	if h.ID != c.ID || h.Seq != c.Seq {
		return 0, false, nil
	}
	if h.Type != icmp.TypeEchoReply {
		return 0, false, nil
	}

	sent, err := icmp.EchoTimestamp(p.Payload)
	if err != nil {
		return 0, true, &Error{Kind: KindFraming, ICMP: &h, Err: err}
	}
	rtt = time.Duration((unixSeconds(p.Received) - sent) * float64(time.Second))
	if rtt < 0 {
		rtt = 0
	}
	return rtt, true, nil
}

// unixSeconds is the float form of t carried in echo payloads.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
