package ping

import (
	"fmt"
	"time"

	"pingprobe/internal/icmp"
)

// Kind identifies the cause of a failed exchange.
type Kind int

const (
	KindHostUnknown Kind = iota + 1
	KindTimeout
	KindTimeExceeded
	KindTTLExpired
	KindDestinationUnreachable
	KindHostUnreachable
	KindFraming
	KindIO
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindHostUnknown:
		return "host_unknown"
	case KindTimeout:
		return "timeout"
	case KindTimeExceeded:
		return "time_exceeded"
	case KindTTLExpired:
		return "ttl_expired"
	case KindDestinationUnreachable:
		return "destination_unreachable"
	case KindHostUnreachable:
		return "host_unreachable"
	case KindFraming:
		return "framing"
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is returned for every failed exchange. Which fields are set depends
// on Kind: Host for KindHostUnknown, Timeout for KindTimeout, IP and ICMP
// for the ICMP error messages, Op and Err for socket and framing failures.
type Error struct {
	Kind    Kind
	Host    string
	Timeout time.Duration
	IP      *icmp.IPHeader
	ICMP    *icmp.Header
	Op      string
	Err     error
}

// Sentinels for errors.Is. A refinement matches its parent as well:
// KindTTLExpired is ErrTimeExceeded and KindHostUnreachable is
// ErrDestinationUnreachable.
var (
	ErrHostUnknown            = &Error{Kind: KindHostUnknown}
	ErrTimeout                = &Error{Kind: KindTimeout}
	ErrTimeExceeded           = &Error{Kind: KindTimeExceeded}
	ErrTTLExpired             = &Error{Kind: KindTTLExpired}
	ErrDestinationUnreachable = &Error{Kind: KindDestinationUnreachable}
	ErrHostUnreachable        = &Error{Kind: KindHostUnreachable}
	ErrFraming                = &Error{Kind: KindFraming}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindHostUnknown:
		if e.Host == "" {
			return "cannot resolve: unknown host"
		}
		return fmt.Sprintf("cannot resolve: unknown host (host=%q)", e.Host)
	case KindTimeout:
		if e.Timeout == 0 {
			return "request timeout for ICMP packet"
		}
		return fmt.Sprintf("request timeout for ICMP packet (timeout=%s)", e.Timeout)
	case KindTimeExceeded:
		return "time exceeded"
	case KindTTLExpired:
		return e.withSource("time exceeded: time to live expired")
	case KindDestinationUnreachable:
		return e.withSource("destination unreachable")
	case KindHostUnreachable:
		return e.withSource("destination unreachable: host unreachable")
	case KindFraming:
		return fmt.Sprintf("malformed packet: %v", e.Err)
	case KindIO, KindConfig:
		if e.Op == "" {
			return fmt.Sprintf("icmp socket: %v", e.Err)
		}
		return fmt.Sprintf("icmp socket %s: %v", e.Op, e.Err)
	default:
		return "ping failed"
	}
}

func (e *Error) withSource(msg string) string {
	if e.IP == nil {
		return msg
	}
	return fmt.Sprintf("%s (host=%q)", msg, e.IP.Src)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	switch {
	case t.Kind == e.Kind:
		return true
	case t.Kind == KindTimeExceeded && e.Kind == KindTTLExpired:
		return true
	case t.Kind == KindDestinationUnreachable && e.Kind == KindHostUnreachable:
		return true
	}
	return false
}

// Classified reports whether the error describes the network's answer (or
// lack of one) rather than a local failure. Ping turns classified errors
// into a Result without a value.
func (e *Error) Classified() bool {
	switch e.Kind {
	case KindHostUnknown, KindTimeout, KindTimeExceeded, KindTTLExpired,
		KindDestinationUnreachable, KindHostUnreachable:
		return true
	}
	return false
}
