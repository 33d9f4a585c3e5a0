package ping

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"pingprobe/internal/icmp"
)

// SessionOptions configures one socket.
type SessionOptions struct {
	Mode Mode
	// Interface, when set, binds the socket to that network interface.
	Interface string
	// IPHeader overrides the platform rule for whether received datagrams
	// start with an IP header.
	IPHeader *bool
	// IDPolicy overrides the Pinger's identifier policy.
	IDPolicy IdentifierPolicy
}

// Session owns one ICMP socket for a single exchange.
type Session struct {
	p           *Pinger
	conn        Conn
	hasIPHeader bool
	idPolicy    IdentifierPolicy
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenSession opens a socket and binds it to opts.Interface. The caller
// must Close the session.
func (p *Pinger) OpenSession(opts SessionOptions) (*Session, error) {
	conn, err := p.open(opts.Mode)
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "open", Err: err}
	}
	p.metrics.RecordSocketOpen(conn.Mode().String())

	if opts.Interface != "" {
		if err := conn.BindToInterface(opts.Interface); err != nil {
			_ = conn.Close()
			return nil, &Error{Kind: KindConfig, Op: "bind", Err: fmt.Errorf("interface %q: %w", opts.Interface, err)}
		}
	}
	return p.NewSession(conn, opts), nil
}

// NewSession wraps an already opened socket. The IP header decision is made
// here, once, from the socket's mode unless opts overrides it.
func (p *Pinger) NewSession(conn Conn, opts SessionOptions) *Session {
	hasIPHeader := HasIPHeader(p.goos, conn.Mode())
	if opts.IPHeader != nil {
		hasIPHeader = *opts.IPHeader
	}
	policy := p.idPolicy
	if opts.IDPolicy != nil {
		policy = opts.IDPolicy
	}
	s := &Session{
		p:           p,
		conn:        conn,
		hasIPHeader: hasIPHeader,
		idPolicy:    policy,
		logger: p.logger.With(
			slog.String("socket_mode", conn.Mode().String()),
			slog.Bool("ip_header", hasIPHeader),
		),
	}
	s.logger.Debug("Session opened.", "interface", opts.Interface)
	return s
}

// HasIPHeader reports the session's fixed parsing decision.
func (s *Session) HasIPHeader() bool {
	return s.hasIPHeader
}

// Close releases the socket. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Send resolves dest and transmits one Echo Request whose payload is size
// bytes long.
func (s *Session) Send(ctx context.Context, dest string, id, seq uint16, size int) error {
	addr, err := s.resolve(ctx, dest)
	if err != nil {
		return err
	}

	pkt := icmp.EncodeEchoRequest(id, seq, size, unixSeconds(s.p.now()))
	if err := s.conn.SendTo(pkt, addr); err != nil {
		return &Error{Kind: KindIO, Op: "sendto", Host: dest, Err: err}
	}
	s.logger.Debug("Echo request sent.", "dest", dest, "addr", addr.String(), "id", id, "seq", seq, "bytes", len(pkt))
	return nil
}

func (s *Session) resolve(ctx context.Context, dest string) (net.IP, error) {
	if dest == "" {
		return nil, &Error{Kind: KindHostUnknown, Host: dest}
	}
	ips, err := s.p.resolver.LookupIP(ctx, "ip4", dest)
	if err != nil {
		return nil, &Error{Kind: KindHostUnknown, Host: dest, Err: err}
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, &Error{Kind: KindHostUnknown, Host: dest}
}

// Receive waits for the reply to the request sent with id and seq and
// returns its round-trip time. Unrelated datagrams are discarded; the
// deadline is fixed when Receive starts, so they cannot extend the wait.
func (s *Session) Receive(ctx context.Context, id, seq uint16, timeout time.Duration) (time.Duration, error) {
	want, err := s.idPolicy(id, s.hasIPHeader, s.conn.LocalPort)
	if err != nil {
		return 0, &Error{Kind: KindIO, Op: "getsockname", Err: err}
	}
	if want != id {
		s.logger.Debug("Expecting kernel-assigned identifier.", "sent_id", id, "expected_id", want)
	}
	corr := Correlator{ID: want, Seq: seq}

	deadline := s.p.now().Add(timeout)
	var idle time.Duration // time spent in waits that saw nothing
	buf := make([]byte, maxPacketSize)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		remaining := min(deadline.Sub(s.p.now()), timeout-idle)
		if remaining < 0 {
			remaining = 0
		}
		wait := min(remaining, waitSlice)
		ready, err := s.conn.WaitReadable(wait)
		if err != nil {
			return 0, &Error{Kind: KindIO, Op: "poll", Err: err}
		}
		if !ready {
			if wait < remaining {
				idle += wait
				continue
			}
			return 0, &Error{Kind: KindTimeout, Timeout: timeout}
		}

		received := s.p.now()
		n, err := s.conn.Recv(buf)
		if err != nil {
			return 0, &Error{Kind: KindIO, Op: "recvfrom", Err: err}
		}
		in, err := s.parse(buf[:n], received)
		if err != nil {
			return 0, err
		}

		rtt, done, err := corr.Match(in)
		if done {
			if err != nil {
				s.logger.Debug("Exchange ended by ICMP message.", "icmp", in.ICMP.String(), "error", err)
			}
			return rtt, err
		}

		if s.logger.Enabled(ctx, slog.LevelDebug) {
			s.logger.Debug("Discarded unrelated packet.", "packet", describePacket(buf[:n], s.hasIPHeader))
		}
		if !s.p.now().Before(deadline) {
			return 0, &Error{Kind: KindTimeout, Timeout: timeout}
		}
	}
}

func (s *Session) parse(b []byte, received time.Time) (Inbound, error) {
	in := Inbound{Received: received}
	off := 0
	if s.hasIPHeader {
		ip, err := icmp.DecodeIPHeader(b)
		if err != nil {
			return in, &Error{Kind: KindFraming, Err: err}
		}
		in.IP = &ip
		off = icmp.IPHeaderLen
	}
	h, err := icmp.DecodeHeader(b[off:])
	if err != nil {
		return in, &Error{Kind: KindFraming, IP: in.IP, Err: err}
	}
	in.ICMP = h
	in.Payload = b[off+icmp.HeaderLen:]
	return in, nil
}
