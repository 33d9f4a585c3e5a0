// Package ping implements a single ICMP echo exchange over IPv4: one
// request, one bounded wait, one classified outcome.
package ping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"pingprobe/internal/metrics"
	"pingprobe/internal/models"
)

// Unit is the unit a round-trip time is reported in.
type Unit string

const (
	UnitSeconds      Unit = "s"
	UnitMilliseconds Unit = "ms"
)

// ParseUnit accepts "s" or "ms".
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return UnitSeconds, nil
	case UnitSeconds, UnitMilliseconds:
		return u, nil
	}
	return "", fmt.Errorf("unknown unit %q (must be s or ms)", s)
}

// Convert expresses d in u.
func (u Unit) Convert(d time.Duration) float64 {
	s := d.Seconds()
	if u == UnitMilliseconds {
		return s * 1000
	}
	return s
}

const (
	DefaultTimeout = 4 * time.Second
	DefaultSize    = 56

	sendPingTimeout = 500 * time.Millisecond
	// sendPingHeaderLen is subtracted from the size SendPing callers give,
	// which counts the ICMP header.
	sendPingHeaderLen = 8
)

// Options describes one ping.
type Options struct {
	Timeout   time.Duration
	Unit      Unit
	Seq       uint16
	Size      int // payload bytes after the ICMP header
	Interface string
	Mode      Mode
}

// DefaultOptions returns a 4s timeout, seconds, sequence 0 and 56 bytes.
func DefaultOptions() Options {
	return Options{
		Timeout: DefaultTimeout,
		Unit:    UnitSeconds,
		Size:    DefaultSize,
	}
}

// Result is the outcome of Ping. Received is false when no reply arrived
// or the network answered with an error; Value is then meaningless.
type Result struct {
	Value    float64
	Unit     Unit
	Received bool
}

// Resolver looks up IPv4 addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Pinger runs echo exchanges. It holds no state between calls; every field
// is a collaborator that tests may replace.
type Pinger struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	open     OpenFunc
	resolver Resolver
	now      func() time.Time
	pid      func() int
	tid      func() int
	goos     string
	idPolicy IdentifierPolicy
}

// Option configures a Pinger.
type Option func(*Pinger)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pinger) { p.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pinger) { p.metrics = m }
}

// WithOpener replaces the socket factory.
func WithOpener(open OpenFunc) Option {
	return func(p *Pinger) { p.open = open }
}

func WithResolver(r Resolver) Option {
	return func(p *Pinger) { p.resolver = r }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pinger) { p.now = now }
}

// WithIDs replaces the process and thread id sources used for identifiers.
func WithIDs(pid, tid func() int) Option {
	return func(p *Pinger) {
		p.pid = pid
		p.tid = tid
	}
}

// WithPlatform overrides runtime.GOOS in the IP header rule.
func WithPlatform(goos string) Option {
	return func(p *Pinger) { p.goos = goos }
}

func WithIdentifierPolicy(policy IdentifierPolicy) Option {
	return func(p *Pinger) { p.idPolicy = policy }
}

// New returns a Pinger using real sockets and the system resolver.
func New(opts ...Option) *Pinger {
	p := &Pinger{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		open:     OpenSocket,
		resolver: net.DefaultResolver,
		now:      time.Now,
		pid:      os.Getpid,
		tid:      threadID,
		goos:     runtime.GOOS,
		idPolicy: KernelPortPolicy,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "ping"))
	return p
}

// Probe runs one exchange and returns the round-trip time or the typed
// *Error explaining why there is none.
func (p *Pinger) Probe(ctx context.Context, dest string, opts Options) (time.Duration, error) {
	s, err := p.OpenSession(SessionOptions{Mode: opts.Mode, Interface: opts.Interface})
	if err != nil {
		return 0, err
	}
	defer s.Close()

	id := Identifier(p.pid(), p.tid())
	rtt, err := p.exchange(ctx, s, dest, id, opts)
	p.record(rtt, err)
	return rtt, err
}

func (p *Pinger) exchange(ctx context.Context, s *Session, dest string, id uint16, opts Options) (time.Duration, error) {
	if err := s.Send(ctx, dest, id, opts.Seq, opts.Size); err != nil {
		return 0, err
	}
	return s.Receive(ctx, id, opts.Seq, opts.Timeout)
}

func (p *Pinger) record(rtt time.Duration, err error) {
	if err == nil {
		p.metrics.RecordPing("reply", rtt, true)
		return
	}
	var perr *Error
	if errors.As(err, &perr) {
		p.metrics.RecordPing(perr.Kind.String(), 0, false)
		return
	}
	p.metrics.RecordPing("error", 0, false)
}

// Ping sends one echo request to dest and waits up to opts.Timeout for the
// reply.
//
// Every classified failure (unknown host, timeout, time exceeded, destination
// unreachable and their refinements) is reported as a Result with Received
// false and a nil error, so callers of Ping cannot tell those causes apart.
// Use Probe, or a Session directly, to get the typed error. Socket open,
// bind, send and framing failures are returned as errors.
func (p *Pinger) Ping(ctx context.Context, dest string, opts Options) (Result, error) {
	unit := opts.Unit
	if unit == "" {
		unit = UnitSeconds
	}

	rtt, err := p.Probe(ctx, dest, opts)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) && perr.Classified() {
			p.logger.Debug("No result.", "dest", dest, "reason", perr.Kind.String(), "error", perr)
			return Result{Unit: unit}, nil
		}
		return Result{}, err
	}
	return Result{Value: unit.Convert(rtt), Unit: unit, Received: true}, nil
}

// SendPing pings address with a 0.5s timeout and reports milliseconds.
// size counts the 8-byte ICMP header, so the payload sent is size-8 bytes;
// the record still echoes the size the caller asked for.
func (p *Pinger) SendPing(ctx context.Context, address string, size int) (models.PingRecord, error) {
	opts := Options{
		Timeout: sendPingTimeout,
		Unit:    UnitMilliseconds,
		Size:    size - sendPingHeaderLen,
	}
	res, err := p.Ping(ctx, address, opts)
	if err != nil {
		return models.PingRecord{}, err
	}

	rec := models.PingRecord{
		Address:    address,
		Size:       size,
		CapturedAt: models.FormatCapturedAt(p.now()),
	}
	if res.Received {
		ms := res.Value
		rec.DurationMS = &ms
	}
	return rec, nil
}
