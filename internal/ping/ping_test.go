package ping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pingprobe/internal/icmp"
	"pingprobe/internal/metrics"
)

func TestPing_UnitConversion(t *testing.T) {
	now := fixedClock(time.Unix(2000, 0))
	ping := func(unit Unit) Result {
		conn := &fakeConn{mode: ModeDatagram, port: 40000}
		conn.reply = echoReplyTo(t, 125*time.Millisecond, 40000)
		p := newTestPinger(conn, WithClock(now))
		opts := DefaultOptions()
		opts.Unit = unit
		res, err := p.Ping(context.Background(), "gateway.test", opts)
		if err != nil {
			t.Fatalf("Ping(%s) error = %v", unit, err)
		}
		if !res.Received {
			t.Fatalf("Ping(%s) got no reply", unit)
		}
		if conn.closed != 1 {
			t.Errorf("socket closed %d times, want 1", conn.closed)
		}
		return res
	}

	s := ping(UnitSeconds)
	ms := ping(UnitMilliseconds)
	if s.Value != 0.125 {
		t.Errorf("seconds = %v, want 0.125", s.Value)
	}
	if ms.Value != s.Value*1000 {
		t.Errorf("milliseconds = %v, want %v", ms.Value, s.Value*1000)
	}
	if ms.Unit != UnitMilliseconds {
		t.Errorf("Unit = %q, want ms", ms.Unit)
	}
}

func TestPing_ClassifiedErrorsCollapse(t *testing.T) {
	tests := []struct {
		name string
		dest string
		conn *fakeConn
	}{
		{name: "Unknown host", dest: "no-such-host.invalid", conn: &fakeConn{mode: ModeDatagram}},
		{name: "Timeout", dest: "gateway.test", conn: &fakeConn{mode: ModeDatagram}},
		{name: "Host unreachable", dest: "gateway.test", conn: &fakeConn{
			mode:    ModeDatagram,
			inbound: [][]byte{icmpMessage(t, 3, 1, 0, 0, nil)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Timeout = 20 * time.Millisecond
			res, err := newTestPinger(tt.conn).Ping(context.Background(), tt.dest, opts)
			if err != nil {
				t.Fatalf("Ping() error = %v, want nil", err)
			}
			if res.Received {
				t.Errorf("Received = true, want false")
			}
			if tt.conn.closed != 1 {
				t.Errorf("socket closed %d times, want 1", tt.conn.closed)
			}
		})
	}
}

func TestPing_LocalFailuresPropagate(t *testing.T) {
	t.Run("Open", func(t *testing.T) {
		p := New(WithOpener(func(Mode) (Conn, error) { return nil, errors.New("operation not permitted") }))
		if _, err := p.Ping(context.Background(), "192.0.2.1", DefaultOptions()); !errors.Is(err, &Error{Kind: KindIO}) {
			t.Errorf("Ping() error = %v, want io error", err)
		}
	})
	t.Run("Bind", func(t *testing.T) {
		conn := &fakeConn{mode: ModeDatagram, bindErr: errors.New("no such device")}
		opts := DefaultOptions()
		opts.Interface = "nope0"
		if _, err := newTestPinger(conn).Ping(context.Background(), "192.0.2.1", opts); !errors.Is(err, &Error{Kind: KindConfig}) {
			t.Errorf("Ping() error = %v, want config error", err)
		}
	})
	t.Run("Send", func(t *testing.T) {
		conn := &fakeConn{mode: ModeDatagram, sendErr: errors.New("message too long")}
		if _, err := newTestPinger(conn).Ping(context.Background(), "192.0.2.1", DefaultOptions()); err == nil {
			t.Errorf("Ping() error = nil, want send failure")
		}
		if conn.closed != 1 {
			t.Errorf("socket closed %d times, want 1", conn.closed)
		}
	})
}

func TestProbe_TypedError(t *testing.T) {
	conn := &fakeConn{mode: ModeDatagram, inbound: [][]byte{icmpMessage(t, 11, 0, 0, 0, nil)}}
	_, err := newTestPinger(conn).Probe(context.Background(), "gateway.test", DefaultOptions())
	if !errors.Is(err, ErrTTLExpired) {
		t.Errorf("Probe() error = %v, want ttl expired", err)
	}
}

func TestProbe_RecordsMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	conn := &fakeConn{mode: ModeDatagram, port: 40000}
	conn.reply = echoReplyTo(t, 10*time.Millisecond, 40000)
	p := newTestPinger(conn, WithMetrics(m), WithClock(fixedClock(time.Unix(2000, 0))))

	if _, err := p.Probe(context.Background(), "gateway.test", DefaultOptions()); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	opts := DefaultOptions()
	opts.Timeout = 10 * time.Millisecond
	_, _ = p.Probe(context.Background(), "no-such-host.invalid", opts)

	if got := testutil.ToFloat64(m.PingsTotal.WithLabelValues("reply")); got != 1 {
		t.Errorf("reply count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PingsTotal.WithLabelValues("host_unknown")); got != 1 {
		t.Errorf("host_unknown count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SocketOpens.WithLabelValues("dgram")); got != 2 {
		t.Errorf("dgram opens = %v, want 2", got)
	}
}

func TestSendPing(t *testing.T) {
	t.Run("Reply", func(t *testing.T) {
		conn := &fakeConn{mode: ModeDatagram, port: 40000}
		conn.reply = echoReplyTo(t, 2*time.Millisecond, 40000)
		p := newTestPinger(conn, WithClock(fixedClock(time.Date(2024, 5, 1, 9, 4, 7, 123456000, time.UTC))))

		rec, err := p.SendPing(context.Background(), "gateway.test", 64)
		if err != nil {
			t.Fatalf("SendPing() error = %v", err)
		}
		if rec.Address != "gateway.test" || rec.Size != 64 {
			t.Errorf("record = %+v, want address and size echoed", rec)
		}
		if rec.DurationMS == nil {
			t.Fatalf("DurationMS = nil, want a value")
		}
		if *rec.DurationMS < 1.9 || *rec.DurationMS > 2.1 {
			t.Errorf("DurationMS = %v, want about 2", *rec.DurationMS)
		}
		if rec.CapturedAt != "09:04:07:123456" {
			t.Errorf("CapturedAt = %q, want 09:04:07:123456", rec.CapturedAt)
		}
		if got := len(conn.sent[0]); got != 64 {
			t.Errorf("packet length = %d, want 64", got)
		}
	})

	t.Run("Dropped", func(t *testing.T) {
		conn := &fakeConn{mode: ModeDatagram, port: 40000}
		p := newTestPinger(conn)

		start := time.Now()
		rec, err := p.SendPing(context.Background(), "gateway.test", 120)
		if err != nil {
			t.Fatalf("SendPing() error = %v", err)
		}
		if rec.DurationMS != nil {
			t.Errorf("DurationMS = %v, want nil", *rec.DurationMS)
		}
		if rec.Size != 120 {
			t.Errorf("Size = %d, want 120", rec.Size)
		}
		if elapsed := time.Since(start); elapsed < sendPingTimeout || elapsed > sendPingTimeout+300*time.Millisecond {
			t.Errorf("SendPing() took %v, want about %v", elapsed, sendPingTimeout)
		}
		if got := len(conn.sent[0]); got != 120 {
			t.Errorf("packet length = %d, want 120", got)
		}
	})

	t.Run("Tiny size still carries a timestamp", func(t *testing.T) {
		conn := &fakeConn{mode: ModeDatagram, port: 40000}
		conn.reply = echoReplyTo(t, time.Millisecond, 40000)
		p := newTestPinger(conn, WithClock(fixedClock(time.Unix(2000, 0))))
		rec, err := p.SendPing(context.Background(), "gateway.test", 4)
		if err != nil {
			t.Fatalf("SendPing() error = %v", err)
		}
		if rec.Size != 4 || rec.DurationMS == nil {
			t.Errorf("record = %+v, want size 4 with a duration", rec)
		}
		if got := len(conn.sent[0]); got != icmp.HeaderLen+icmp.TimestampLen {
			t.Errorf("packet length = %d, want %d", got, icmp.HeaderLen+icmp.TimestampLen)
		}
	})
}
