package ping

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"pingprobe/internal/icmp"
)

// fakeConn is an in-memory Conn. Datagrams queued in inbound are returned
// in order; reply, when set, turns every sent packet into more datagrams;
// flood, when set, is returned forever once inbound is empty.
type fakeConn struct {
	mu      sync.Mutex
	mode    Mode
	port    int
	bindErr error
	sendErr error

	inbound [][]byte
	reply   func(req []byte) [][]byte
	flood   []byte

	bound  string
	sent   [][]byte
	sentTo []net.IP
	waits  []time.Duration
	closed int
}

func (c *fakeConn) Mode() Mode { return c.mode }

func (c *fakeConn) BindToInterface(name string) error {
	if c.bindErr != nil {
		return c.bindErr
	}
	c.bound = name
	return nil
}

func (c *fakeConn) SendTo(b []byte, dst net.IP) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, append([]byte(nil), b...))
	c.sentTo = append(c.sentTo, dst)
	if c.reply != nil {
		c.inbound = append(c.inbound, c.reply(b)...)
	}
	return nil
}

func (c *fakeConn) WaitReadable(timeout time.Duration) (bool, error) {
	c.mu.Lock()
	c.waits = append(c.waits, timeout)
	ready := len(c.inbound) > 0 || c.flood != nil
	c.mu.Unlock()
	if ready {
		return true, nil
	}
	time.Sleep(timeout)
	return false, nil
}

func (c *fakeConn) Recv(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		if c.flood != nil {
			return copy(b, c.flood), nil
		}
		return 0, errors.New("no datagram queued")
	}
	d := c.inbound[0]
	c.inbound = c.inbound[1:]
	return copy(b, d), nil
}

func (c *fakeConn) LocalPort() (int, error) { return c.port, nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// fakeResolver answers from a fixed table.
type fakeResolver map[string]net.IP

func (r fakeResolver) LookupIP(_ context.Context, _, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if ip, ok := r[host]; ok {
		return []net.IP{ip}, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestPinger(conn *fakeConn, opts ...Option) *Pinger {
	base := []Option{
		WithOpener(func(Mode) (Conn, error) { return conn, nil }),
		WithResolver(fakeResolver{"gateway.test": net.IPv4(192, 0, 2, 1)}),
		WithIDs(func() int { return 4242 }, func() int { return 7 }),
		WithPlatform("linux"),
	}
	return New(append(base, opts...)...)
}

// icmpMessage serializes an ICMP message with gopacket.
func icmpMessage(t *testing.T, typ, code uint8, id, seq uint16, payload []byte) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true}
	l := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(typ, code), Id: id, Seq: seq}
	if err := gopacket.SerializeLayers(buf, opts, l, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize icmp: %v", err)
	}
	return append([]byte(nil), buf.Bytes()...)
}

// withIPHeader prefixes msg with an IPv4 header from src.
func withIPHeader(t *testing.T, src net.IP, msg []byte) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    src.To4(),
		DstIP:    net.IPv4(10, 0, 0, 2).To4(),
	}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(msg)); err != nil {
		t.Fatalf("serialize ipv4: %v", err)
	}
	return append([]byte(nil), buf.Bytes()...)
}

// echoReplyTo answers a sent request, shifting its embedded timestamp back
// by age and replacing the identifier when id is non-zero.
func echoReplyTo(t *testing.T, age time.Duration, id uint16) func([]byte) [][]byte {
	return func(req []byte) [][]byte {
		h, err := icmp.DecodeHeader(req)
		if err != nil {
			t.Errorf("decode sent request: %v", err)
			return nil
		}
		payload := append([]byte(nil), req[icmp.HeaderLen:]...)
		sent, _ := icmp.EchoTimestamp(payload)
		stamp := icmp.EncodeEchoRequest(0, 0, icmp.TimestampLen, sent-age.Seconds())[icmp.HeaderLen:]
		copy(payload, stamp)
		if id == 0 {
			id = h.ID
		}
		return [][]byte{icmpMessage(t, 0, 0, id, h.Seq, payload)}
	}
}

func timestampPayload(sent float64, size int) []byte {
	return icmp.EncodeEchoRequest(0, 0, size, sent)[icmp.HeaderLen:]
}
