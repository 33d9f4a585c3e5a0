package pinger

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"pingprobe/internal/ping"
	"pingprobe/internal/testutils"
)

// TestPing opens a real ICMP socket, so it only runs where the kernel
// allows one.
func TestPing(t *testing.T) {
	conn, err := ping.OpenSocket(ping.ModeAuto)
	if err != nil {
		t.Skipf("ICMP sockets unavailable: %v", err)
	}
	conn.Close()

	tests := []struct {
		name    string
		host    string
		timeout time.Duration
		want    bool
	}{
		{name: "Loopback", host: "127.0.0.1", timeout: 2 * time.Second, want: true},
		{name: "Deadline too short", host: "127.0.0.1", timeout: time.Nanosecond, want: false},
		{name: "Unresolvable", host: "no-such-host.invalid", timeout: time.Second, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()
			if got := Ping(ctx, tt.host); got != tt.want {
				t.Errorf("Ping(%q) within %v = %v, want %v", tt.host, tt.timeout, got, tt.want)
			}
		})
	}
}

func TestPing_Engine(t *testing.T) {
	original := defaultPinger
	defer func() { defaultPinger = original }()

	tests := []struct {
		name    string
		conn    *echoConn
		host    string
		timeout time.Duration
		want    bool
	}{
		{name: "Reply", conn: &echoConn{port: 40200}, host: "up.test", timeout: time.Second, want: true},
		{name: "Silent host", conn: &echoConn{port: 40200, silent: true}, host: "up.test", timeout: 100 * time.Millisecond, want: false},
		{name: "Unknown host", conn: &echoConn{port: 40200}, host: "down.test", timeout: time.Second, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaultPinger = newEngine(tt.conn, nil)
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()
			start := time.Now()
			if got := Ping(ctx, tt.host); got != tt.want {
				t.Errorf("Ping(%q) = %v, want %v", tt.host, got, tt.want)
			}
			if elapsed := time.Since(start); elapsed > tt.timeout+250*time.Millisecond {
				t.Errorf("Ping(%q) took %v with a %v deadline", tt.host, elapsed, tt.timeout)
			}
		})
	}
}

func TestPing_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if Ping(ctx, "127.0.0.1") {
		t.Errorf("Ping() with a cancelled context = true")
	}
}

// TestFilterReachableHosts swaps pingHostFunc, so it must not run in parallel.
func TestFilterReachableHosts(t *testing.T) {
	logger, _ := testutils.SetupTestLogger()

	original := pingHostFunc
	defer func() { pingHostFunc = original }()

	tests := []struct {
		name    string
		hosts   []string
		up      map[string]bool
		delays  map[string]time.Duration
		timeout time.Duration
		workers int
		want    []string
	}{
		{name: "Empty", hosts: []string{}, timeout: time.Second, workers: 1, want: []string{}},
		{
			name:    "All up",
			hosts:   []string{"192.0.2.1", "192.0.2.2"},
			up:      map[string]bool{"192.0.2.1": true, "192.0.2.2": true},
			timeout: time.Second, workers: 2,
			want: []string{"192.0.2.1", "192.0.2.2"},
		},
		{
			name:    "All down",
			hosts:   []string{"192.0.2.1", "192.0.2.2"},
			timeout: time.Second, workers: 2,
			want: []string{},
		},
		{
			name:    "Mixed with one worker",
			hosts:   []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"},
			up:      map[string]bool{"192.0.2.1": true, "192.0.2.3": true},
			timeout: time.Second, workers: 1,
			want: []string{"192.0.2.1", "192.0.2.3"},
		},
		{
			name:    "Slow host exceeds the per-host timeout",
			hosts:   []string{"192.0.2.1", "192.0.2.50", "192.0.2.3"},
			up:      map[string]bool{"192.0.2.1": true, "192.0.2.50": true, "192.0.2.3": true},
			delays:  map[string]time.Duration{"192.0.2.50": 600 * time.Millisecond},
			timeout: 100 * time.Millisecond, workers: 3,
			want: []string{"192.0.2.1", "192.0.2.3"},
		},
		{
			name:    "Slow host within the per-host timeout",
			hosts:   []string{"192.0.2.1", "192.0.2.60"},
			up:      map[string]bool{"192.0.2.1": true, "192.0.2.60": true},
			delays:  map[string]time.Duration{"192.0.2.60": 20 * time.Millisecond},
			timeout: 500 * time.Millisecond, workers: 2,
			want: []string{"192.0.2.1", "192.0.2.60"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pingHostFunc = func(ctx context.Context, host string) bool {
				if delay, ok := tt.delays[host]; ok {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return false
					}
				}
				return ctx.Err() == nil && tt.up[host]
			}

			got := FilterReachableHosts(context.Background(), tt.hosts, tt.timeout, tt.workers, logger)
			sort.Strings(got)
			sort.Strings(tt.want)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterReachableHosts(%v, %v, %d) = %v, want %v", tt.hosts, tt.timeout, tt.workers, got, tt.want)
			}
		})
	}
}
