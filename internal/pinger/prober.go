package pinger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"time"

	goping "github.com/go-ping/ping"

	"pingprobe/internal/models"
	"pingprobe/internal/ping"
)

// Prober checks one sweep target.
type Prober interface {
	Probe(ctx context.Context, target models.SweepTarget) models.SweepResult
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, target models.SweepTarget) models.SweepResult

func (f ProberFunc) Probe(ctx context.Context, target models.SweepTarget) models.SweepResult {
	return f(ctx, target)
}

// EngineProber probes with the native ICMP engine.
type EngineProber struct {
	Pinger  *ping.Pinger
	Options ping.Options
	Logger  *slog.Logger
}

// NewEngineProber creates a new instance of an EngineProber. The payload size
// in opts is replaced by each target's size.
func NewEngineProber(p *ping.Pinger, opts ping.Options, logger *slog.Logger) *EngineProber {
	return &EngineProber{Pinger: p, Options: opts, Logger: logger}
}

// Probe runs one echo exchange against target.
func (e *EngineProber) Probe(ctx context.Context, target models.SweepTarget) models.SweepResult {
	start := time.Now()
	opts := e.Options
	opts.Size = target.Size

	rtt, err := e.Pinger.Probe(ctx, target.Address, opts)
	result := models.SweepResult{Timestamp: start, Target: target, RTT: rtt}

	var perr *ping.Error
	switch {
	case err == nil:
		result.Status = models.StatusReachable
	case errors.As(err, &perr) && perr.Classified():
		result.Status = models.StatusUnreachable
		result.Reason = perr.Kind.String()
		result.RTT = 0
	default:
		result.Status = models.StatusError
		result.Error = err
		result.RTT = 0
	}
	e.Logger.Debug("Probe finished.", "backend", "native", "address", target.Address, "status", result.Status, "reason", result.Reason, "rtt_ms", result.RTT.Seconds()*1000)
	return result
}

// GoPingProber probes with github.com/go-ping/ping, one packet per target.
type GoPingProber struct {
	Timeout time.Duration
	Mode    ping.Mode
	Logger  *slog.Logger
}

// NewGoPingProber creates a new instance of a GoPingProber.
func NewGoPingProber(timeout time.Duration, mode ping.Mode, logger *slog.Logger) *GoPingProber {
	return &GoPingProber{Timeout: timeout, Mode: mode, Logger: logger}
}

func (g *GoPingProber) privileged() bool {
	switch g.Mode {
	case ping.ModeRaw:
		return true
	case ping.ModeDatagram:
		return false
	}
	return runtime.GOOS == "windows" || os.Geteuid() == 0
}

// Probe sends a single echo request and reports the first reply.
func (g *GoPingProber) Probe(ctx context.Context, target models.SweepTarget) models.SweepResult {
	start := time.Now()
	result := models.SweepResult{Timestamp: start, Target: target}

	p, err := goping.NewPinger(target.Address)
	if err != nil {
		// NewPinger resolves the address.
		result.Status = models.StatusUnreachable
		result.Reason = ping.KindHostUnknown.String()
		g.Logger.Debug("Probe finished.", "backend", "go-ping", "address", target.Address, "status", result.Status, "error", err)
		return result
	}
	p.SetNetwork("ip4")
	p.SetPrivileged(g.privileged())
	p.Count = 1
	p.Size = target.Size
	p.Timeout = g.Timeout

	done := make(chan error, 1)
	go func() { done <- p.Run() }()
	select {
	case err = <-done:
	case <-ctx.Done():
		p.Stop()
		<-done
		err = ctx.Err()
	}
	if err != nil {
		result.Status = models.StatusError
		result.Error = err
		g.Logger.Debug("Probe failed.", "backend", "go-ping", "address", target.Address, "error", err)
		return result
	}

	stats := p.Statistics()
	if stats.PacketsRecv > 0 {
		result.Status = models.StatusReachable
		result.RTT = stats.MinRtt
	} else {
		result.Status = models.StatusUnreachable
		result.Reason = ping.KindTimeout.String()
	}
	g.Logger.Debug("Probe finished.", "backend", "go-ping", "address", target.Address, "status", result.Status, "rtt_ms", result.RTT.Seconds()*1000)
	return result
}
