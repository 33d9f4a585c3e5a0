package pinger

import (
	"context"
	"log/slog"
	"time"

	"pingprobe/internal/models"
	"pingprobe/internal/parser"
	"pingprobe/internal/ping"
)

// pingHostFunc is a package-level variable that defaults to the actual Ping function.
var pingHostFunc = Ping

// defaultPinger backs Ping with real sockets.
var defaultPinger = ping.New()

// FilterReachableHosts takes a slice of hosts, pings them concurrently,
// and returns a new slice containing only the hosts that responded.
// Each host gets its own timeout.
func FilterReachableHosts(ctx context.Context, hosts []string, timeout time.Duration, workers int, parentLogger *slog.Logger) []string {
	pingerLogger := parentLogger.With(slog.String("component", "pinger"))
	pingerLogger.Info("Starting reachability check.", "host_count", len(hosts), "workers", workers, "timeout", timeout)

	check := ProberFunc(func(ctx context.Context, target models.SweepTarget) models.SweepResult {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result := models.SweepResult{Timestamp: time.Now(), Target: target, Status: models.StatusUnreachable}
		if pingHostFunc(pingCtx, target.Address) { // Use the mockable function variable
			result.Status = models.StatusReachable
			pingerLogger.Debug("Host is reachable.", "host", target.Address)
		} else {
			pingerLogger.Debug("Host is unreachable or timed out, skipping.", "host", target.Address)
		}
		return result
	})

	results := make(chan models.SweepResult, len(hosts))
	Sweep(ctx, parser.CreateTargets(hosts, ping.DefaultSize), SweepOptions{Workers: workers, QueueSize: len(hosts) + 1}, check, pingerLogger, results)

	reachableHosts := []string{}
	for r := range results {
		if r.Status == models.StatusReachable {
			reachableHosts = append(reachableHosts, r.Target.Address)
		}
	}
	pingerLogger.Info("Reachability check complete.", "reachable_hosts", len(reachableHosts), "total_hosts", len(hosts))
	return reachableHosts
}

// Ping returns true if host responds to a single echo request within ctx deadline.
func Ping(ctx context.Context, hostOrIP string) bool {
	if ctx.Err() != nil {
		return false
	}
	opts := ping.DefaultOptions()
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = time.Until(deadline)
		if opts.Timeout <= 0 {
			return false
		}
	}
	res, err := defaultPinger.Ping(ctx, hostOrIP, opts)
	return err == nil && res.Received
}
