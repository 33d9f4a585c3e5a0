package pinger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pingprobe/internal/metrics"
	"pingprobe/internal/models"
)

// task is one queued target and its position in the sweep input.
type task struct {
	index  int
	target models.SweepTarget
}

// Worker is a goroutine that pulls targets from a queue, probes them, and sends results.
// A completed target's index is passed to done once its result is delivered.
func Worker(ctx context.Context, wg *sync.WaitGroup, id int, parentLogger *slog.Logger, p Prober, tasks <-chan task, results chan<- models.SweepResult, limiter *rate.Limiter, dryRun bool, m *metrics.Metrics, done func(index int)) {
	defer wg.Done()
	// Create a child logger for this specific worker
	workerLogger := parentLogger.With(slog.Int("worker_id", id))
	workerLogger.Debug("Worker started.")

	for {
		select {
		case t, ok := <-tasks:
			if !ok {
				workerLogger.Debug("Task channel closed. Shutting down.")
				return
			}

			var result models.SweepResult
			if dryRun {
				workerLogger.Info("Dry run for target", "address", t.target.Address, "size", t.target.Size)
				result = models.SweepResult{
					Timestamp: time.Now(),
					Target:    t.target,
					Status:    models.StatusDryRun,
				}
			} else {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						workerLogger.Info("Shutdown signal received while paced. Exiting.", "address", t.target.Address)
						return
					}
				}
				workerLogger.Debug("Probing target", "address", t.target.Address, "size", t.target.Size)
				finish := m.RecordSweepProbe()
				result = p.Probe(ctx, t.target)
				finish(result.Status == models.StatusReachable)
				if ctx.Err() != nil && result.Status == models.StatusError {
					// Interrupted, not failed: leave it for the checkpoint.
					workerLogger.Debug("Probe interrupted by shutdown.", "address", t.target.Address)
					return
				}
				workerLogger.Debug("Probe result status", "address", t.target.Address, "status", result.Status, "rtt_ms", result.RTT.Seconds()*1000)
			}

			select {
			case results <- result:
				done(t.index)
			case <-ctx.Done():
				workerLogger.Warn("Context canceled. Dropping result for target.", "address", t.target.Address)
				return
			}
		case <-ctx.Done():
			workerLogger.Info("Shutdown signal received. Exiting.")
			return
		}
	}
}
