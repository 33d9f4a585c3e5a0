package pinger

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"pingprobe/internal/metrics"
	"pingprobe/internal/models"
)

// SweepOptions controls a sweep.
type SweepOptions struct {
	Workers   int
	QueueSize int     // task queue length, workers * 1024 when zero
	Rate      float64 // probes per second across all workers, unlimited when zero
	DryRun    bool
	Metrics   *metrics.Metrics
}

// Sweep probes every target with a pool of workers and sends one result per
// target to results, which it closes before returning. When ctx is
// cancelled it stops early and returns the targets that have no delivered
// result, in input order, so they can be checkpointed.
func Sweep(ctx context.Context, targets []models.SweepTarget, opts SweepOptions, p Prober, parentLogger *slog.Logger, results chan<- models.SweepResult) []models.SweepTarget {
	defer close(results)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = workers * 1024
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		// Burst of one keeps probes evenly spaced.
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	sweepLogger := parentLogger.With(slog.String("component", "sweep"))
	sweepLogger.Info("Starting sweep.", "targets", len(targets), "workers", workers, "rate", opts.Rate, "dry_run", opts.DryRun)

	var mu sync.Mutex
	completed := make([]bool, len(targets))
	markDone := func(i int) {
		mu.Lock()
		completed[i] = true
		mu.Unlock()
	}

	tasks := make(chan task, queueSize)
	go func() {
		defer close(tasks)
		for i, t := range targets {
			select {
			case tasks <- task{index: i, target: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go Worker(ctx, &wg, i, sweepLogger, p, tasks, results, limiter, opts.DryRun, opts.Metrics, markDone)
	}
	wg.Wait()

	var remaining []models.SweepTarget
	for i, t := range targets {
		if !completed[i] {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) > 0 {
		sweepLogger.Warn("Sweep interrupted.", "completed", len(targets)-len(remaining), "remaining", len(remaining))
	} else {
		sweepLogger.Info("Sweep complete.", "targets", len(targets))
	}
	return remaining
}
