package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"pingprobe/internal/models"
)

// Summary counts the results written by a Reporter.
type Summary struct {
	Total       int
	Reachable   int
	Unreachable int
	Errors      int
	DryRun      int
}

func (s *Summary) add(r models.SweepResult) {
	s.Total++
	switch r.Status {
	case models.StatusReachable:
		s.Reachable++
	case models.StatusUnreachable:
		s.Unreachable++
	case models.StatusError:
		s.Errors++
	case models.StatusDryRun:
		s.DryRun++
	}
}

// Reporter handles writing sweep results to a CSV file in a separate goroutine.
type Reporter struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	resultsChan <-chan models.SweepResult
	outputFile  string
	logger      *slog.Logger

	mu      sync.Mutex
	summary Summary
	err     error
}

// New creates a new Reporter instance.
func New(ctx context.Context, wg *sync.WaitGroup, resultsChan <-chan models.SweepResult, outputFile string, logger *slog.Logger) *Reporter {
	return &Reporter{
		ctx:         ctx,
		wg:          wg,
		resultsChan: resultsChan,
		outputFile:  outputFile,
		logger:      logger.With(slog.String("component", "reporter")),
	}
}

// Run starts the reporter. It listens for results and writes them to the CSV
// until the channel is closed or the context is cancelled. On cancellation
// it writes whatever is already buffered and returns without waiting for
// more.
func (r *Reporter) Run() {
	defer r.wg.Done()
	if err := r.run(); err != nil {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}
}

func (r *Reporter) run() error {
	file, err := os.Create(r.outputFile)
	if err != nil {
		r.logger.Error("Failed to create output file.", "file", r.outputFile, "error", err)
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(models.CSVHeader()); err != nil {
		r.logger.Error("Failed to write CSV header.", "error", err)
		return fmt.Errorf("write CSV header: %w", err)
	}
	r.logger.Info("Reporter started.", "file", r.outputFile)

	for {
		select {
		case result, ok := <-r.resultsChan:
			if !ok {
				r.logger.Info("Results channel closed. Shutting down.")
				return writer.Error()
			}
			r.write(writer, result)
		case <-r.ctx.Done():
			r.logger.Info("Shutdown signal received. Draining remaining results...")
			for {
				select {
				case result, ok := <-r.resultsChan:
					if !ok {
						return writer.Error()
					}
					r.write(writer, result)
				default:
					return writer.Error()
				}
			}
		}
	}
}

func (r *Reporter) write(w *csv.Writer, result models.SweepResult) {
	if err := w.Write(result.ToCSVRow()); err != nil {
		r.logger.Error("Failed to write record.", "address", result.Target.Address, "error", err)
		return
	}
	r.mu.Lock()
	r.summary.add(result)
	r.mu.Unlock()
}

// Summary returns the counts of results written so far.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Err returns the error that stopped the reporter, if any.
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
