package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pingprobe/config"
	"pingprobe/internal/metrics"
	"pingprobe/internal/models"
	"pingprobe/internal/parser"
	"pingprobe/internal/ping"
	"pingprobe/internal/pinger"
	"pingprobe/internal/reporter"
	"pingprobe/pkg/checkpoint"
	"pingprobe/pkg/utils"
)

const defaultCheckpointFile = "checkpoint.json"

// sweepFlags are command-line overrides for the config file.
type sweepFlags struct {
	hosts       string
	timeout     time.Duration
	size        int
	iface       string
	mode        string
	backend     string
	workers     int
	queue       int
	rate        float64
	dryRun      bool
	output      string
	resume      string
	metricsFile string
}

func (f *sweepFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("hosts") {
		cfg.Hosts = f.hosts
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("size") {
		cfg.Size = f.size
	}
	if flags.Changed("interface") {
		cfg.Interface = f.iface
	}
	if flags.Changed("mode") {
		cfg.Mode = f.mode
	}
	if flags.Changed("backend") {
		cfg.Backend = f.backend
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("queue") {
		cfg.QueueSize = f.queue
	}
	if flags.Changed("rate") {
		cfg.Rate = f.rate
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if flags.Changed("output") {
		cfg.OutputFile = f.output
	}
	if flags.Changed("resume") {
		cfg.ResumeFile = f.resume
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
}

func sweepCmd(g *globalFlags) *cobra.Command {
	var f sweepFlags

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Probe many hosts and write the results to CSV",
		Long: `Probe every host from a list, CIDR block or file with a bounded pool of
workers. Interrupting a sweep writes the hosts still to do to a checkpoint
that --resume picks up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Hosts == "" && cfg.ResumeFile == "" {
				return fmt.Errorf("missing required argument: --hosts or --resume")
			}

			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			return runSweep(cmd, cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.hosts, "hosts", "", "Hosts: IPv4/CIDR/comma list/TXT or CSV file")
	flags.DurationVarP(&f.timeout, "timeout", "t", ping.DefaultTimeout, "Per-host reply timeout")
	flags.IntVarP(&f.size, "size", "s", ping.DefaultSize, "Payload size after the ICMP header")
	flags.StringVarP(&f.iface, "interface", "I", "", "Bind sockets to this network interface")
	flags.StringVar(&f.mode, "mode", "auto", "Socket mode: auto, raw or dgram")
	flags.StringVar(&f.backend, "backend", config.BackendNative, "Prober: native or go-ping")
	flags.IntVarP(&f.workers, "workers", "w", 1, "Number of concurrent workers")
	flags.IntVar(&f.queue, "queue", 0, "Bounded task queue size (default: workers * 1024)")
	flags.Float64Var(&f.rate, "rate", 0, "Maximum probes per second (0 for unlimited)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "List the targets without sending any packets")
	flags.StringVarP(&f.output, "output", "o", "results.csv", "File to save sweep results")
	flags.StringVar(&f.resume, "resume", "", "Resume a sweep from a checkpoint file")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile when done")
	return cmd
}

func runSweep(cmd *cobra.Command, cfg *config.Config, log *slog.Logger) error {
	ctx := cmd.Context()

	targets, err := loadTargets(cfg, log)
	if err != nil {
		return err
	}

	if !cfg.DryRun {
		utils.CheckPrivileges(log)
		utils.CheckFileDescriptorLimit(log, cfg.Workers)
	}

	m := metrics.New()
	prober, err := newProber(cfg, m, log)
	if err != nil {
		return err
	}

	// The reporter outlives cancellation: Sweep closes results once every
	// delivered result is in the channel, and each of those must reach the CSV.
	results := make(chan models.SweepResult, cfg.Workers)
	var wg sync.WaitGroup
	rep := reporter.New(context.WithoutCancel(ctx), &wg, results, cfg.OutputFile, log)
	wg.Add(1)
	go rep.Run()

	start := time.Now()
	remaining := pinger.Sweep(ctx, targets, pinger.SweepOptions{
		Workers:   cfg.Workers,
		QueueSize: cfg.EffectiveQueueSize(),
		Rate:      cfg.Rate,
		DryRun:    cfg.DryRun,
		Metrics:   m,
	}, prober, log, results)
	wg.Wait()

	if len(remaining) > 0 {
		path := cfg.ResumeFile
		if path == "" {
			path = defaultCheckpointFile
		}
		if err := checkpoint.SaveState(remaining, path); err != nil {
			log.Error("Failed to save checkpoint.", "file", path, "error", err)
		} else {
			log.Info("Checkpoint saved.", "file", path, "remaining", len(remaining))
		}
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("Failed to write metrics file.", "file", cfg.MetricsFile, "error", err)
		}
	}

	s := rep.Summary()
	fmt.Fprintf(cmd.OutOrStdout(), "%s of %s hosts reachable (%s unreachable, %s errors) in %s, results in %s\n",
		humanize.Comma(int64(s.Reachable)), humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(s.Unreachable)), humanize.Comma(int64(s.Errors)),
		time.Since(start).Round(time.Millisecond), cfg.OutputFile)
	if len(remaining) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "interrupted: %s hosts left for --resume\n", humanize.Comma(int64(len(remaining))))
	}
	return rep.Err()
}

// loadTargets prefers a checkpoint over the host list.
func loadTargets(cfg *config.Config, log *slog.Logger) ([]models.SweepTarget, error) {
	if cfg.ResumeFile != "" {
		targets, err := checkpoint.LoadState(cfg.ResumeFile)
		if err == nil {
			log.Info("Resuming from checkpoint.", "file", cfg.ResumeFile, "targets", len(targets))
			return targets, nil
		}
		if cfg.Hosts == "" {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		log.Warn("Checkpoint unreadable, starting from host list.", "file", cfg.ResumeFile, "error", err)
	}
	targets, err := parser.ParseTargets(cfg.Hosts, cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hosts: %w", err)
	}
	return targets, nil
}

func newProber(cfg *config.Config, m *metrics.Metrics, log *slog.Logger) (pinger.Prober, error) {
	opts := cfg.PingOptions()
	switch cfg.Backend {
	case config.BackendGoPing:
		if cfg.Interface != "" {
			log.Warn("The go-ping backend cannot bind to an interface; ignoring it.", "interface", cfg.Interface)
		}
		return pinger.NewGoPingProber(opts.Timeout, opts.Mode, log), nil
	case config.BackendNative:
		p := ping.New(ping.WithLogger(log), ping.WithMetrics(m))
		return pinger.NewEngineProber(p, opts, log), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
