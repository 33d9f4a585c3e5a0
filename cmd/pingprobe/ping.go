package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pingprobe/internal/metrics"
	"pingprobe/internal/ping"
)

func pingCmd(g *globalFlags) *cobra.Command {
	var sizeStr string

	cmd := &cobra.Command{
		Use:   "ping <address>",
		Short: "Send one echo request and print the record as JSON",
		Long: `Send one echo request with a 0.5s timeout. The size counts the 8-byte
ICMP header. duration_ms is null when no reply arrived.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := parseSize(sizeStr)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			p := ping.New(ping.WithLogger(log))
			rec, err := p.SendPing(cmd.Context(), args[0], size)
			if err != nil {
				return fmt.Errorf("ping %s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), rec, isTerminal(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVarP(&sizeStr, "size", "s", "64", "Packet size including the ICMP header (e.g. 64, 1KiB)")
	return cmd
}

func probeCmd(g *globalFlags) *cobra.Command {
	var (
		timeout   time.Duration
		unit      string
		seq       uint16
		sizeStr   string
		iface     string
		mode      string
		metricsTo string
	)

	cmd := &cobra.Command{
		Use:   "probe <address>",
		Short: "Run one fully configurable echo exchange",
		Long: `Run one echo exchange with explicit timeout, unit, sequence, payload
size, interface and socket mode. Prints {"value":...,"unit":...,"received":...}.
Socket and bind failures are reported as errors; an unanswered probe is not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			opts := cfg.PingOptions()
			flags := cmd.Flags()
			if flags.Changed("timeout") {
				opts.Timeout = timeout
			}
			if flags.Changed("unit") {
				if opts.Unit, err = ping.ParseUnit(unit); err != nil {
					return err
				}
			}
			if flags.Changed("seq") {
				opts.Seq = seq
			}
			if flags.Changed("size") {
				if opts.Size, err = parseSize(sizeStr); err != nil {
					return err
				}
			}
			if flags.Changed("interface") {
				opts.Interface = iface
			}
			if flags.Changed("mode") {
				if opts.Mode, err = ping.ParseMode(mode); err != nil {
					return err
				}
			}
			if opts.Timeout <= 0 {
				return fmt.Errorf("--timeout must be positive")
			}

			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			m := metrics.New()
			p := ping.New(ping.WithLogger(log), ping.WithMetrics(m))
			res, err := p.Ping(cmd.Context(), args[0], opts)
			if err != nil {
				return fmt.Errorf("probe %s: %w", args[0], err)
			}
			if metricsTo != "" {
				if err := m.WriteTextfile(metricsTo); err != nil {
					log.Warn("Failed to write metrics file.", "file", metricsTo, "error", err)
				}
			}
			out := struct {
				Value    *float64  `json:"value"`
				Unit     ping.Unit `json:"unit"`
				Received bool      `json:"received"`
			}{Unit: res.Unit, Received: res.Received}
			if res.Received {
				out.Value = &res.Value
			}
			return writeJSON(cmd.OutOrStdout(), out, isTerminal(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", ping.DefaultTimeout, "How long to wait for the reply")
	cmd.Flags().StringVarP(&unit, "unit", "u", "s", "Unit for the round-trip time: s or ms")
	cmd.Flags().Uint16Var(&seq, "seq", 0, "Echo sequence number")
	cmd.Flags().StringVarP(&sizeStr, "size", "s", "56", "Payload size after the ICMP header")
	cmd.Flags().StringVarP(&iface, "interface", "I", "", "Bind the socket to this network interface")
	cmd.Flags().StringVar(&mode, "mode", "auto", "Socket mode: auto, raw or dgram")
	cmd.Flags().StringVar(&metricsTo, "metrics-file", "", "Write Prometheus metrics to this textfile")
	return cmd
}

// parseSize accepts plain byte counts and humanized sizes such as 1KiB.
func parseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 65507 {
		return 0, fmt.Errorf("size %s exceeds the IPv4 maximum of 65507 bytes", humanize.IBytes(n))
	}
	return int(n), nil
}
