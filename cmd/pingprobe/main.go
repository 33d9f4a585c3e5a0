// Package main provides the CLI entry point for pingprobe.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pingprobe/config"
	"pingprobe/internal/logger"
)

var (
	// Version is set at build time
	Version = "dev"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFile    string
	logFormat  string
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "pingprobe",
		Short: "pingprobe - ICMP echo probes and reachability sweeps",
		Long: `pingprobe sends ICMP Echo Requests over IPv4 and reports round-trip
times. It works with raw sockets when privileged and falls back to
unprivileged datagram ICMP sockets otherwise.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(pingCmd(&g))
	rootCmd.AddCommand(probeCmd(&g))
	rootCmd.AddCommand(sweepCmd(&g))
	rootCmd.AddCommand(versionCmd())

	// SIGINT cancels in-flight probes; sweep checkpoints what is left.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pingprobe %s\n", Version)
		},
	}
}

// loadConfig reads the config file when one was given and applies the
// global logging flags on top.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, err
		}
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFile != "" {
		cfg.LogFile = g.logFile
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	log, closeFn, err := logger.New(cfg.LogFile, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, closeFn, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeJSON prints v as one JSON document, indented when indent is set.
func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
