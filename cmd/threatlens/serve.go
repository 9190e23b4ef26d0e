package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nao1215/threatlens/internal/config"
	"github.com/nao1215/threatlens/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the threatlens HTTP API",
		Long: `Serve runs the HTTP API until interrupted.

Routes:
  POST /api/scan/url        {"url": "..."}
  POST /api/scan/message    {"message": "..."}
  POST /api/normalize       raw model answer (?kind=url|message)
  GET  /api/history         recent scans (?kind=&limit=)
  GET  /api/history/{id}    one scan
  GET  /healthz
  GET  /metrics             Prometheus metrics

Examples:
  # Listen on the default address (:3000)
  threatlens serve

  # Listen on localhost only without saving history
  threatlens serve --listen 127.0.0.1:8080 --no-save`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr, "Listen address")
	cmd.Flags().Int("history-limit", config.DefaultHistoryLimit,
		"Default number of scans returned by /api/history")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print the startup banner")
	addProviderFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyProviderFlags(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddr, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("history-limit") {
		if cfg.HistoryLimit, err = cmd.Flags().GetInt("history-limit"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)

	// Prometheus registry shared by the scanner (scan metrics) and the server
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg)

	sc, err := newScanner(cfg, logger, metrics)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithAddr(cfg.ListenAddr),
		server.WithLogger(logger),
		server.WithMetrics(metrics, reg),
		server.WithMaxBodySize(cfg.MaxBodySize),
		server.WithHistoryLimit(cfg.HistoryLimit),
	}
	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, server.WithHistoryStore(db))
	}

	if !quiet {
		printBanner(cmd.OutOrStdout(), cfg.ListenAddr, sc.Source(), db != nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(sc, opts...).Start(ctx)
}

// printBanner prints the startup banner.
func printBanner(w io.Writer, addr, provider string, history bool) {
	fmt.Fprintln(w, figure.NewFigure("threatlens", "doom", true).String())

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
	_, _ = green.Fprintf(w, "  listening on %s  provider: %s  history: %t\n", addr, provider, history)
	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
}
