package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/threatlens/internal/config"
	"github.com/nao1215/threatlens/internal/database"
	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/report"
	"github.com/nao1215/threatlens/internal/scanner"
)

// NewScanCmd creates the scan command with its url and message subcommands.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan URLs or messages for scams and phishing",
		Long: `Scan analyzes URLs or messages and prints a threat report for each.

Every scan is saved to the history database unless --no-save is given.`,
	}

	cmd.AddCommand(newScanKindCmd(model.KindURL))
	cmd.AddCommand(newScanKindCmd(model.KindMessage))

	return cmd
}

// newScanKindCmd creates "scan url" or "scan message".
func newScanKindCmd(kind model.Kind) *cobra.Command {
	var cmd *cobra.Command
	switch kind {
	case model.KindURL:
		cmd = &cobra.Command{
			Use:   "url <url>...",
			Short: "Scan one or more URLs",
			Long: `Scan one or more URLs for phishing, malware and scam indicators.

Examples:
  # Scan a single URL
  threatlens scan url https://example.com/login

  # Scan several URLs, four at a time, and print JSON
  threatlens scan url --batch 4 --json https://a.example https://b.example

  # Use the offline heuristic even when GEMINI_API_KEY is set
  threatlens scan url --provider heuristic http://192.0.2.1/verify`,
			Args: cobra.MinimumNArgs(1),
		}
	default:
		cmd = &cobra.Command{
			Use:   "message [text]...",
			Short: "Scan one or more messages (stdin when no argument is given)",
			Long: `Scan one or more messages (SMS, e-mail, chat) for scam indicators.
Each argument is one message. Without arguments the whole of stdin is read as a
single message.

Examples:
  # Scan a message
  threatlens scan message "Your parcel is held, pay the fee at http://bit.ly/x"

  # Scan an e-mail body from a file
  threatlens scan message < mail.txt`,
			Args: cobra.ArbitraryArgs,
		}
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runScanCmd(cmd, kind, args)
	}

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of concurrent scans")
	addProviderFlags(cmd)
	addOutputFlags(cmd)

	return cmd
}

// runScanCmd executes a scan command.
func runScanCmd(cmd *cobra.Command, kind model.Kind, args []string) error {
	cfg, err := buildScanConfig(cmd)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	targets := args
	if len(targets) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read message from stdin: %w", err)
		}
		targets = []string{string(data)}
	}

	// Set up structured logging
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cmd, cfg, kind, targets, logger)
}

// buildScanConfig creates a Config from the config file and cobra flags.
func buildScanConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if err := applyProviderFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := applyOutputFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runScan scans every target and writes the reports.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, kind model.Kind, targets []string, logger *slog.Logger) error {
	sc, err := newScanner(cfg, logger, nil)
	if err != nil {
		return err
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	output, closeOutput, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // report already written or failed

	logger.Info("starting scan",
		"kind", kind,
		"targets", len(targets),
		"provider", sc.Source(),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	run := &scanRun{
		cfg:      cfg,
		writer:   newReportWriter(cfg, output),
		db:       db,
		progress: cmd.ErrOrStderr(),
		logger:   logger,
	}

	// Use batch scanner for parallel scanning if multiple targets
	if len(targets) > 1 && cfg.BatchSize > 1 {
		err = run.batch(ctx, sc, kind, targets)
	} else {
		err = run.sequential(ctx, sc, kind, targets)
	}
	if err != nil {
		return err
	}

	if len(targets) > 1 && !cfg.JSONReport {
		if _, err := run.writer.WriteSummary(run.scans); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	if run.failed > 0 {
		return fmt.Errorf("%d of %d scans failed", run.failed, len(targets))
	}
	return nil
}

// scanRun collects the results of one scan command.
type scanRun struct {
	cfg      *config.Config
	writer   report.Writer
	db       *database.HistoryDB
	progress io.Writer
	logger   *slog.Logger

	mu     sync.Mutex
	scans  []*model.Scan
	failed int
}

// sequential scans targets one at a time.
func (r *scanRun) sequential(ctx context.Context, sc *scanner.Scanner, kind model.Kind, targets []string) error {
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(r.progress, "Scanning %s...\n", displayTarget(target))
		startTime := time.Now()

		scan, err := sc.Scan(ctx, kind, target)
		r.handle(ctx, scan, err)
		if err == nil {
			fmt.Fprintf(r.progress, "Scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
		}
	}
	return nil
}

// batch scans targets concurrently using BatchScanner.
func (r *scanRun) batch(ctx context.Context, sc *scanner.Scanner, kind model.Kind, targets []string) error {
	fmt.Fprintf(r.progress, "Starting batch scan of %d targets (concurrency: %d)...\n",
		len(targets), r.cfg.BatchSize)
	startTime := time.Now()

	bs := scanner.NewBatchScanner(sc,
		scanner.WithConcurrency(r.cfg.BatchSize),
		scanner.WithBatchLogger(r.logger),
	)

	var done int
	err := bs.ScanAllWithCallback(ctx, kind, targets, func(result scanner.BatchResult, _ int) {
		r.mu.Lock()
		done++
		fmt.Fprintf(r.progress, "[%d/%d] %s\n", done, len(targets), displayTarget(result.Target))
		r.mu.Unlock()

		r.handle(ctx, result.Scan, result.Err)
	})

	fmt.Fprintf(r.progress, "Batch scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return err
}

// handle writes and saves one scan result. Safe for concurrent use.
func (r *scanRun) handle(ctx context.Context, scan *model.Scan, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.failed++
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(r.progress, "Scan error: %v\n", err)
		}
		return
	}

	r.scans = append(r.scans, scan)
	if _, err := r.writer.Write(scan); err != nil {
		r.logger.Error("report failed", "id", scan.ID, "error", err)
	}

	if r.db != nil {
		if err := r.db.SaveScan(ctx, scan); err != nil {
			r.logger.Error("failed to save scan", "id", scan.ID, "error", err)
		}
	}
}

// displayTarget shortens a target for progress lines.
func displayTarget(target string) string {
	target = strings.Join(strings.Fields(target), " ")
	const maxLen = 60
	if r := []rune(target); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return target
}
