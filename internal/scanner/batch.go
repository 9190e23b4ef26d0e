package scanner

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/threatlens/internal/model"
)

// defaultConcurrency is used when WithConcurrency is not given.
const defaultConcurrency = 4

// BatchResult is the outcome of one target in a batch.
// Exactly one of Scan and Err is set.
type BatchResult struct {
	Target string
	Scan   *model.Scan
	Err    error
}

// BatchScanner scans many targets concurrently.
type BatchScanner struct {
	scanner     *Scanner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchScanner.
type BatchOption func(*BatchScanner)

// WithConcurrency sets the maximum number of concurrent scans.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchScanner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchScanner) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchScanner creates a BatchScanner that runs scans with s.
func NewBatchScanner(s *Scanner, opts ...BatchOption) *BatchScanner {
	b := &BatchScanner{
		scanner:     s,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ScanAll scans every target and returns the results in input order.
// A failed scan is recorded on its result and does not stop the batch.
// The returned error is non-nil only when ctx was cancelled; results for
// targets that never started carry the context error.
func (b *BatchScanner) ScanAll(ctx context.Context, kind model.Kind, targets []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(targets))
	err := b.ScanAllWithCallback(ctx, kind, targets, func(r BatchResult, i int) {
		results[i] = r
	})
	return results, err
}

// ScanAllWithCallback scans every target and calls callback as each scan
// finishes. callback runs on the scanning goroutine and must be safe for
// concurrent use; each index is reported exactly once.
func (b *BatchScanner) ScanAllWithCallback(
	ctx context.Context,
	kind model.Kind,
	targets []string,
	callback func(result BatchResult, index int),
) error {
	b.logger.Info("starting batch scan",
		"kind", kind,
		"total_targets", len(targets),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(BatchResult{Target: target, Err: err}, i)
				return nil
			}

			scan, err := b.scanner.Scan(ctx, kind, target)
			if err != nil {
				b.logger.Warn("scan failed", "target_index", i, "error", err)
			}
			callback(BatchResult{Target: target, Scan: scan, Err: err}, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	b.logger.Info("batch scan complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}
