package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/threatlens/internal/completion"
	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/normalize"
)

var (
	// ErrEmptyTarget is returned when the URL or message to scan is blank.
	ErrEmptyTarget = errors.New("target must not be empty")

	// ErrCompletionFailed wraps errors returned by the completion provider.
	ErrCompletionFailed = errors.New("completion failed")
)

// Observer is notified after every scan attempt. err is nil on success.
type Observer interface {
	ObserveScan(kind model.Kind, source string, outcome normalize.Outcome, elapsed time.Duration, err error)
}

// Scanner performs single scans.
type Scanner struct {
	completer  completion.Completer
	normalizer *normalize.Normalizer
	prompts    *completion.PromptBuilder
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPromptBuilder sets the prompt builder.
func WithPromptBuilder(b *completion.PromptBuilder) Option {
	return func(s *Scanner) {
		if b != nil {
			s.prompts = b
		}
	}
}

// WithObserver registers an observer for scan metrics.
func WithObserver(o Observer) Option {
	return func(s *Scanner) {
		s.observer = o
	}
}

// New creates a Scanner that asks completer for answers.
func New(completer completion.Completer, opts ...Option) *Scanner {
	s := &Scanner{
		completer: completer,
		prompts:   completion.DefaultPromptBuilder(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = normalize.New(normalize.WithLogger(s.logger))
	return s
}

// Source returns the name of the completion provider.
func (s *Scanner) Source() string {
	return s.completer.Name()
}

// Scan analyzes one target of the given kind.
func (s *Scanner) Scan(ctx context.Context, kind model.Kind, target string) (*model.Scan, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrEmptyTarget
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w (got %q)", model.ErrUnknownKind, kind)
	}

	source := s.completer.Name()
	start := time.Now()

	raw, err := s.completer.Complete(ctx, s.prompts.Build(kind, target))
	if err != nil {
		s.observe(kind, source, normalize.OutcomeFallback, time.Since(start), err)
		return nil, fmt.Errorf("%w: %s: %w", ErrCompletionFailed, source, err)
	}

	report, outcome := s.normalizer.Parse(raw, kind)

	scan := model.NewScan(kind, target, report)
	scan.Source = source
	scan.Fallback = outcome == normalize.OutcomeFallback

	elapsed := time.Since(start)
	s.observe(kind, source, outcome, elapsed, nil)

	if scan.Fallback {
		s.logger.Warn("model answer could not be parsed, using fallback report",
			"kind", kind,
			"source", source,
		)
	}
	s.logger.Debug("scan completed",
		"id", scan.ID,
		"kind", kind,
		"source", source,
		"threat_level", report.ThreatLevel,
		"elapsed", elapsed,
	)
	return scan, nil
}

func (s *Scanner) observe(kind model.Kind, source string, outcome normalize.Outcome, elapsed time.Duration, err error) {
	if s.observer != nil {
		s.observer.ObserveScan(kind, source, outcome, elapsed, err)
	}
}
