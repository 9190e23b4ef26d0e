package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/threatlens/internal/config"
	"github.com/nao1215/threatlens/internal/database"
	"github.com/nao1215/threatlens/internal/model"
)

// errScanNotFound is returned when --id or --target matches no stored scan.
var errScanNotFound = errors.New("scan not found")

// NewHistoryCmd creates the history command.
// This command reads scans saved by "scan" and "serve" from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show saved scans",
		Long: `History shows scans saved in the history database.

Examples:
  # List the 20 most recent scans
  threatlens history

  # List the 5 most recent message scans as Markdown
  threatlens history --kind message --limit 5 --markdown

  # Show one scan by ID
  threatlens history --id 7d8f3a52-0c1e-4f6b-9a3d-2b5c8e1f4a90

  # Show the latest scan of a URL
  threatlens history --kind url --target https://example.com

  # Show counts by kind and threat level
  threatlens history --summary

  # Delete scans older than 30 days
  threatlens history --prune-days 30`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("id", "", "Show the scan with this ID")
	cmd.Flags().String("target", "", "Show the latest scan of this target (requires --kind)")
	cmd.Flags().StringP("kind", "k", "", "Only show scans of this kind (url or message)")
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit, "Maximum number of scans to list")
	cmd.Flags().BoolP("summary", "s", false, "Show aggregate counts instead of scans")
	cmd.Flags().Int("prune-days", 0, "Delete scans older than this many days")
	addOutputFlags(cmd)

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	id        string
	target    string
	kind      model.Kind
	limit     int
	summary   bool
	pruneDays int
}

func parseHistoryFlags(cmd *cobra.Command, cfg *config.Config) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{limit: cfg.HistoryLimit}
	var err error

	if opts.id, err = flags.GetString("id"); err != nil {
		return nil, err
	}
	if opts.target, err = flags.GetString("target"); err != nil {
		return nil, err
	}
	kind, err := flags.GetString("kind")
	if err != nil {
		return nil, err
	}
	if kind != "" {
		if opts.kind, err = model.ParseKind(kind); err != nil {
			return nil, err
		}
	}
	if flags.Changed("limit") {
		if opts.limit, err = flags.GetInt("limit"); err != nil {
			return nil, err
		}
		if opts.limit <= 0 {
			return nil, config.ErrInvalidHistoryLimit
		}
	}
	if opts.summary, err = flags.GetBool("summary"); err != nil {
		return nil, err
	}
	if opts.pruneDays, err = flags.GetInt("prune-days"); err != nil {
		return nil, err
	}
	if opts.pruneDays < 0 {
		return nil, errors.New("--prune-days must not be negative")
	}
	if opts.target != "" && opts.kind == "" {
		return nil, errors.New("--target requires --kind")
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyOutputFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Validate flags before opening the database
	opts, err := parseHistoryFlags(cmd, cfg)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	output, closeOutput, err := openOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // report already written or failed

	ctx := context.Background()

	switch {
	case opts.pruneDays > 0:
		cutoff := time.Now().AddDate(0, 0, -opts.pruneDays)
		n, err := db.DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "Deleted %d scans older than %s\n", n, cutoff.Format("2006-01-02"))
		return nil

	case opts.summary:
		summary, err := db.Summary(ctx)
		if err != nil {
			return err
		}
		if cfg.JSONReport {
			return writeSummaryJSON(output, summary)
		}
		writeSummaryText(output, summary)
		return nil

	case opts.id != "" || opts.target != "":
		var scan *model.Scan
		if opts.id != "" {
			scan, err = db.GetScan(ctx, opts.id)
		} else {
			scan, err = db.LatestForTarget(ctx, opts.kind, opts.target)
		}
		if err != nil {
			return err
		}
		if scan == nil {
			return errScanNotFound
		}
		_, err = newReportWriter(cfg, output).Write(scan)
		return err

	default:
		scans, err := db.ListScans(ctx, database.Filter{Kind: opts.kind, Limit: opts.limit})
		if err != nil {
			return err
		}
		_, err = newReportWriter(cfg, output).WriteSummary(scans)
		return err
	}
}

// historySummaryJSON is the JSON form of database.Summary.
type historySummaryJSON struct {
	Total         int            `json:"total"`
	Fallbacks     int            `json:"fallbacks"`
	ByKind        map[string]int `json:"byKind"`
	ByThreatLevel map[string]int `json:"byThreatLevel"`
	Oldest        *time.Time     `json:"oldest,omitempty"`
	Newest        *time.Time     `json:"newest,omitempty"`
}

func writeSummaryJSON(w io.Writer, s *database.Summary) error {
	out := historySummaryJSON{
		Total:         s.Total,
		Fallbacks:     s.Fallbacks,
		ByKind:        make(map[string]int, len(s.ByKind)),
		ByThreatLevel: s.ByThreatLevel,
	}
	for k, n := range s.ByKind {
		out.ByKind[k.String()] = n
	}
	if !s.Oldest.IsZero() {
		out.Oldest = &s.Oldest
		out.Newest = &s.Newest
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func writeSummaryText(w io.Writer, s *database.Summary) {
	fmt.Fprintf(w, "Scans:      %d (%d fallback)\n", s.Total, s.Fallbacks)
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "Oldest:     %s\n", s.Oldest.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Newest:     %s\n", s.Newest.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\nBy kind:")
	for _, k := range model.Kinds() {
		fmt.Fprintf(w, "  %-10s %d\n", k, s.ByKind[k])
	}

	levels := make([]string, 0, len(s.ByThreatLevel))
	for level := range s.ByThreatLevel {
		levels = append(levels, level)
	}
	// Most severe first, then alphabetically
	sort.Slice(levels, func(i, j int) bool {
		si, sj := model.ParseSeverity(levels[i]), model.ParseSeverity(levels[j])
		if si != sj {
			return si > sj
		}
		return levels[i] < levels[j]
	})

	fmt.Fprintln(w, "\nBy threat level:")
	for _, level := range levels {
		fmt.Fprintf(w, "  %-10s %d\n", level, s.ByThreatLevel[level])
	}
}
