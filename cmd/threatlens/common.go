package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/threatlens/internal/completion"
	"github.com/nao1215/threatlens/internal/config"
	"github.com/nao1215/threatlens/internal/database"
	tllog "github.com/nao1215/threatlens/internal/log"
	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/report"
	"github.com/nao1215/threatlens/internal/scanner"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig builds a Config from defaults, the configuration file and the
// environment. Flags are applied afterwards by each command.
//
// If the user explicitly names a config file that does not exist this is an
// error; otherwise a missing file is silently ignored.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	if f := cmd.Flags().Lookup("config"); f != nil {
		cfg.ConfigFilePath = f.Value.String()
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.ApplyTo(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.LoadEnv()
	return cfg, nil
}

// applyOutputFlags copies report flags that the user set onto cfg.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	flags := cmd.Flags()

	if flags.Changed("json") {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return err
		}
	}
	if flags.Changed("markdown") {
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return err
		}
	}
	if flags.Changed("output") {
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("no-color") {
		if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
			return err
		}
	}
	return nil
}

// applyProviderFlags copies provider related flags that the user set onto cfg.
func applyProviderFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	flags := cmd.Flags()

	if flags.Changed("provider") {
		if cfg.Provider, err = flags.GetString("provider"); err != nil {
			return err
		}
	}
	if flags.Changed("model") {
		if cfg.Model, err = flags.GetString("model"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("no-save") {
		noSave, err := flags.GetBool("no-save")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noSave
	}
	return nil
}

// addProviderFlags registers the flags read by applyProviderFlags.
func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("provider", "p", config.DefaultProvider,
		"Analysis provider: auto, gemini or heuristic")
	cmd.Flags().String("model", config.DefaultModel, "Gemini model name")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each provider call")
	cmd.Flags().Bool("no-save", false, "Do not save scans to the history database")
}

// setupLogger creates a structured logger that masks API keys and tokens.
func setupLogger(verbose bool) *slog.Logger {
	return tllog.NewSecureLogger(os.Stderr, verbose)
}

// newCompleter returns the completion provider selected by cfg.
func newCompleter(cfg *config.Config, logger *slog.Logger) (completion.Completer, error) {
	switch provider := cfg.ResolvedProvider(); provider {
	case config.ProviderGemini:
		return completion.NewGeminiClient(cfg.APIKey,
			completion.WithModel(cfg.Model),
			completion.WithEndpoint(cfg.Endpoint),
			completion.WithTimeout(cfg.Timeout),
			completion.WithMaxBodySize(cfg.MaxBodySize),
			completion.WithLogger(logger),
		), nil
	case config.ProviderHeuristic:
		return completion.NewHeuristicCompleter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownProvider, provider)
	}
}

// newScanner wires a completer, prompt templates and an optional observer
// into a Scanner.
func newScanner(cfg *config.Config, logger *slog.Logger, observer scanner.Observer) (*scanner.Scanner, error) {
	completer, err := newCompleter(cfg, logger)
	if err != nil {
		return nil, err
	}

	prompts, err := completion.NewPromptBuilder(
		cfg.File.PromptTemplate(model.KindURL),
		cfg.File.PromptTemplate(model.KindMessage),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt template in config file: %w", err)
	}

	opts := []scanner.Option{
		scanner.WithLogger(logger),
		scanner.WithPromptBuilder(prompts),
	}
	if observer != nil {
		opts = append(opts, scanner.WithObserver(observer))
	}
	return scanner.New(completer, opts...), nil
}

// openHistory opens the history database when saving is enabled.
// It returns nil when history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	logger.Debug("history database opened", "path", db.Path())
	return db, nil
}

// openOutput returns the report destination: cfg.ReportFile or fallback.
// The returned close function is always safe to call.
func openOutput(cfg *config.Config, fallback io.Writer) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return fallback, func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may quote private messages, so only the owner may read them.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the format selected in cfg.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.NoColor || cfg.ReportFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(output, opts...)
	}
}

// addOutputFlags registers the flags read by applyOutputFlags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false, "Disable coloured output")
}
