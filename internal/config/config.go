package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "threatlens"

	// DefaultModel is the Gemini model asked for analyses.
	DefaultModel = "gemini-1.5-flash"

	// DefaultEndpoint is the base URL of the Generative Language API.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout bounds a single model request.
	// Generation usually finishes in a few seconds; long answers can take longer.
	DefaultTimeout = 30 * time.Second

	// DefaultProvider picks Gemini when an API key is available and the
	// offline heuristics otherwise.
	DefaultProvider = ProviderAuto

	// DefaultBatchSize is the number of concurrent scans when several targets are given.
	// The free Gemini tier is rate limited, so this stays small.
	DefaultBatchSize = 4

	// DefaultListenAddr is the address the HTTP API listens on.
	DefaultListenAddr = ":3000"

	// DefaultHistoryLimit is the number of scans listed by the history command and endpoint.
	DefaultHistoryLimit = 20

	// DefaultMaxBodySize limits model API responses and HTTP API request bodies.
	DefaultMaxBodySize = 1 * 1024 * 1024 // 1MB

	// APIKeyEnv is the environment variable holding the Gemini API key.
	APIKeyEnv = "GEMINI_API_KEY"
)

// Provider names accepted by the --provider flag and the config file.
const (
	ProviderAuto      = "auto"
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// Config holds all configuration options for threatlens.
// It is populated from defaults, the config file, the environment and CLI
// flags, in that order, and passed down explicitly.
type Config struct {
	// APIKey is the Gemini API key. It is never written to logs or reports.
	APIKey string

	// Model is the Gemini model name, e.g. "gemini-1.5-flash".
	Model string

	// Endpoint is the base URL of the Generative Language API.
	Endpoint string

	// Timeout bounds each model request.
	Timeout time.Duration

	// Provider selects the completion provider: auto, gemini or heuristic.
	Provider string

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of concurrent scans when processing multiple targets.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, .threatlens is searched for in the current and home directories.
	ConfigFilePath string

	// File holds the settings loaded from the configuration file, if any.
	File *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// NoColor disables ANSI colours in the simple report.
	NoColor bool

	// ReportFile is the output file path for reports; stdout when empty.
	ReportFile string

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/threatlens on Linux).
	DBDir string

	// SaveToDB indicates whether scans are saved to the history database.
	SaveToDB bool

	// ListenAddr is the address of the HTTP API.
	ListenAddr string

	// HistoryLimit is the number of scans listed by default.
	HistoryLimit int

	// MaxBodySize is the maximum number of bytes read from a model API
	// response and accepted in an HTTP API request body.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Model:        DefaultModel,
		Endpoint:     DefaultEndpoint,
		Timeout:      DefaultTimeout,
		Provider:     DefaultProvider,
		BatchSize:    DefaultBatchSize,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
		ListenAddr:   DefaultListenAddr,
		HistoryLimit: DefaultHistoryLimit,
		MaxBodySize:  DefaultMaxBodySize,
	}
}

// LoadEnv fills unset values from the environment.
func (c *Config) LoadEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(APIKeyEnv)
	}
}

// ResolvedProvider returns the provider that will actually be used.
// "auto" resolves to gemini when an API key is set and heuristic otherwise.
func (c *Config) ResolvedProvider() string {
	if c.Provider == ProviderAuto || c.Provider == "" {
		if c.APIKey != "" {
			return ProviderGemini
		}
		return ProviderHeuristic
	}
	return c.Provider
}

// XDGDataDir returns the XDG data directory for threatlens.
// On Linux: ~/.local/share/threatlens
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for threatlens.
// On Linux: ~/.config/threatlens
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	switch c.Provider {
	case ProviderAuto, ProviderHeuristic:
	case ProviderGemini:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	default:
		return ErrUnknownProvider
	}
	if c.ListenAddr == "" {
		return ErrEmptyListenAddr
	}
	if c.HistoryLimit <= 0 {
		return ErrInvalidHistoryLimit
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
