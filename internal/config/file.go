package config

import (
	"time"

	"github.com/nao1215/threatlens/internal/model"
)

// GeminiSettings configures the Gemini provider in the config file.
type GeminiSettings struct {
	// Model overrides the model name.
	Model string `yaml:"model,omitempty"`

	// Endpoint overrides the API base URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Timeout overrides the request timeout, e.g. "45s".
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// PromptTemplates override the built-in analysis prompts.
// Each template must contain exactly one %s, replaced by the target.
type PromptTemplates struct {
	URL     string `yaml:"url,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// File represents the structure of the .threatlens configuration file.
type File struct {
	// Provider selects the completion provider: auto, gemini or heuristic.
	Provider string `yaml:"provider,omitempty"`

	// Gemini holds Gemini provider settings. The API key is read from the
	// environment only and has no file setting.
	Gemini GeminiSettings `yaml:"gemini,omitempty"`

	// BatchSize overrides the number of concurrent scans.
	BatchSize int `yaml:"batchSize,omitempty"`

	// Listen overrides the HTTP listen address.
	Listen string `yaml:"listen,omitempty"`

	// HistoryDir overrides the history database directory.
	HistoryDir string `yaml:"historyDir,omitempty"`

	// HistoryLimit overrides the number of scans listed by default.
	HistoryLimit int `yaml:"historyLimit,omitempty"`

	// Prompts overrides the analysis prompts per kind.
	Prompts PromptTemplates `yaml:"prompts,omitempty"`
}

// ApplyTo copies every value set in the file onto cfg.
// Values left empty in the file keep cfg's current value.
func (f *File) ApplyTo(cfg *Config) {
	if f == nil {
		return
	}
	cfg.File = f
	if f.Provider != "" {
		cfg.Provider = f.Provider
	}
	if f.Gemini.Model != "" {
		cfg.Model = f.Gemini.Model
	}
	if f.Gemini.Endpoint != "" {
		cfg.Endpoint = f.Gemini.Endpoint
	}
	if f.Gemini.Timeout != 0 {
		cfg.Timeout = f.Gemini.Timeout
	}
	if f.BatchSize != 0 {
		cfg.BatchSize = f.BatchSize
	}
	if f.Listen != "" {
		cfg.ListenAddr = f.Listen
	}
	if f.HistoryDir != "" {
		cfg.DBDir = f.HistoryDir
	}
	if f.HistoryLimit != 0 {
		cfg.HistoryLimit = f.HistoryLimit
	}
}

// PromptTemplate returns the configured prompt template for kind, or "" when
// the built-in prompt should be used.
func (f *File) PromptTemplate(kind model.Kind) string {
	if f == nil {
		return ""
	}
	switch kind {
	case model.KindURL:
		return f.Prompts.URL
	case model.KindMessage:
		return f.Prompts.Message
	default:
		return ""
	}
}
