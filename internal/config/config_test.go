package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/threatlens/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Model is gemini-1.5-flash", func(t *testing.T) {
		t.Parallel()
		if cfg.Model != "gemini-1.5-flash" {
			t.Errorf("expected Model to be 'gemini-1.5-flash', got '%s'", cfg.Model)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Provider is auto", func(t *testing.T) {
		t.Parallel()
		if cfg.Provider != ProviderAuto {
			t.Errorf("expected Provider to be 'auto', got '%s'", cfg.Provider)
		}
	})

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize to be 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default ListenAddr is :3000", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddr != ":3000" {
			t.Errorf("expected ListenAddr to be ':3000', got '%s'", cfg.ListenAddr)
		}
	})

	t.Run("default config is valid", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"zero timeout returns ErrInvalidTimeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative batch size returns ErrInvalidBatchSize", func(c *Config) { c.BatchSize = -1 }, ErrInvalidBatchSize},
		{"json and markdown returns ErrConflictingReportFormats", func(c *Config) {
			c.JSONReport = true
			c.MarkdownReport = true
		}, ErrConflictingReportFormats},
		{"unknown provider returns ErrUnknownProvider", func(c *Config) { c.Provider = "openai" }, ErrUnknownProvider},
		{"gemini without key returns ErrMissingAPIKey", func(c *Config) { c.Provider = ProviderGemini }, ErrMissingAPIKey},
		{"gemini with key is valid", func(c *Config) {
			c.Provider = ProviderGemini
			c.APIKey = "test-key"
		}, nil},
		{"empty listen address returns ErrEmptyListenAddr", func(c *Config) { c.ListenAddr = "" }, ErrEmptyListenAddr},
		{"zero history limit returns ErrInvalidHistoryLimit", func(c *Config) { c.HistoryLimit = 0 }, ErrInvalidHistoryLimit},
		{"negative body size returns ErrInvalidMaxBodySize", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestResolvedProvider tests how "auto" resolves.
func TestResolvedProvider(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if got := cfg.ResolvedProvider(); got != ProviderHeuristic {
		t.Errorf("auto without key: got %q, expected %q", got, ProviderHeuristic)
	}
	cfg.APIKey = "k"
	if got := cfg.ResolvedProvider(); got != ProviderGemini {
		t.Errorf("auto with key: got %q, expected %q", got, ProviderGemini)
	}
	cfg.Provider = ProviderHeuristic
	if got := cfg.ResolvedProvider(); got != ProviderHeuristic {
		t.Errorf("explicit heuristic: got %q, expected %q", got, ProviderHeuristic)
	}
}

// TestLoadEnv tests that the API key comes from the environment.
func TestLoadEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")

	cfg := NewConfig()
	cfg.LoadEnv()
	if cfg.APIKey != "from-env" {
		t.Errorf("got %q, expected %q", cfg.APIKey, "from-env")
	}

	cfg = NewConfig()
	cfg.APIKey = "from-flag"
	cfg.LoadEnv()
	if cfg.APIKey != "from-flag" {
		t.Errorf("explicit key was overwritten: got %q", cfg.APIKey)
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.threatlens")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".threatlens")
		content := `provider: heuristic
gemini:
  model: gemini-2.0-flash
  timeout: 45s
batchSize: 8
listen: "127.0.0.1:8080"
historyLimit: 50
prompts:
  message: "Is this a scam? %s"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Gemini.Timeout != 45*time.Second {
			t.Errorf("expected timeout 45s, got %v", f.Gemini.Timeout)
		}

		cfg := NewConfig()
		f.ApplyTo(cfg)

		if cfg.Provider != ProviderHeuristic {
			t.Errorf("expected provider heuristic, got %q", cfg.Provider)
		}
		if cfg.Model != "gemini-2.0-flash" {
			t.Errorf("expected model override, got %q", cfg.Model)
		}
		if cfg.Endpoint != DefaultEndpoint {
			t.Errorf("expected default endpoint to survive, got %q", cfg.Endpoint)
		}
		if cfg.BatchSize != 8 || cfg.ListenAddr != "127.0.0.1:8080" || cfg.HistoryLimit != 50 {
			t.Errorf("unexpected overlay result: %+v", cfg)
		}
		if got := cfg.File.PromptTemplate(model.KindMessage); got != "Is this a scam? %s" {
			t.Errorf("unexpected message prompt %q", got)
		}
		if got := cfg.File.PromptTemplate(model.KindURL); got != "" {
			t.Errorf("expected empty url prompt, got %q", got)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".threatlens")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFileNil tests that a nil File is harmless.
func TestFileNil(t *testing.T) {
	t.Parallel()

	var f *File
	cfg := NewConfig()
	f.ApplyTo(cfg)
	if cfg.File != nil {
		t.Error("expected File to stay nil")
	}
	if f.PromptTemplate(model.KindURL) != "" {
		t.Error("expected empty prompt template")
	}
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("provider: auto"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if XDGDataDir() == "" {
		t.Error("expected non-empty XDG data dir")
	}
	if XDGConfigDir() == "" {
		t.Error("expected non-empty XDG config dir")
	}
}
