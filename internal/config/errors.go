package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownProvider is returned for provider names other than auto, gemini and heuristic.
	ErrUnknownProvider = errors.New("unknown provider: must be auto, gemini or heuristic")

	// ErrMissingAPIKey is returned when the gemini provider is forced without an API key.
	ErrMissingAPIKey = errors.New("missing API key: set " + APIKeyEnv + " or use --provider heuristic")

	// ErrEmptyListenAddr is returned when the HTTP listen address is empty.
	ErrEmptyListenAddr = errors.New("invalid listen address: must not be empty")

	// ErrInvalidHistoryLimit is returned when the history limit is not positive.
	ErrInvalidHistoryLimit = errors.New("invalid history limit: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
