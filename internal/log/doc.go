// Package log provides slog loggers that keep credentials and oversized
// model output out of log files.
//
// The SecureHandler wraps any slog.Handler and rewrites attributes before
// they reach it:
//   - Values under credential-like keys (x-goog-api-key, authorization, token)
//     are replaced with MaskValue.
//   - Values that look like secrets (Google API keys, bearer tokens, JWTs)
//     are masked regardless of key. Google API keys embedded in longer text,
//     such as request URLs in error messages, are masked in place.
//   - String values longer than the configured limit are cut and suffixed
//     with the number of dropped bytes. Raw model answers can be large.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("calling model", "x-goog-api-key", key) // logged as ***REDACTED***
//	slog.SetDefault(logger)
package log
