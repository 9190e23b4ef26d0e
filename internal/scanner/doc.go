// Package scanner joins a completion provider and the normalizer into scans.
//
// A Scanner builds the analysis prompt for a target, asks its Completer for
// an answer and normalizes that answer into a model.Scan. Provider failures
// are returned as errors; malformed answers are not errors and yield the
// fail-closed fallback report instead.
//
// BatchScanner runs many scans concurrently with a bounded number of
// goroutines, keeping results in input order.
package scanner
