// Package model defines the core data structures used throughout threatlens.
//
// This package contains the following main types:
//   - Kind: Selects which report schema applies (url or message)
//   - ThreatReport: The normalized, fully populated analysis result
//   - Scan: A ThreatReport together with the request metadata that produced it
//   - Severity: An ordered ranking of the open set of threat-level labels
//
// The models are serializable to JSON for API responses, report output and
// history storage. A ThreatReport encodes only the fields of its own kind.
package model
