package model

import (
	"time"

	"github.com/google/uuid"
)

// Scan is one analysis of a URL or message: the normalized report together
// with the request metadata that produced it.
type Scan struct {
	// ID uniquely identifies the scan (UUID v4).
	ID string `json:"id"`

	// Kind is the kind of target that was scanned.
	Kind Kind `json:"kind"`

	// Target is the scanned URL or message text.
	Target string `json:"target"`

	// Source names the completion provider that produced the raw answer
	// (e.g. "gemini" or "heuristic").
	Source string `json:"source"`

	// Fallback is true when the provider's answer could not be parsed and
	// the fail-closed fallback report was used instead.
	Fallback bool `json:"fallback"`

	// Timestamp records when the scan completed.
	Timestamp time.Time `json:"timestamp"`

	// Report is the normalized analysis.
	Report ThreatReport `json:"analysis"`
}

// NewScan creates a Scan with a fresh ID and the current time.
func NewScan(kind Kind, target string, report ThreatReport) *Scan {
	return &Scan{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		Timestamp: time.Now().UTC(),
		Report:    report,
	}
}

// Severity returns the severity of the scan's report.
func (s *Scan) Severity() Severity {
	return s.Report.Severity()
}
