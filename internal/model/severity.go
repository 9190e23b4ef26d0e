package model

import "strings"

// Severity ranks a threat level label.
//
// Threat levels arrive from the model as free-form labels ("low", "High",
// "severe", ...). Severity maps that open set onto an ordered scale so that
// reports can be sorted, coloured and summarised.
type Severity int

const (
	// SeverityInfo indicates the target was judged safe or harmless.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor signals that rarely need action.
	SeverityLow

	// SeverityMedium indicates signals that warrant caution.
	// Unrecognised labels rank here.
	SeverityMedium

	// SeverityHigh indicates a likely scam or phishing attempt.
	SeverityHigh

	// SeverityCritical indicates an almost certain scam or phishing attempt.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// labelSeverity maps known threat level labels to their severity.
var labelSeverity = map[string]Severity{
	"safe":     SeverityInfo,
	"none":     SeverityInfo,
	"info":     SeverityInfo,
	"minimal":  SeverityLow,
	"low":      SeverityLow,
	"medium":   SeverityMedium,
	"moderate": SeverityMedium,
	"elevated": SeverityMedium,
	"high":     SeverityHigh,
	"critical": SeverityCritical,
	"severe":   SeverityCritical,
	"extreme":  SeverityCritical,
}

// ParseSeverity ranks a threat level label. Matching is case-insensitive and
// ignores surrounding whitespace. Unknown labels rank as SeverityMedium.
func ParseSeverity(label string) Severity {
	if s, ok := labelSeverity[strings.ToLower(strings.TrimSpace(label))]; ok {
		return s
	}
	return SeverityMedium
}

// SeverityInfoText contains user-facing guidance for a severity level.
type SeverityInfoText struct {
	Severity Severity
	Summary  string
	Advice   string
}

var severityGuidance = map[Severity]SeverityInfoText{
	SeverityCritical: {
		Severity: SeverityCritical,
		Summary:  "This is almost certainly a scam or phishing attempt.",
		Advice:   "Do not interact. Report it and delete it.",
	},
	SeverityHigh: {
		Severity: SeverityHigh,
		Summary:  "Strong fraud indicators were found.",
		Advice:   "Avoid this target and verify through an official channel.",
	},
	SeverityMedium: {
		Severity: SeverityMedium,
		Summary:  "Some suspicious signals were found.",
		Advice:   "Proceed only after verifying the source.",
	},
	SeverityLow: {
		Severity: SeverityLow,
		Summary:  "Only minor signals were found.",
		Advice:   "Stay alert for unexpected requests.",
	},
	SeverityInfo: {
		Severity: SeverityInfo,
		Summary:  "No threat indicators were found.",
		Advice:   "No action needed.",
	},
}

// GetSeverityInfo returns the guidance text for a severity level.
// Unknown levels get the medium guidance.
func GetSeverityInfo(s Severity) SeverityInfoText {
	if info, ok := severityGuidance[s]; ok {
		return info
	}
	return severityGuidance[SeverityMedium]
}
