package model

// fallbackScamType is reported by the message fallback in place of a real classification.
const fallbackScamType = "unknown"

// FallbackReport returns the fail-closed report for kind.
//
// It is used when the model output could not be parsed at all. Unlike the
// field-level defaults it never leaves room for a "safe" reading: the
// confidence is low and the recommendations tell the user not to proceed.
// Every call returns a new value. Kinds other than KindMessage get the url report.
func FallbackReport(kind Kind) ThreatReport {
	if kind == KindMessage {
		scamType := fallbackScamType
		return ThreatReport{
			Kind:        KindMessage,
			Safe:        false,
			ThreatLevel: "medium",
			Threats:     []string{"Unable to complete full analysis"},
			Confidence:  30,
			ScamType:    &scamType,
			Recommendations: []string{
				"Exercise caution with this message",
				"Do not click links or reply",
				"Verify the sender through an official channel",
			},
		}
	}

	return ThreatReport{
		Kind:        KindURL,
		Safe:        false,
		ThreatLevel: "medium",
		Threats:     []string{"Unable to complete full analysis"},
		Confidence:  30,
		Category:    DefaultCategory,
		Details: &URLDetails{
			DomainAnalysis: "Analysis failed",
			ContentRisks:   "Unknown",
			UserAction:     "caution",
		},
		Recommendations: []string{
			"Exercise caution with this URL",
			"Verify the source before proceeding",
			"Do not enter personal information",
		},
	}
}
