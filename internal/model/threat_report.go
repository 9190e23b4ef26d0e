package model

import (
	"encoding/json"
	"fmt"
)

// Field-level defaults applied by the normalizer when a value is missing or
// has the wrong type.
const (
	// DefaultThreatLevel is used when the model did not supply a threat level.
	DefaultThreatLevel = "medium"

	// DefaultConfidence is used when the model did not supply a numeric confidence.
	DefaultConfidence = 50

	// DefaultCategory is used for url reports without a category.
	DefaultCategory = "suspicious"

	// DefaultDomainAnalysis is used when details.domainAnalysis is missing.
	DefaultDomainAnalysis = "Unable to analyze domain"

	// DefaultContentRisks is used when details.contentRisks is missing.
	DefaultContentRisks = "Unknown risk level"

	// DefaultUserAction is used when details.userAction is missing.
	DefaultUserAction = "caution"
)

// DefaultThreats returns the threats list used when the model did not supply one.
func DefaultThreats() []string {
	return []string{"Analysis incomplete"}
}

// DefaultRecommendations returns the recommendations used when the model did not supply any.
func DefaultRecommendations() []string {
	return []string{"Exercise caution"}
}

// DefaultDetails returns url details with every field set to its default.
func DefaultDetails() *URLDetails {
	return &URLDetails{
		DomainAnalysis: DefaultDomainAnalysis,
		ContentRisks:   DefaultContentRisks,
		UserAction:     DefaultUserAction,
	}
}

// URLDetails carries the url-only breakdown of an analysis.
type URLDetails struct {
	// DomainAnalysis describes what is known about the domain.
	DomainAnalysis string `json:"domainAnalysis"`

	// ContentRisks describes risks in the content served at the URL.
	ContentRisks string `json:"contentRisks"`

	// UserAction is the suggested action, e.g. "proceed", "caution" or "avoid".
	UserAction string `json:"userAction"`
}

// ThreatReport is the normalized safety assessment of a scanned URL or message.
//
// It is a tagged union by Kind: Category and Details are only meaningful for
// KindURL, ScamType only for KindMessage. A report produced by the normalizer
// is always complete for its kind (see Complete).
type ThreatReport struct {
	// Kind selects the schema of this report.
	Kind Kind

	// Safe is true only when the model explicitly answered with boolean true.
	Safe bool

	// ThreatLevel is a severity label such as "low", "medium" or "high".
	// The set of labels is open; use ParseSeverity to rank it.
	ThreatLevel string

	// Threats lists the detected issues in the order the model reported them.
	Threats []string

	// Confidence is the model's confidence, nominally 0-100. It is not clamped.
	Confidence float64

	// Recommendations lists suggested user actions.
	Recommendations []string

	// Category classifies a URL (e.g. "phishing", "legitimate"). url only.
	Category string

	// Details holds the per-aspect url analysis. url only.
	Details *URLDetails

	// ScamType names the kind of scam detected in a message, or nil. message only.
	ScamType *string
}

// Complete reports whether every field required by the report's kind is populated.
// Empty strings are valid values; only nil slices and missing url details are not.
func (r ThreatReport) Complete() bool {
	if !r.Kind.Valid() || r.Threats == nil || r.Recommendations == nil {
		return false
	}
	if r.Kind == KindURL {
		return r.Details != nil
	}
	return true
}

// Severity ranks the report's threat level label.
func (r ThreatReport) Severity() Severity {
	return ParseSeverity(r.ThreatLevel)
}

// ScamTypeOrEmpty returns the scam type, or "" when none was reported.
func (r ThreatReport) ScamTypeOrEmpty() string {
	if r.ScamType == nil {
		return ""
	}
	return *r.ScamType
}

// urlReportJSON is the wire shape of a url report.
type urlReportJSON struct {
	Kind            Kind        `json:"kind"`
	Safe            bool        `json:"safe"`
	ThreatLevel     string      `json:"threatLevel"`
	Threats         []string    `json:"threats"`
	Category        string      `json:"category"`
	Confidence      float64     `json:"confidence"`
	Details         *URLDetails `json:"details"`
	Recommendations []string    `json:"recommendations"`
}

// messageReportJSON is the wire shape of a message report.
// ScamType has no omitempty: a missing scam type is encoded as null.
type messageReportJSON struct {
	Kind            Kind     `json:"kind"`
	Safe            bool     `json:"safe"`
	ThreatLevel     string   `json:"threatLevel"`
	Threats         []string `json:"threats"`
	ScamType        *string  `json:"scamType"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
}

// anyReportJSON accepts either wire shape when decoding.
type anyReportJSON struct {
	Kind            Kind        `json:"kind"`
	Safe            bool        `json:"safe"`
	ThreatLevel     string      `json:"threatLevel"`
	Threats         []string    `json:"threats"`
	Category        string      `json:"category"`
	Confidence      float64     `json:"confidence"`
	Details         *URLDetails `json:"details"`
	Recommendations []string    `json:"recommendations"`
	ScamType        *string     `json:"scamType"`
}

// MarshalJSON encodes only the fields that belong to the report's kind.
// Nil slices are encoded as empty arrays.
func (r ThreatReport) MarshalJSON() ([]byte, error) {
	threats := nonNil(r.Threats)
	recommendations := nonNil(r.Recommendations)

	switch r.Kind {
	case KindMessage:
		return json.Marshal(messageReportJSON{
			Kind:            r.Kind,
			Safe:            r.Safe,
			ThreatLevel:     r.ThreatLevel,
			Threats:         threats,
			ScamType:        r.ScamType,
			Confidence:      r.Confidence,
			Recommendations: recommendations,
		})
	case KindURL:
		return json.Marshal(urlReportJSON{
			Kind:            r.Kind,
			Safe:            r.Safe,
			ThreatLevel:     r.ThreatLevel,
			Threats:         threats,
			Category:        r.Category,
			Confidence:      r.Confidence,
			Details:         r.Details,
			Recommendations: recommendations,
		})
	default:
		return nil, fmt.Errorf("marshal threat report: %w (got %q)", ErrUnknownKind, r.Kind)
	}
}

// UnmarshalJSON decodes a report previously produced by MarshalJSON.
// It is a plain decoder for trusted data; untrusted model output must go
// through the normalize package instead.
func (r *ThreatReport) UnmarshalJSON(data []byte) error {
	var raw anyReportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Kind.Valid() {
		return fmt.Errorf("unmarshal threat report: %w (got %q)", ErrUnknownKind, raw.Kind)
	}

	*r = ThreatReport{
		Kind:            raw.Kind,
		Safe:            raw.Safe,
		ThreatLevel:     raw.ThreatLevel,
		Threats:         nonNil(raw.Threats),
		Confidence:      raw.Confidence,
		Recommendations: nonNil(raw.Recommendations),
	}
	if raw.Kind == KindURL {
		r.Category = raw.Category
		r.Details = raw.Details
	} else {
		r.ScamType = raw.ScamType
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
