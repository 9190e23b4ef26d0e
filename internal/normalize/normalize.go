package normalize

import (
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/nao1215/threatlens/internal/model"
)

// Outcome tells which path produced a report.
type Outcome int

const (
	// OutcomeParsed means a JSON object was decoded from the input and the
	// report was built from its fields (with per-field defaults).
	OutcomeParsed Outcome = iota

	// OutcomeFallback means no JSON object could be decoded and the
	// fail-closed fallback report was returned.
	OutcomeFallback
)

// String returns the outcome name used in logs and metrics labels.
func (o Outcome) String() string {
	if o == OutcomeFallback {
		return "fallback"
	}
	return "parsed"
}

var (
	// fencePattern matches a triple-backtick fence, optionally tagged json
	// and optionally followed by a newline.
	fencePattern = regexp.MustCompile("```(?:json)?\n?")

	// leadingJSONToken matches a bare "json" language tag left at the start.
	leadingJSONToken = regexp.MustCompile(`^json\s*`)
)

// Normalizer converts raw model output into typed threat reports.
type Normalizer struct {
	logger *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize is a convenience wrapper around a default Normalizer.
func Normalize(rawText string, kind model.Kind) model.ThreatReport {
	return New().Normalize(rawText, kind)
}

// Normalize returns the threat report for rawText using the schema of kind.
// Kinds other than model.KindMessage use the url schema.
func (n *Normalizer) Normalize(rawText string, kind model.Kind) model.ThreatReport {
	report, _ := n.Parse(rawText, kind)
	return report
}

// Parse is like Normalize but also reports whether the fallback was used.
func (n *Normalizer) Parse(rawText string, kind model.Kind) (model.ThreatReport, Outcome) {
	if kind != model.KindMessage {
		kind = model.KindURL
	}
	n.logger.Debug("normalizing model output", "kind", kind, "raw", rawText)

	report, outcome := decode(rawText, kind)

	n.logger.Debug("normalized model output",
		"kind", kind,
		"outcome", outcome,
		"safe", report.Safe,
		"threat_level", report.ThreatLevel,
		"confidence", report.Confidence,
	)
	return report, outcome
}

func decode(rawText string, kind model.Kind) (model.ThreatReport, Outcome) {
	span, ok := extractObject(clean(rawText))
	if !ok {
		return model.FallbackReport(kind), OutcomeFallback
	}

	// Numbers stay json.Number so one out-of-range value only defaults its field.
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return model.FallbackReport(kind), OutcomeFallback
	}
	if dec.InputOffset() != int64(len(span)) {
		return model.FallbackReport(kind), OutcomeFallback
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return model.FallbackReport(kind), OutcomeFallback
	}
	return buildReport(obj, kind), OutcomeParsed
}

// clean strips code fences and a leading json token.
func clean(rawText string) string {
	text := strings.TrimSpace(rawText)
	text = fencePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = leadingJSONToken.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// extractObject returns the span from the first '{' to the last '}'.
// Multiple objects collapse into one span, which then fails to decode.
func extractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func buildReport(obj map[string]any, kind model.Kind) model.ThreatReport {
	report := model.ThreatReport{
		Kind:            kind,
		Safe:            boolTrue(obj["safe"]),
		ThreatLevel:     stringOr(obj["threatLevel"], model.DefaultThreatLevel),
		Threats:         stringsOr(obj["threats"], model.DefaultThreats),
		Confidence:      numberOr(obj["confidence"], model.DefaultConfidence),
		Recommendations: stringsOr(obj["recommendations"], model.DefaultRecommendations),
	}

	if kind == model.KindMessage {
		if s, ok := obj["scamType"].(string); ok {
			report.ScamType = &s
		}
		return report
	}

	report.Category = stringOr(obj["category"], model.DefaultCategory)
	report.Details = detailsOf(obj["details"])
	return report
}

func detailsOf(v any) *model.URLDetails {
	d, ok := v.(map[string]any)
	if !ok {
		return model.DefaultDetails()
	}
	return &model.URLDetails{
		DomainAnalysis: stringOr(d["domainAnalysis"], model.DefaultDomainAnalysis),
		ContentRisks:   stringOr(d["contentRisks"], model.DefaultContentRisks),
		UserAction:     stringOr(d["userAction"], model.DefaultUserAction),
	}
}

func boolTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// stringOr returns v when it is a JSON string, including the empty string.
func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// numberOr returns v as a float64 when it is a JSON number that fits.
func numberOr(v any, def float64) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return def
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return def
	}
	return f
}

// stringsOr returns v as a string slice when it is an array of strings.
// An empty array is kept; any non-string element rejects the whole array.
func stringsOr(v any, def func() []string) []string {
	arr, ok := v.([]any)
	if !ok {
		return def()
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return def()
		}
		out = append(out, s)
	}
	return out
}
