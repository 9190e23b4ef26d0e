package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/threatlens/internal/model"
)

// JSONWriter outputs scans in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs a single scan, with the normalized report under "analysis".
func (w *JSONWriter) Write(scan *model.Scan) (int, error) {
	return w.writeJSON(scan)
}

// WriteSummary outputs the scans together with aggregate counts.
func (w *JSONWriter) WriteSummary(scans []*model.Scan) (int, error) {
	return w.writeJSON(NewJSONSummary(scans))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONSummary wraps several scans with aggregate counts.
type JSONSummary struct {
	Total      int            `json:"total"`
	Unsafe     int            `json:"unsafe"`
	Fallbacks  int            `json:"fallbacks"`
	BySeverity map[string]int `json:"bySeverity"`
	Scans      []*model.Scan  `json:"scans"`
}

// NewJSONSummary builds a JSONSummary. Severity keys are lower-case labels.
func NewJSONSummary(scans []*model.Scan) *JSONSummary {
	s := Summarize(scans)
	bySeverity := make(map[string]int, len(severitiesDesc))
	for _, sev := range severitiesDesc {
		bySeverity[lowerLabel(sev)] = s.BySeverity[sev]
	}
	out := make([]*model.Scan, 0, len(scans))
	for _, scan := range scans {
		if scan != nil {
			out = append(out, scan)
		}
	}
	return &JSONSummary{
		Total:      s.Total,
		Unsafe:     s.Unsafe,
		Fallbacks:  s.Fallbacks,
		BySeverity: bySeverity,
		Scans:      out,
	}
}

func lowerLabel(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "critical"
	case model.SeverityHigh:
		return "high"
	case model.SeverityMedium:
		return "medium"
	case model.SeverityLow:
		return "low"
	default:
		return "info"
	}
}
