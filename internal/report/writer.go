package report

import (
	"io"
	"sort"

	"github.com/nao1215/threatlens/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a single scan.
	// Returns the number of bytes written and any error encountered.
	Write(scan *model.Scan) (int, error)

	// WriteSummary outputs an overview of several scans.
	WriteSummary(scans []*model.Scan) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the scan to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(scan *model.Scan) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(scan)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(scans []*model.Scan) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(scans)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// severitiesDesc lists severities from most to least severe.
var severitiesDesc = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

// Summary contains aggregate counts over a set of scans.
type Summary struct {
	Total      int                    `json:"total"`
	Fallbacks  int                    `json:"fallbacks"`
	Unsafe     int                    `json:"unsafe"`
	BySeverity map[model.Severity]int `json:"-"`
}

// Summarize counts scans by severity.
func Summarize(scans []*model.Scan) Summary {
	s := Summary{BySeverity: make(map[model.Severity]int)}
	for _, scan := range scans {
		if scan == nil {
			continue
		}
		s.Total++
		if scan.Fallback {
			s.Fallbacks++
		}
		if !scan.Report.Safe {
			s.Unsafe++
		}
		s.BySeverity[scan.Severity()]++
	}
	return s
}

// sortedBySeverity returns scans ordered from most to least severe,
// keeping input order within a severity.
func sortedBySeverity(scans []*model.Scan) []*model.Scan {
	out := make([]*model.Scan, 0, len(scans))
	for _, s := range scans {
		if s != nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity() > out[j].Severity()
	})
	return out
}

// truncateString truncates a string to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// oneLine collapses line breaks so that message targets fit a table cell.
func oneLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
