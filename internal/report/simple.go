package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/threatlens/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// colors holds one printer per severity.
	colors map[model.Severity]*color.Color

	// verbose adds scan metadata such as the ID and provider.
	verbose bool

	title cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithColor forces ANSI colours on or off. Without this option colours
// follow terminal detection (and NO_COLOR).
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range w.colors {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		colors: map[model.Severity]*color.Color{
			model.SeverityCritical: color.New(color.FgRed, color.Bold),
			model.SeverityHigh:     color.New(color.FgRed),
			model.SeverityMedium:   color.New(color.FgYellow),
			model.SeverityLow:      color.New(color.FgCyan),
			model.SeverityInfo:     color.New(color.FgGreen),
		},
		title: cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs a scan in human-readable format.
func (w *SimpleWriter) Write(scan *model.Scan) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "THREATLENS REPORT")
	w.writeHeader(&sb, scan)
	w.writeVerdict(&sb, scan)
	if scan.Report.Kind == model.KindURL && scan.Report.Details != nil {
		w.writeDetails(&sb, scan.Report.Details)
	}
	w.writeList(&sb, "THREATS", scan.Report.Threats, "No threats reported")
	w.writeList(&sb, "RECOMMENDATIONS", scan.Report.Recommendations, "No recommendations")
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs a one-line-per-scan overview with severity counts.
func (w *SimpleWriter) WriteSummary(scans []*model.Scan) (int, error) {
	var sb strings.Builder
	summary := Summarize(scans)

	w.writeBanner(&sb, "THREATLENS SUMMARY")
	w.writeSection(&sb, "SEVERITY SUMMARY")
	for _, sev := range severitiesDesc {
		fmt.Fprintf(&sb, "  %-9s %d\n", sev.String()+":", summary.BySeverity[sev])
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  TOTAL:    %d scans (%d unsafe, %d fallback)\n\n", summary.Total, summary.Unsafe, summary.Fallbacks)

	if summary.Total > 0 {
		w.writeSection(&sb, "SCANS")
		for _, s := range sortedBySeverity(scans) {
			sev := s.Severity()
			fmt.Fprintf(&sb, "  %s %-7s %s\n",
				w.colors[sev].Sprintf("[%-3s] %-8s", severityIndicator(sev), sev.String()),
				s.Kind,
				truncateString(oneLine(s.Target), 48),
			)
		}
		sb.WriteString("\n")
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, scan *model.Scan) {
	fmt.Fprintf(sb, "Target:     %s\n", oneLine(scan.Target))
	fmt.Fprintf(sb, "Kind:       %s\n", scan.Kind)
	fmt.Fprintf(sb, "Scan Date:  %s\n", scan.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if w.verbose {
		fmt.Fprintf(sb, "Scan ID:    %s\n", scan.ID)
		fmt.Fprintf(sb, "Provider:   %s\n", scan.Source)
	}
	if scan.Fallback {
		sb.WriteString("Status:     FALLBACK (model answer could not be parsed)\n")
	} else {
		sb.WriteString("Status:     Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeVerdict(sb *strings.Builder, scan *model.Scan) {
	r := scan.Report
	sev := r.Severity()

	w.writeSection(sb, "VERDICT")
	fmt.Fprintf(sb, "  %s (threat level: %s)\n", w.colors[sev].Sprintf("[%s] %s", severityIndicator(sev), sev.String()), r.ThreatLevel)
	fmt.Fprintf(sb, "  Safe:        %s\n", yesNo(r.Safe))
	fmt.Fprintf(sb, "  Confidence:  %s%%\n", formatConfidence(r.Confidence))
	if r.Kind == model.KindURL {
		fmt.Fprintf(sb, "  Category:    %s\n", w.title.String(r.Category))
	} else {
		scamType := "-"
		if r.ScamType != nil {
			scamType = w.title.String(*r.ScamType)
		}
		fmt.Fprintf(sb, "  Scam Type:   %s\n", scamType)
	}
	fmt.Fprintf(sb, "  %s\n\n", model.GetSeverityInfo(sev).Advice)
}

func (w *SimpleWriter) writeDetails(sb *strings.Builder, d *model.URLDetails) {
	w.writeSection(sb, "DETAILS")
	fmt.Fprintf(sb, "  Domain:   %s\n", d.DomainAnalysis)
	fmt.Fprintf(sb, "  Content:  %s\n", d.ContentRisks)
	fmt.Fprintf(sb, "  Action:   %s\n\n", w.title.String(d.UserAction))
}

func (w *SimpleWriter) writeList(sb *strings.Builder, title string, items []string, empty string) {
	w.writeSection(sb, title)
	if len(items) == 0 {
		fmt.Fprintf(sb, "  %s\n\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(sb, "  * %s\n", item)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by threatlens\n")
	sb.WriteString("AI analysis can be wrong. Verify through official channels.\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "ok"
	default:
		return "?"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
