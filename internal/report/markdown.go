package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/threatlens/internal/model"
)

// MarkdownWriter outputs scans in GitHub-flavored Markdown.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single scan in Markdown format.
func (w *MarkdownWriter) Write(scan *model.Scan) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, scan)
	w.writeAlert(md, scan.Severity())
	w.writeVerdict(md, scan)
	if scan.Report.Kind == model.KindURL && scan.Report.Details != nil {
		w.writeDetails(md, scan.Report.Details)
	}
	w.writeList(md, "Threats", scan.Report.Threats, "No threats reported.")
	w.writeList(md, "Recommendations", scan.Report.Recommendations, "No recommendations.")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs a severity overview and a table of scans.
func (w *MarkdownWriter) WriteSummary(scans []*model.Scan) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(scans)

	md.H1("ThreatLens Summary")
	md.PlainText("")

	md.H2("Severity Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(summary.BySeverity[model.SeverityCritical])},
			{"🟠 High", strconv.Itoa(summary.BySeverity[model.SeverityHigh])},
			{"🟡 Medium", strconv.Itoa(summary.BySeverity[model.SeverityMedium])},
			{"🔵 Low", strconv.Itoa(summary.BySeverity[model.SeverityLow])},
			{"🟢 Info", strconv.Itoa(summary.BySeverity[model.SeverityInfo])},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
		w.writeScanTable(md, scans)
	} else {
		md.PlainText("No scans recorded.")
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, scan *model.Scan) {
	md.H1("ThreatLens Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + truncateString(oneLine(scan.Target), 120) + "`"},
			{"Kind", scan.Kind.String()},
			{"Scan Date", scan.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Provider", scan.Source},
			{"Status", statusText(scan)},
		},
	})
	md.PlainText("")
}

func statusText(scan *model.Scan) string {
	if scan.Fallback {
		return "⚠️ Fallback (model answer could not be parsed)"
	}
	return "✅ Complete"
}

// writeAlert writes an alert matching the severity.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, sev model.Severity) {
	info := model.GetSeverityInfo(sev)
	switch sev {
	case model.SeverityCritical:
		md.Cautionf("%s %s", info.Summary, info.Advice)
	case model.SeverityHigh:
		md.Warningf("%s %s", info.Summary, info.Advice)
	case model.SeverityMedium:
		md.Importantf("%s %s", info.Summary, info.Advice)
	case model.SeverityLow:
		md.Note(info.Summary + " " + info.Advice)
	default:
		md.Tip(info.Summary + " " + info.Advice)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeVerdict(md *markdown.Markdown, scan *model.Scan) {
	r := scan.Report
	rows := [][]string{
		{"Safe", yesNo(r.Safe)},
		{"Threat Level", r.ThreatLevel},
		{"Confidence", formatConfidence(r.Confidence) + "%"},
	}
	if r.Kind == model.KindURL {
		rows = append(rows, []string{"Category", r.Category})
	} else {
		rows = append(rows, []string{"Scam Type", r.ScamTypeOrEmpty()})
	}

	md.H2("Verdict")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDetails(md *markdown.Markdown, d *model.URLDetails) {
	md.H2("Details")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Aspect", "Assessment"},
		Rows: [][]string{
			{"Domain Analysis", d.DomainAnalysis},
			{"Content Risks", d.ContentRisks},
			{"User Action", d.UserAction},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeList(md *markdown.Markdown, title string, items []string, empty string) {
	md.H2(title)
	md.PlainText("")
	if len(items) == 0 {
		md.PlainText(empty)
	} else {
		md.BulletList(items...)
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Scan Severity Distribution"),
		piechart.WithShowData(true),
	)
	for _, sev := range severitiesDesc {
		if n := summary.BySeverity[sev]; n > 0 {
			chart.LabelAndIntValue(sev.String(), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeScanTable(md *markdown.Markdown, scans []*model.Scan) {
	md.H2("Scans")
	md.PlainText("")

	rows := make([][]string, 0, len(scans))
	for _, s := range sortedBySeverity(scans) {
		rows = append(rows, []string{
			s.Severity().String(),
			s.Kind.String(),
			"`" + truncateString(oneLine(s.Target), 60) + "`",
			yesNo(s.Report.Safe),
			s.Timestamp.Format("2006-01-02 15:04"),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Kind", "Target", "Safe", "Scanned"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, s := range sortedBySeverity(scans) {
		if len(s.Report.Threats) > 0 {
			md.Details(truncateString(oneLine(s.Target), 60), "- "+strings.Join(s.Report.Threats, "\n- "))
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [threatlens](https://github.com/nao1215/threatlens)*")
}
