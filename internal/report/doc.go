// Package report renders scans for people and tools.
//
// Writers for different output formats:
//   - SimpleWriter: human-readable text for the terminal, optionally coloured
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with alerts and a mermaid pie chart
//
// Writers implement the Writer interface and can be combined with MultiWriter.
// Each writer renders a single scan (Write) or an overview of many (WriteSummary).
package report
