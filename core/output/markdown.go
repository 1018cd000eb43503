package output

import (
	"fmt"
	"io"
	"strings"

	"restaurant-rank/core/ranking"
)

// MarkdownFormatter renders a markdown report
type MarkdownFormatter struct {
	opts Options
}

// NewMarkdownFormatter creates a markdown formatter
func NewMarkdownFormatter(opts Options) *MarkdownFormatter {
	return &MarkdownFormatter{opts: opts}
}

// Format returns FormatMarkdown
func (f *MarkdownFormatter) Format() Format { return FormatMarkdown }

// Render writes the markdown document
func (f *MarkdownFormatter) Render(w io.Writer, report *ranking.Report) error {
	var b strings.Builder

	fmt.Fprintln(&b, "# Restaurant Ranking")
	fmt.Fprintln(&b, "")
	fmt.Fprintf(&b, "**Run:** `%s`  \n", report.ID)
	fmt.Fprintf(&b, "**Profile:** %s\n", report.Profile)
	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "| Rank | ID | Service | Price | Score |")
	fmt.Fprintln(&b, "|------|----|---------|-------|-------|")
	for _, r := range report.Results {
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s |\n",
			r.Rank, escapePipes(r.ID), formatService(r.Service), r.Price.String(), formatScore(r, f.opts.Precision))
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "## Skipped")
		fmt.Fprintln(&b, "")
		for _, sk := range report.Skipped {
			fmt.Fprintf(&b, "- `%s`: %s\n", escapePipes(sk.Record.ID), sk.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
