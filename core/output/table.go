package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/message"

	"restaurant-rank/core/ranking"
	"restaurant-rank/core/types"
)

const rule = "─────────────────────────────────────────────────────────────────────"

// TableFormatter renders a boxed terminal table
type TableFormatter struct {
	opts Options
}

// NewTableFormatter creates a table formatter
func NewTableFormatter(opts Options) *TableFormatter {
	return &TableFormatter{opts: opts}
}

// Format returns FormatTable
func (f *TableFormatter) Format() Format { return FormatTable }

// Render writes the table
func (f *TableFormatter) Render(w io.Writer, report *ranking.Report) error {
	p := message.NewPrinter(f.opts.Locale)
	var b strings.Builder

	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(&b, "║                     RESTAURANT SUITABILITY RANKING                ║")
	fmt.Fprintln(&b, "╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(&b, "")
	fmt.Fprintf(&b, "Run:      %s\n", report.ID)
	fmt.Fprintf(&b, "Profile:  %s\n", report.Profile)
	fmt.Fprintln(&b, "")

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%-5s %-28s %9s %14s %10s\n", "RANK", "ID", "SERVICE", "PRICE", "SCORE")
	fmt.Fprintln(&b, rule)
	for _, r := range report.Results {
		score := formatScore(r, f.opts.Precision)
		if r.Degenerate {
			score += " ⚠"
		}
		fmt.Fprintf(&b, "%-5d %-28s %9s %14s %10s\n",
			r.Rank,
			truncate(r.ID, 28),
			formatService(r.Service),
			f.price(p, r),
			score)
	}
	fmt.Fprintln(&b, rule)

	s := report.Summary
	fmt.Fprintf(&b, "Scored %d record(s), mean %.2f, median %.2f, min %.2f, max %.2f\n",
		s.Count, s.Mean, s.Median, s.Min, s.Max)

	if s.Degenerate > 0 {
		fmt.Fprintf(&b, "⚠ %d record(s) fell outside every membership range and scored 0\n", s.Degenerate)
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "SKIPPED")
		fmt.Fprintln(&b, rule)
		for _, sk := range report.Skipped {
			fmt.Fprintf(&b, "✗ %s: %s\n", sk.Record.ID, sk.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TableFormatter) price(p *message.Printer, r types.RankedResult) string {
	if r.Price.Equal(r.Price.Truncate(0)) {
		return p.Sprintf("%d", r.Price.IntPart())
	}
	return p.Sprintf("%.2f", r.Price.InexactFloat64())
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
