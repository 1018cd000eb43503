package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-rank/core/ranking"
)

// JSONFormatter renders the report as indented JSON
type JSONFormatter struct {
	opts Options
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter(opts Options) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format { return FormatJSON }

type jsonResult struct {
	Rank       int             `json:"rank"`
	ID         string          `json:"id"`
	Service    float64         `json:"service"`
	Price      decimal.Decimal `json:"price"`
	Score      json.Number     `json:"score"`
	Degenerate bool            `json:"degenerate,omitempty"`
}

type jsonReport struct {
	ID        string          `json:"id"`
	Profile   string          `json:"profile"`
	CreatedAt string          `json:"created_at"`
	Duration  string          `json:"duration"`
	Results   []jsonResult    `json:"results"`
	Skipped   interface{}     `json:"skipped,omitempty"`
	Summary   ranking.Summary `json:"summary"`
}

// Render writes the JSON document
func (f *JSONFormatter) Render(w io.Writer, report *ranking.Report) error {
	out := jsonReport{
		ID:        report.ID,
		Profile:   report.Profile,
		CreatedAt: report.CreatedAt.Format(time.RFC3339),
		Duration:  report.Duration,
		Results:   make([]jsonResult, len(report.Results)),
		Summary:   report.Summary,
	}
	if len(report.Skipped) > 0 {
		out.Skipped = report.Skipped
	}
	for i, r := range report.Results {
		out.Results[i] = jsonResult{
			Rank:       r.Rank,
			ID:         r.ID,
			Service:    r.Service,
			Price:      r.Price,
			Score:      json.Number(formatScore(r, f.opts.Precision)),
			Degenerate: r.Degenerate,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
