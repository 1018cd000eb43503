package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"restaurant-rank/core/ranking"
)

// CSVHeader is the header row of CSV output
var CSVHeader = []string{"rank", "id", "service", "price", "score"}

// CSVFormatter renders one row per ranked result
type CSVFormatter struct {
	opts Options
}

// NewCSVFormatter creates a CSV formatter
func NewCSVFormatter(opts Options) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Format returns FormatCSV
func (f *CSVFormatter) Format() Format { return FormatCSV }

// Render writes the CSV rows
func (f *CSVFormatter) Render(w io.Writer, report *ranking.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range report.Results {
		row := []string{
			strconv.Itoa(r.Rank),
			r.ID,
			formatService(r.Service),
			r.Price.String(),
			formatScore(r, f.opts.Precision),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
