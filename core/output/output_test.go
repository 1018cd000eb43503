package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"restaurant-rank/core/ranking"
	"restaurant-rank/core/types"
)

func sampleReport() *ranking.Report {
	results := []types.RankedResult{
		{Record: types.Record{ID: "R-2", Service: 95, Price: decimal.NewFromInt(24000)}, Score: 100, Rank: 1},
		{Record: types.Record{ID: "R-4", Service: 70, Price: decimal.NewFromInt(32000)}, Score: 79.375, Rank: 2},
		{Record: types.Record{ID: "R-7", Service: 40.5, Price: decimal.RequireFromString("48000.50")}, Score: 36.842105263157897, Rank: 3},
	}
	return &ranking.Report{
		ID:        "5f1c9a52-8a0b-4c4e-9d47-0d6f0b0c2e11",
		Profile:   "standard",
		CreatedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Duration:  "1.2ms",
		Results:   results,
		Skipped: []types.SkippedRecord{
			{Record: types.Record{ID: "R-9"}, Reason: "service score is not a finite number"},
		},
		Summary: ranking.Summarize(results, 1),
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(DefaultOptions())
	assert.Equal(t, []Format{FormatCSV, FormatJSON, FormatMarkdown, FormatTable}, r.Formats())

	f, ok := r.Get(FormatJSON)
	require.True(t, ok)
	assert.Equal(t, FormatJSON, f.Format())

	_, ok = r.Get("html")
	assert.False(t, ok)

	assert.Error(t, r.Register(NewCSVFormatter(DefaultOptions())))
}

func TestForPath(t *testing.T) {
	assert.Equal(t, FormatCSV, ForPath("out/peringkat.csv", FormatTable))
	assert.Equal(t, FormatJSON, ForPath("ranking.JSON", FormatTable))
	assert.Equal(t, FormatMarkdown, ForPath("report.md", FormatTable))
	assert.Equal(t, FormatTable, ForPath("ranking", FormatTable))
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(DefaultOptions()).Render(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		CSVHeader,
		{"1", "R-2", "95", "24000", "100"},
		{"2", "R-4", "70", "32000", "79.38"},
		{"3", "R-7", "40.5", "48000.5", "36.84"},
	}, rows)
}

func TestCSVFormatterUnrounded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(Options{Precision: -1}).Render(&buf, sampleReport()))
	assert.Contains(t, buf.String(), "79.375")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultOptions()).Render(&buf, sampleReport()))

	var doc struct {
		ID      string `json:"id"`
		Results []struct {
			Rank  int     `json:"rank"`
			ID    string  `json:"id"`
			Price string  `json:"price"`
			Score float64 `json:"score"`
		} `json:"results"`
		Skipped []map[string]interface{} `json:"skipped"`
		Summary ranking.Summary          `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "5f1c9a52-8a0b-4c4e-9d47-0d6f0b0c2e11", doc.ID)
	require.Len(t, doc.Results, 3)
	assert.Equal(t, 79.38, doc.Results[1].Score)
	assert.Equal(t, "48000.5", doc.Results[2].Price)
	assert.Len(t, doc.Skipped, 1)
	assert.Equal(t, 3, doc.Summary.Count)
	assert.Contains(t, buf.String(), `"created_at": "2026-10-17T09:30:00Z"`)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(DefaultOptions()).Render(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "RESTAURANT SUITABILITY RANKING")
	assert.Contains(t, out, "24,000")
	assert.Contains(t, out, "48,000.50")
	assert.Contains(t, out, "79.38")
	assert.Contains(t, out, "SKIPPED")
	assert.Contains(t, out, "R-9")
}

func TestTableFormatterTruncatesByRune(t *testing.T) {
	report := sampleReport()
	report.Results[0].ID = "Warung Makan Pak Slamet ëRendang Padang"

	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(DefaultOptions()).Render(&buf, report))
	assert.True(t, utf8.Valid(buf.Bytes()))
	assert.Contains(t, buf.String(), "Warung Makan Pak Slamet ë...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ëëëëëëë...", truncate("ëëëëëëëëëëëë", 10))
	assert.Equal(t, "ëëëëëëëëëë", truncate("ëëëëëëëëëë", 10))
}

func TestTableFormatterLocale(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Precision: 2, Locale: language.German}
	require.NoError(t, NewTableFormatter(opts).Render(&buf, sampleReport()))
	assert.Contains(t, buf.String(), "24.000")
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport()
	report.Results[0].ID = "A|B"
	require.NoError(t, NewMarkdownFormatter(DefaultOptions()).Render(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "# Restaurant Ranking")
	assert.Contains(t, out, "| 1 | `A\\|B` | 95 | 24000 | 100 |")
	assert.Contains(t, out, "## Skipped")
}
