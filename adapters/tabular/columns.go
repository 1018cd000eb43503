// Package tabular reads restaurant records from CSV, TSV and JSON files and
// writes ranking reports to files or streams.
package tabular

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Columns names the source fields holding each record attribute
type Columns struct {
	ID      string
	Service string
	Price   string
}

// DefaultColumns matches the original restaurant spreadsheet
func DefaultColumns() Columns {
	return Columns{
		ID:      "id Pelanggan",
		Service: "Pelayanan",
		Price:   "harga",
	}
}

var aliases = map[string][]string{
	"id":      {"id", "id pelanggan", "restaurant", "name"},
	"service": {"service", "pelayanan", "service score", "service_score"},
	"price":   {"price", "harga"},
}

func withDefaults(c Columns) Columns {
	def := DefaultColumns()
	if c.ID == "" {
		c.ID = def.ID
	}
	if c.Service == "" {
		c.Service = def.Service
	}
	if c.Price == "" {
		c.Price = def.Price
	}
	return c
}

// normalizeHeader folds width, case and whitespace so that "ID  Pelanggan"
// and "id pelanggan" match.
func normalizeHeader(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// resolve finds the index of the configured column, then of any alias
func resolve(header map[string]int, configured string, field string) (int, bool) {
	if configured != "" {
		if idx, ok := header[normalizeHeader(configured)]; ok {
			return idx, true
		}
	}
	for _, alias := range aliases[field] {
		if idx, ok := header[alias]; ok {
			return idx, true
		}
	}
	return -1, false
}
