// Package output renders ranking reports for humans and machines.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"restaurant-rank/core/ranking"
	"restaurant-rank/core/types"
)

// Format represents output format type
type Format string

const (
	// FormatTable is a human-readable terminal table
	FormatTable Format = "table"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatCSV is a spreadsheet-friendly CSV file
	FormatCSV Format = "csv"

	// FormatMarkdown is a markdown report
	FormatMarkdown Format = "markdown"
)

// Options controls number presentation
type Options struct {
	// Precision is the number of decimal places for scores; negative leaves them unrounded
	Precision int32

	// Locale selects digit grouping for prices in the table format
	Locale language.Tag
}

// DefaultOptions rounds scores to two places
func DefaultOptions() Options {
	return Options{Precision: 2, Locale: language.English}
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes the report to w
	Render(w io.Writer, report *ranking.Report) error
}

// Registry manages formatter registration
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[Format]Formatter)}
}

// NewDefaultRegistry registers every built-in formatter with opts
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	_ = r.Register(NewTableFormatter(opts))
	_ = r.Register(NewJSONFormatter(opts))
	_ = r.Register(NewCSVFormatter(opts))
	_ = r.Register(NewMarkdownFormatter(opts))
	return r
}

// Register adds a formatter to the registry
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Format()]; exists {
		return fmt.Errorf("formatter already registered: %s", f.Format())
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns the formatter for a format
func (r *Registry) Get(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[format]
	return f, ok
}

// Formats returns the registered formats, sorted
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Format, 0, len(r.formatters))
	for f := range r.formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForPath picks a format from a file extension, falling back to def
func ForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatTable
	}
	return def
}

func formatScore(r types.RankedResult, precision int32) string {
	return r.RoundedScore(precision).String()
}

func formatService(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
