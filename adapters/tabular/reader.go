package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"restaurant-rank/core/types"
	rerrors "restaurant-rank/internal/errors"
)

// ParseOptions controls record extraction
type ParseOptions struct {
	// Columns selects the id, service and price fields
	Columns Columns

	// SkipMalformed drops rows with unparsable numbers instead of failing
	SkipMalformed bool
}

// ParseResult holds the parsed records and any dropped rows
type ParseResult struct {
	Records  []types.Record
	Rejected []types.SkippedRecord
}

// FileSource reads records from a CSV, TSV or JSON file
type FileSource struct {
	path string
	opts ParseOptions

	mu       sync.Mutex
	rejected []types.SkippedRecord
}

// NewFileSource creates a file source. Empty column names fall back to the defaults.
func NewFileSource(path string, opts ParseOptions) *FileSource {
	opts.Columns = withDefaults(opts.Columns)
	return &FileSource{path: path, opts: opts}
}

// Name returns the file name
func (s *FileSource) Name() string {
	return filepath.Base(s.path)
}

// Read loads every record in file order
func (s *FileSource) Read(ctx context.Context) ([]types.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.TypeInput, "cannot open input", err).WithContext("path", s.path)
	}

	var res *ParseResult
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json":
		res, err = ParseJSON(bytes.NewReader(data), s.opts)
	case ".tsv":
		res, err = ParseDelimited(bytes.NewReader(data), '\t', s.opts)
	case ".csv", ".txt":
		res, err = ParseDelimited(bytes.NewReader(data), ',', s.opts)
	default:
		return nil, rerrors.NotSupported(fmt.Sprintf("input format %q", filepath.Ext(s.path)))
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rejected = res.Rejected
	s.mu.Unlock()
	return res.Records, nil
}

// Rejected returns the rows dropped by the last Read
func (s *FileSource) Rejected() []types.SkippedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

// ParseDelimited reads records from a delimited stream with a header row
func ParseDelimited(r io.Reader, comma rune, opts ParseOptions) (*ParseResult, error) {
	opts.Columns = withDefaults(opts.Columns)

	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err == io.EOF {
		return nil, rerrors.Parsing("empty input", io.EOF)
	}
	if err != nil {
		return nil, rerrors.Parsing("malformed delimited input", err)
	}
	headLine, _ := reader.FieldPos(0)

	header := make(map[string]int, len(head))
	for i, c := range head {
		name := normalizeHeader(strings.TrimPrefix(c, "\ufeff"))
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}
	idCol, svcCol, priceCol, err := locate(header, opts.Columns)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerrors.Parsing("malformed delimited input", err)
		}
		if isBlank(row) {
			continue
		}
		// Row counts physical lines after the header, blank lines included
		line, _ := reader.FieldPos(0)
		if err := res.add(line-headLine, cell(row, idCol), cell(row, svcCol), cell(row, priceCol), opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ParseJSON reads records from a JSON array of objects
func ParseJSON(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	opts.Columns = withDefaults(opts.Columns)

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]interface{}
	if err := dec.Decode(&objects); err != nil {
		return nil, rerrors.Parsing("malformed JSON input", err)
	}

	res := &ParseResult{Records: make([]types.Record, 0, len(objects))}
	for i, obj := range objects {
		header := make(map[string]int, len(obj))
		values := make([]string, 0, len(obj))
		for k, v := range obj {
			header[normalizeHeader(k)] = len(values)
			values = append(values, jsonString(v))
		}
		idCol, svcCol, priceCol, err := locate(header, opts.Columns)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i+1, err)
		}
		if err := res.add(i+1, values[idCol], values[svcCol], values[priceCol], opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (res *ParseResult) add(row int, id, service, price string, opts ParseOptions) error {
	rec, err := buildRecord(row, id, service, price, opts.Columns)
	if err == nil {
		res.Records = append(res.Records, rec)
		return nil
	}
	if !opts.SkipMalformed {
		return err
	}
	res.Rejected = append(res.Rejected, types.SkippedRecord{
		Record: types.Record{ID: id, Row: row},
		Reason: err.Error(),
	})
	return nil
}

func locate(header map[string]int, columns Columns) (id, service, price int, err error) {
	var ok bool
	if id, ok = resolve(header, columns.ID, "id"); !ok {
		return 0, 0, 0, missingColumn(columns.ID)
	}
	if service, ok = resolve(header, columns.Service, "service"); !ok {
		return 0, 0, 0, missingColumn(columns.Service)
	}
	if price, ok = resolve(header, columns.Price, "price"); !ok {
		return 0, 0, 0, missingColumn(columns.Price)
	}
	return id, service, price, nil
}

func missingColumn(name string) error {
	return rerrors.Newf(rerrors.TypeParsing, "missing column %q", name).WithContext("column", name)
}

func buildRecord(row int, id, service, price string, columns Columns) (types.Record, error) {
	svc, err := strconv.ParseFloat(NormalizeNumber(service), 64)
	if err != nil {
		return types.Record{}, rerrors.Parsing(fmt.Sprintf("row %d: invalid %s %q", row, columns.Service, service), err).
			WithContext("row", row).
			WithContext("column", columns.Service)
	}
	p, err := decimal.NewFromString(NormalizeNumber(price))
	if err != nil {
		return types.Record{}, rerrors.Parsing(fmt.Sprintf("row %d: invalid %s %q", row, columns.Price, price), err).
			WithContext("row", row).
			WithContext("column", columns.Price)
	}
	return types.Record{ID: id, Service: svc, Price: p, Row: row}, nil
}

var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// NormalizeNumber trims a numeric cell and drops thousands separators. Commas
// anywhere but between three-digit groups are left in place so the value fails
// to parse rather than being read as a different number.
func NormalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if groupedNumber.MatchString(s) {
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func jsonString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
