package forcelog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const Delimiter = '\t'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions controls how raw rig logs are normalized
type ReadOptions struct {
	// TableLabels maps raw table codes to labels
	TableLabels map[int]string
	// UnknownTable labels codes missing from TableLabels. Empty rejects them.
	UnknownTable string
	// MaxRows limits the number of data rows; 0 means unlimited
	MaxRows int
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		TableLabels: DefaultTableLabels,
	}
}

func (o ReadOptions) tableLabel(code int) (string, error) {
	labels := o.TableLabels
	if labels == nil {
		labels = DefaultTableLabels
	}

	if label, ok := labels[code]; ok {
		return label, nil
	}
	if o.UnknownTable != "" {
		return o.UnknownTable, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownTable, code)
}

// Indexer assigns running 1-based indices per (Table, Head, Target) group
type Indexer struct {
	counts map[groupKey]int
}

func NewIndexer() *Indexer {
	return &Indexer{counts: make(map[groupKey]int)}
}

func (ix *Indexer) Next(row Row) int {
	k := row.key()
	ix.counts[k] += 1
	return ix.counts[k]
}

// Decode validates raw as UTF-8 text and strips a leading byte order mark
func Decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		offset := 0
		for offset < len(raw) {
			r, size := utf8.DecodeRune(raw[offset:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			offset += size
		}
		return "", &DecodeError{Offset: offset}
	}

	return string(raw), nil
}

// Header returns the column names of a decoded rig log, or nil when text has
// no readable header line
func Header(text string) []string {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil
	}
	return header
}

// Normalize parses a tab-separated rig log into normalized rows. The file is
// either accepted whole or rejected with a *DecodeError or *ParseError.
func Normalize(raw []byte, opts ReadOptions) ([]Row, error) {
	text, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: ErrMissingHeader}
	}
	if err != nil {
		return nil, csvParseError(err)
	}

	columns, err := columnIndices(header)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, 64)
	indexer := NewIndexer()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvParseError(err)
		}

		line, _ := reader.FieldPos(0)
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %d", ErrTooManyRows, opts.MaxRows)}
		}

		row, err := readRecord(record, columns, opts)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = line
			}
			return nil, err
		}

		row.Index = indexer.Next(row)
		rows = append(rows, row)
	}

	return rows, nil
}

func columnIndices(header []string) (map[string]int, error) {
	indices := make(map[string]int, len(RequiredColumns))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, ok := indices[name]; !ok {
			indices[name] = i
		}
	}

	columns := make(map[string]int, len(RequiredColumns))
	for _, name := range RequiredColumns {
		i, ok := indices[name]
		if !ok {
			return nil, &ParseError{Line: 1, Column: name, Err: errors.New("required column missing")}
		}
		columns[name] = i
	}

	return columns, nil
}

func readRecord(record []string, columns map[string]int, opts ReadOptions) (Row, error) {
	var row Row

	code, err := parseInt(record[columns[ColumnTable]])
	if err != nil {
		return row, &ParseError{Column: ColumnTable, Err: err}
	}
	row.Table, err = opts.tableLabel(code)
	if err != nil {
		return row, &ParseError{Column: ColumnTable, Err: err}
	}

	head, err := parseInt(record[columns[ColumnHead]])
	if err != nil {
		return row, &ParseError{Column: ColumnHead, Err: err}
	}
	// heads are logged zero-based per physical channel
	row.Head = head + 1

	row.Target, err = parseFloat(record[columns[ColumnTarget]])
	if err != nil {
		return row, &ParseError{Column: ColumnTarget, Err: err}
	}

	row.Result, err = parseFloat(record[columns[ColumnResult]])
	if err != nil {
		return row, &ParseError{Column: ColumnResult, Err: err}
	}

	row.Limits = ResolveLimits(row.Target)
	return row, nil
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}

	// integer columns may be written with a trailing ".0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func csvParseError(err error) error {
	var cerr *csv.ParseError
	if errors.As(err, &cerr) {
		return &ParseError{Line: cerr.StartLine, Err: cerr.Err}
	}
	return &ParseError{Err: err}
}
