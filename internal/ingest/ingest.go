// Package ingest reads year-indexed metric tables from CSV and XLSX files.
//
// Both formats share one layout: a header row naming a "year" column and one
// column per metric, followed by one row per year. Empty cells and the usual
// NULL markers become missing values.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/shopspring/decimal"
)

// nullMarkers are cell values treated as missing, compared case-insensitively.
var nullMarkers = map[string]struct{}{
	"":     {},
	"null": {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"-":    {},
}

// Open returns the file source matching the extension of path.
func Open(path, sheet string) (contract.SeriesSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case contract.CSVExt:
		if sheet != "" {
			return nil, fmt.Errorf("sheet %q given for CSV input %s", sheet, path)
		}
		return NewCSVSource(path, DefaultCSVOptions()), nil
	case contract.XLSXExt:
		return NewXLSXSource(path, sheet), nil
	default:
		return nil, fmt.Errorf("unsupported input file %q. must be %s or %s", path, contract.CSVExt, contract.XLSXExt)
	}
}

// grid is a parsed header plus data rows, shared by every file format.
type grid struct {
	origin  string
	columns map[string]int
	rows    [][]string
}

// newGrid indexes the header row. Header names are matched case-insensitively.
func newGrid(origin string, records [][]string) (*grid, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", origin)
	}
	g := &grid{origin: origin, columns: make(map[string]int), rows: records[1:]}
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := g.columns[key]; dup {
			return nil, fmt.Errorf("%s: duplicate header %q", origin, name)
		}
		g.columns[key] = i
	}
	if _, ok := g.columns[schema.YearColumn]; !ok {
		return nil, fmt.Errorf("%s: header has no %q column", origin, schema.YearColumn)
	}
	return g, nil
}

// series extracts the (year, value) pairs of one column. Rows with an empty year are skipped.
func (g *grid) series(ctx context.Context, column string) ([]schema.ObservedPoint, error) {
	valueIdx, ok := g.columns[strings.ToLower(column)]
	if !ok {
		return nil, fmt.Errorf("%s: no column %q", g.origin, column)
	}
	yearIdx := g.columns[schema.YearColumn]

	points := make([]schema.ObservedPoint, 0, len(g.rows))
	for i, row := range g.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := i + 2 // 1-based, after the header
		yearCell := cell(row, yearIdx)
		if yearCell == "" {
			continue
		}
		year, err := parseYear(yearCell)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", g.origin, line, err)
		}
		value, err := parseValue(cell(row, valueIdx))
		if err != nil {
			return nil, fmt.Errorf("%s row %d column %s: %w", g.origin, line, column, err)
		}
		points = append(points, schema.ObservedPoint{Year: year, Value: value})
	}
	return points, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Years outside this range are rejected as data errors.
const (
	minYear = 0
	maxYear = 9999
)

// parseYear accepts integral years, including spreadsheet renderings like "2024.0".
func parseYear(s string) (int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	if d.LessThan(decimal.NewFromInt(minYear)) || d.GreaterThan(decimal.NewFromInt(maxYear)) {
		return 0, fmt.Errorf("year %q outside %d..%d", s, minYear, maxYear)
	}
	return int(d.IntPart()), nil
}

// parseValue converts a cell to a value. NULL markers give nil.
// Thousands separators are dropped so "1,953,990" reads as 1953990.
func parseValue(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if _, isNull := nullMarkers[strings.ToLower(s)]; isNull {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	v := d.InexactFloat64()
	return &v, nil
}
