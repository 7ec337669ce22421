package ingest

import (
	"context"
	"fmt"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/xuri/excelize/v2"
)

// XLSXSource reads metric columns from one sheet of a workbook.
type XLSXSource struct {
	path  string
	sheet string // empty = first sheet
}

var _ contract.SeriesSource = &XLSXSource{} // Compile-time check

// NewXLSXSource creates a workbook source for path.
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet}
}

// LoadSeries reads the year column and the metric's column from the sheet.
func (s *XLSXSource) LoadSeries(ctx context.Context, metric schema.MetricRef) ([]schema.ObservedPoint, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook %s has no sheet %q", s.path, sheet)
	}

	// Raw values keep full precision instead of the cell's display format
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	g, err := newGrid(s.path+"!"+sheet, rows)
	if err != nil {
		return nil, err
	}
	return g.series(ctx, metric.Column)
}

// Describe identifies the source for cache keys.
func (s *XLSXSource) Describe() string {
	if s.sheet == "" {
		return "xlsx:" + s.path
	}
	return "xlsx:" + s.path + "!" + s.sheet
}

// Close is a no-op; the workbook is only open during LoadSeries.
func (s *XLSXSource) Close() error {
	return nil
}
