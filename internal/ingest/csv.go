package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	Delimiter rune // Field delimiter (default: ',')
	Comment   rune // Lines starting with this rune are ignored (0 = none)
	SkipRows  int  // Number of rows to skip before the header
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ','}
}

// CSVSource reads metric columns from a CSV file. The file is parsed on every load.
type CSVSource struct {
	path string
	opts CSVOptions
}

var _ contract.SeriesSource = &CSVSource{} // Compile-time check

// NewCSVSource creates a CSV source for path.
func NewCSVSource(path string, opts CSVOptions) *CSVSource {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &CSVSource{path: path, opts: opts}
}

// LoadSeries reads the year column and the metric's column.
func (s *CSVSource) LoadSeries(ctx context.Context, metric schema.MetricRef) ([]schema.ObservedPoint, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = file.Close() }()

	g, err := readCSV(file, s.path, s.opts)
	if err != nil {
		return nil, err
	}
	return g.series(ctx, metric.Column)
}

// Describe identifies the source for cache keys.
func (s *CSVSource) Describe() string {
	return "csv:" + s.path
}

// Close is a no-op; the file is only open during LoadSeries.
func (s *CSVSource) Close() error {
	return nil
}

func readCSV(r io.Reader, origin string, opts CSVOptions) (*grid, error) {
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.Comment = opts.Comment
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // trailing empty cells are often dropped

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("%s: failed to skip row %d: %w", origin, i+1, err)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	return newGrid(origin, records)
}
