// Package parquet provides data structures and functions for exporting backfill
// runs and reconstructed series to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/coffeeportal/backfill/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single reconstruction run with metadata.
// This struct maps to the backfill_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalSeries is the number of series reconstructed in this run
	TotalSeries int32 `parquet:"total_series,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// SeriesPoint is one recorded point of a run.
// This struct maps to the backfill_series_points database table.
type SeriesPoint struct {
	RunID        int64     `parquet:"run_id,snappy"`
	MetricTable  string    `parquet:"metric_table,snappy,dict"`
	MetricColumn string    `parquet:"metric_column,snappy,dict"`
	Year         int32     `parquet:"year,snappy"`
	Value        float64   `parquet:"value,snappy"`
	Provenance   string    `parquet:"provenance,snappy,dict"`
	GrowthRate   *float64  `parquet:"growth_rate,optional,snappy"`
	RecordedAt   time.Time `parquet:"recorded_at,snappy"`
}

// ReconstructedRow is one point of a freshly reconstructed series, used by the parquet output mode.
type ReconstructedRow struct {
	MetricTable  string   `parquet:"metric_table,snappy,dict"`
	MetricColumn string   `parquet:"metric_column,snappy,dict"`
	Year         int32    `parquet:"year,snappy"`
	Value        float64  `parquet:"value,snappy"`
	Estimated    bool     `parquet:"estimated,snappy"`
	Provenance   string   `parquet:"provenance,snappy,dict"`
	GrowthRate   *float64 `parquet:"growth_rate,optional,snappy"`
}

// Write encodes rows as a Parquet file into w. The writer is always closed
// so the footer is flushed; its error is reported.
func Write[T any](w io.Writer, rows []T) (err error) {
	writer := parquet.NewGenericWriter[T](w)
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finalize parquet data: %w", cerr)
		}
	}()

	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](rows []T, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	return Write(file, rows)
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WriteSeriesPointsParquet writes a slice of SeriesPoint structs to a Parquet file.
func WriteSeriesPointsParquet(data []SeriesPoint, outputPath string) error {
	return WriteFile(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalSeries:   record.TotalSeries,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertSeriesPointRecords converts schema.SeriesPointRecord to SeriesPoint for Parquet export.
func ConvertSeriesPointRecords(records []schema.SeriesPointRecord) []SeriesPoint {
	result := make([]SeriesPoint, len(records))
	for i, record := range records {
		result[i] = SeriesPoint{
			RunID:        record.RunID,
			MetricTable:  record.MetricTable,
			MetricColumn: record.MetricColumn,
			Year:         record.Year,
			Value:        record.Value,
			Provenance:   record.Provenance,
			GrowthRate:   record.GrowthRate,
			RecordedAt:   record.RecordedAt,
		}
	}
	return result
}

// ConvertSeries flattens reconstructed series into rows, in series then year order.
func ConvertSeries(series ...schema.ReconstructedSeries) []ReconstructedRow {
	var rows []ReconstructedRow
	for _, s := range series {
		for _, p := range s.Points {
			rows = append(rows, ReconstructedRow{
				MetricTable:  s.Metric.Table,
				MetricColumn: s.Metric.Column,
				Year:         int32(p.Year),
				Value:        p.Value,
				Estimated:    p.Provenance.IsEstimated(),
				Provenance:   string(p.Provenance),
				GrowthRate:   p.GrowthRate,
			})
		}
	}
	return rows
}
