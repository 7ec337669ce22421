package schema

import "time"

// RunRecord represents a row from the backfill_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalSeries   int32
	ConfigParams  *string
}

// SeriesPointRecord represents a row from the backfill_series_points table.
type SeriesPointRecord struct {
	RunID        int64
	MetricTable  string
	MetricColumn string
	Year         int32
	Value        float64
	Provenance   string
	GrowthRate   *float64
	RecordedAt   time.Time
}

// NewSeriesPointRecords flattens a series into store rows.
func NewSeriesPointRecords(runID int64, s ReconstructedSeries, at time.Time) []SeriesPointRecord {
	records := make([]SeriesPointRecord, len(s.Points))
	for i, p := range s.Points {
		records[i] = SeriesPointRecord{
			RunID:        runID,
			MetricTable:  s.Metric.Table,
			MetricColumn: s.Metric.Column,
			Year:         int32(p.Year),
			Value:        p.Value,
			Provenance:   string(p.Provenance),
			GrowthRate:   p.GrowthRate,
			RecordedAt:   at,
		}
	}
	return records
}
