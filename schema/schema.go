// Package schema has models, enums and registries shared by all parts of backfill.
package schema

// ObservedPoint is one (year, value) pair as read from a source.
// A nil Value means "not yet known" and never means zero.
type ObservedPoint struct {
	Year  int      `json:"year"`
	Value *float64 `json:"value"`
}

// Known reports whether the point carries an observed value.
func (p ObservedPoint) Known() bool {
	return p.Value != nil
}

// ReconstructedPoint is a fully populated point with its provenance and growth.
type ReconstructedPoint struct {
	Year       int        `json:"year"`
	Value      float64    `json:"value"`
	Provenance Provenance `json:"provenance"`
	GrowthRate *float64   `json:"growth_rate"` // percent vs previous point, nil when undefined
}

// EstimationNote flags a point whose estimate is less trustworthy than usual.
type EstimationNote struct {
	Year   int      `json:"year"`
	Kind   NoteKind `json:"kind"`
	Detail string   `json:"detail"`
}

// SeriesMetadata describes how a series was reconstructed.
type SeriesMetadata struct {
	Interpolated     bool             `json:"interpolated"` // true if any point was filled
	Method           string           `json:"method"`
	LatestActualYear int              `json:"latest_actual_year"`
	EstimationNotes  []EstimationNote `json:"estimation_notes,omitempty"`
}

// SeriesStats holds aggregate statistics over a reconstructed series.
type SeriesStats struct {
	Avg       float64  `json:"avg"`
	Total     float64  `json:"total"`
	Latest    float64  `json:"latest"`
	ChangePct *float64 `json:"change_pct"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
}

// ReconstructedSeries is the full output of one reconstruction.
type ReconstructedSeries struct {
	Metric   MetricRef            `json:"metric"`
	Points   []ReconstructedPoint `json:"points"`
	Metadata SeriesMetadata       `json:"metadata"`
	Stats    SeriesStats          `json:"stats"`
}

// EstimatedCount returns how many points were filled.
func (s ReconstructedSeries) EstimatedCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Provenance.IsEstimated() {
			n++
		}
	}
	return n
}

// FirstYear returns the earliest year in the series, or 0 when empty.
func (s ReconstructedSeries) FirstYear() int {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[0].Year
}

// LastYear returns the latest year in the series, or 0 when empty.
func (s ReconstructedSeries) LastYear() int {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Year
}
