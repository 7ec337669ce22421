package fill

import (
	"fmt"
	"math"

	"github.com/coffeeportal/backfill/schema"
)

// Draft is a series in the middle of reconstruction.
// A point is still missing while its provenance is empty.
type Draft struct {
	Years      []int
	Values     []float64
	Provenance []schema.Provenance
	Notes      []schema.EstimationNote
}

// NewDraft copies the observed points into a draft. Known values are tagged actual.
func NewDraft(points []schema.ObservedPoint) *Draft {
	d := &Draft{
		Years:      make([]int, len(points)),
		Values:     make([]float64, len(points)),
		Provenance: make([]schema.Provenance, len(points)),
	}
	for i, p := range points {
		d.Years[i] = p.Year
		if p.Known() {
			d.Values[i] = *p.Value
			d.Provenance[i] = schema.Actual
		}
	}
	return d
}

// missing reports whether index i has no value yet.
func (d *Draft) missing(i int) bool {
	return d.Provenance[i] == ""
}

// set fills a missing point. Points that already carry a value are left alone.
func (d *Draft) set(i int, v float64, p schema.Provenance) {
	if !d.missing(i) {
		return
	}
	d.Values[i] = v
	d.Provenance[i] = p
}

// note appends an estimation-quality note.
func (d *Draft) note(year int, kind schema.NoteKind, format string, args ...any) {
	d.Notes = append(d.Notes, schema.EstimationNote{
		Year:   year,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	})
}

// actualIndexes returns the indexes of observed points in ascending order.
func (d *Draft) actualIndexes() []int {
	var idx []int
	for i, p := range d.Provenance {
		if p == schema.Actual {
			idx = append(idx, i)
		}
	}
	return idx
}

// Finish derives statistics and returns the completed series.
// It fails if any point is still missing or not finite.
func (d *Draft) Finish() (schema.ReconstructedSeries, error) {
	latestActual := 0
	filled := false
	for i := range d.Years {
		if d.missing(i) {
			return schema.ReconstructedSeries{}, fmt.Errorf("%w: year %d left unfilled", ErrAllMissing, d.Years[i])
		}
		if math.IsNaN(d.Values[i]) || math.IsInf(d.Values[i], 0) {
			return schema.ReconstructedSeries{}, fmt.Errorf("%w: %g for year %d", ErrNonFinite, d.Values[i], d.Years[i])
		}
		if d.Provenance[i] == schema.Actual {
			latestActual = d.Years[i]
		} else {
			filled = true
		}
	}

	points, stats := d.Summarize()
	return schema.ReconstructedSeries{
		Points: points,
		Metadata: schema.SeriesMetadata{
			Interpolated:     filled,
			Method:           schema.ReconstructionMethod,
			LatestActualYear: latestActual,
			EstimationNotes:  d.Notes,
		},
		Stats: stats,
	}, nil
}
