package fill

import (
	"fmt"
	"math"

	"github.com/coffeeportal/backfill/schema"
)

// GrowthRate returns the percent change from prev to cur.
func GrowthRate(prev, cur float64) (float64, error) {
	if prev == 0 {
		return 0, fmt.Errorf("%w: previous value is zero", ErrDegenerateGrowth)
	}
	g := (cur - prev) / prev * 100
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 0, fmt.Errorf("%w: %g to %g", ErrDegenerateGrowth, prev, cur)
	}
	return g, nil
}

// Summarize builds the output points with growth rates, plus aggregate stats.
// A degenerate growth rate leaves that point's rate nil and adds a note.
func (d *Draft) Summarize() ([]schema.ReconstructedPoint, schema.SeriesStats) {
	n := len(d.Years)
	points := make([]schema.ReconstructedPoint, n)
	var stats schema.SeriesStats
	if n == 0 {
		return points, stats
	}

	stats.Min, stats.Max = d.Values[0], d.Values[0]
	for i := range d.Years {
		v := d.Values[i]
		points[i] = schema.ReconstructedPoint{
			Year:       d.Years[i],
			Value:      v,
			Provenance: d.Provenance[i],
		}
		stats.Total += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)

		if i == 0 {
			continue
		}
		g, err := GrowthRate(d.Values[i-1], v)
		if err != nil {
			d.note(d.Years[i], schema.DegenerateGrowthNote, "no growth rate: %v", err)
			continue
		}
		points[i].GrowthRate = &g
	}

	stats.Avg = stats.Total / float64(n)
	stats.Latest = d.Values[n-1]
	if last := points[n-1].GrowthRate; last != nil {
		change := *last
		stats.ChangePct = &change
	}
	return points, stats
}
