package fill

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/coffeeportal/backfill/schema"
)

// MaxSpan bounds the year range Densify will expand.
const MaxSpan = 1000

// Densify sorts points by year and inserts a missing point for every year
// absent between the first and last one. Sources that omit rows instead of
// storing NULL become valid Reconstruct input this way.
func Densify(points []schema.ObservedPoint) ([]schema.ObservedPoint, error) {
	if len(points) == 0 {
		return nil, nil
	}
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b schema.ObservedPoint) int {
		return cmp.Compare(a.Year, b.Year)
	})

	first, last := sorted[0].Year, sorted[len(sorted)-1].Year
	// last >= first, so the unsigned difference is exact even when last-first overflows int.
	if uint64(last)-uint64(first) >= MaxSpan {
		return nil, fmt.Errorf("%w: %d to %d spans more than %d years", ErrYearGap, first, last, MaxSpan)
	}

	out := make([]schema.ObservedPoint, 0, last-first+1)
	for i, p := range sorted {
		if i > 0 {
			prev := sorted[i-1].Year
			if p.Year == prev {
				return nil, fmt.Errorf("%w: %d", ErrDuplicateYear, p.Year)
			}
			for y := prev + 1; y < p.Year; y++ {
				out = append(out, schema.ObservedPoint{Year: y})
			}
		}
		out = append(out, p)
	}
	return out, nil
}
