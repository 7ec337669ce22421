package fill

import (
	"math"

	"github.com/coffeeportal/backfill/schema"
)

// FillTrailing extrapolates the missing run after the last known point.
//
// The recent growth rate is taken from the last two observed values inside the
// trend window, dampened, and compounded once per missing year. Anchors more
// than a year apart give an annualized rate. With fewer than two observed
// values, or a zero base, the last known value is held flat.
func (d *Draft) FillTrailing(opts Options) {
	last := d.lastKnown()
	if last < 0 || last == len(d.Years)-1 {
		return
	}

	growth, ok := d.recentGrowth(opts.TrendWindow)
	if !ok {
		d.note(d.Years[last+1], schema.DegenerateTrendNote, "no usable recent trend, holding %d value flat", d.Years[last])
		growth = 0
	}

	factor := 1 + growth*opts.TrailingDampening
	prev := d.Values[last]
	for i := last + 1; i < len(d.Years); i++ {
		next := prev * factor
		d.set(i, next, schema.Extrapolated)
		prev = next
	}
}

// FillLeading extrapolates the missing run before the first known point.
//
// The early growth rate comes from the first two observed values, annualized
// like the trailing one. Each earlier year divides by the dampened growth factor. With fewer than two observed
// values, a zero base or a zero divisor, the first known value is held flat.
func (d *Draft) FillLeading(opts Options) {
	first := d.firstKnown()
	if first <= 0 {
		return
	}

	growth, ok := d.earlyGrowth()
	divisor := 1 + growth*opts.LeadingDampening
	if ok && (divisor == 0 || math.IsNaN(divisor) || math.IsInf(divisor, 0)) {
		ok = false
	}
	if !ok {
		d.note(d.Years[first-1], schema.DegenerateTrendNote, "no usable early trend, holding %d value flat", d.Years[first])
		divisor = 1
	}

	next := d.Values[first]
	for i := first - 1; i >= 0; i-- {
		prev := next / divisor
		d.set(i, prev, schema.Extrapolated)
		next = prev
	}
}

// recentGrowth returns the yearly rate between the last two observed values
// of the trend window.
func (d *Draft) recentGrowth(window int) (float64, bool) {
	idx := d.actualIndexes()
	if len(idx) > window {
		idx = idx[len(idx)-window:]
	}
	if len(idx) < 2 {
		return 0, false
	}
	return d.growthBetween(idx[len(idx)-2], idx[len(idx)-1])
}

// earlyGrowth returns the yearly rate between the first two observed values.
func (d *Draft) earlyGrowth() (float64, bool) {
	idx := d.actualIndexes()
	if len(idx) < 2 {
		return 0, false
	}
	return d.growthBetween(idx[0], idx[1])
}

// growthBetween is (v[j]-v[i])/v[i] spread over the years between i and j.
// Non-adjacent anchors get the compound yearly rate, or the plain average when
// the sign flips, and a note on the anchor year.
func (d *Draft) growthBetween(i, j int) (float64, bool) {
	g, ok := ratio(d.Values[i], d.Values[j])
	years := d.Years[j] - d.Years[i]
	if !ok || years <= 1 {
		return g, ok
	}
	if q := d.Values[j] / d.Values[i]; q > 0 {
		g = math.Pow(q, 1/float64(years)) - 1
	} else {
		g /= float64(years)
	}
	d.note(d.Years[j], schema.SparseTrendNote,
		"trend anchors %d and %d are %d years apart, growth annualized to %.4f", d.Years[i], d.Years[j], years, g)
	return g, true
}

func (d *Draft) lastKnown() int {
	for i := len(d.Years) - 1; i >= 0; i-- {
		if !d.missing(i) {
			return i
		}
	}
	return -1
}

func (d *Draft) firstKnown() int {
	for i := range d.Years {
		if !d.missing(i) {
			return i
		}
	}
	return -1
}
