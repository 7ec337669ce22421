package fill

import (
	"errors"
	"math"

	"github.com/coffeeportal/backfill/schema"
	"gonum.org/v1/gonum/mat"
)

// interpolator estimates y at each of at, given support points (xs, ys).
type interpolator func(xs, ys, at []float64) ([]float64, error)

var errUnderdetermined = errors.New("not enough support points")

// gap is a maximal run of missing points, [start, end] inclusive.
type gap struct {
	start, end int
}

func (g gap) len() int { return g.end - g.start + 1 }

// FillInterior interpolates every missing run bounded by observed values on both sides.
func (d *Draft) FillInterior(opts Options) {
	for _, g := range d.interiorGaps() {
		d.fillGap(g, opts)
	}
}

// interiorGaps finds missing runs with a known neighbor on each side.
func (d *Draft) interiorGaps() []gap {
	var gaps []gap
	n := len(d.Years)
	for i := 0; i < n; i++ {
		if !d.missing(i) {
			continue
		}
		j := i
		for j+1 < n && d.missing(j+1) {
			j++
		}
		if i > 0 && j < n-1 {
			gaps = append(gaps, gap{start: i, end: j})
		}
		i = j
	}
	return gaps
}

// fillGap picks an interpolator for one run and applies it.
func (d *Draft) fillGap(g gap, opts Options) {
	at := make([]float64, 0, g.len())
	for i := g.start; i <= g.end; i++ {
		at = append(at, float64(d.Years[i]))
	}

	left, right := g.start-1, g.end+1
	boundX := []float64{float64(d.Years[left]), float64(d.Years[right])}
	boundY := []float64{d.Values[left], d.Values[right]}

	xs, ys := d.supportPoints(g, opts.Neighborhood)
	longRun := opts.MaxInteriorGap > 0 && g.len() > opts.MaxInteriorGap
	interp := interpolator(quadraticInterpolator)
	if longRun || len(xs) < 3 {
		interp, xs, ys = linearInterpolator, boundX, boundY
	}

	values, fitErr := interp(xs, ys, at)
	if fitErr == nil && !allFinite(values) {
		fitErr = errors.New("fit produced a non-finite value")
	}
	if fitErr != nil {
		values, _ = linearInterpolator(boundX, boundY, at)
	}

	for k, i := 0, g.start; i <= g.end; k, i = k+1, i+1 {
		d.set(i, values[k], schema.Interpolated)
		switch {
		case longRun:
			d.note(d.Years[i], schema.LongInteriorGapNote,
				"interior gap of %d years filled by straight line between %d and %d", g.len(), d.Years[left], d.Years[right])
		case fitErr != nil:
			d.note(d.Years[i], schema.DegenerateFitNote, "quadratic fit unusable (%v), filled linearly", fitErr)
		}
	}
}

// supportPoints collects observed points around a gap for the quadratic fit.
// Up to k nearest observed points are taken on each side; k == 0 takes all of them.
func (d *Draft) supportPoints(g gap, k int) (xs, ys []float64) {
	var before, after []int
	for _, i := range d.actualIndexes() {
		if i < g.start {
			before = append(before, i)
		} else if i > g.end {
			after = append(after, i)
		}
	}
	if k > 0 {
		if len(before) > k {
			before = before[len(before)-k:]
		}
		if len(after) > k {
			after = after[:k]
		}
	}
	for _, i := range append(before, after...) {
		xs = append(xs, float64(d.Years[i]))
		ys = append(ys, d.Values[i])
	}
	return xs, ys
}

// quadraticInterpolator fits y = c0 + c1*x + c2*x^2 by least squares and evaluates it.
// x is centered on the mean support year to keep the system well conditioned.
func quadraticInterpolator(xs, ys, at []float64) ([]float64, error) {
	n := len(xs)
	if n < 3 {
		return nil, errUnderdetermined
	}
	center := 0.0
	for _, x := range xs {
		center += x
	}
	center /= float64(n)

	a := mat.NewDense(n, 3, nil)
	for i, x := range xs {
		dx := x - center
		a.Set(i, 0, 1)
		a.Set(i, 1, dx)
		a.Set(i, 2, dx*dx)
	}
	b := mat.NewVecDense(n, append([]float64(nil), ys...))

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return nil, err
	}

	out := make([]float64, len(at))
	for i, x := range at {
		dx := x - center
		out[i] = coef.AtVec(0) + coef.AtVec(1)*dx + coef.AtVec(2)*dx*dx
	}
	return out, nil
}

// linearInterpolator draws a straight line through the first and last support points.
func linearInterpolator(xs, ys, at []float64) ([]float64, error) {
	if len(xs) < 2 {
		return nil, errUnderdetermined
	}
	x0, y0 := xs[0], ys[0]
	x1, y1 := xs[len(xs)-1], ys[len(ys)-1]
	out := make([]float64, len(at))
	for i, x := range at {
		out[i] = y0 + (y1-y0)*(x-x0)/(x1-x0)
	}
	return out, nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
