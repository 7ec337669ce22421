// Package fill rebuilds complete annual series from partially missing observations.
//
// Reconstruction runs in a fixed order: interior gaps are interpolated, trailing
// gaps are extrapolated forward, leading gaps are extrapolated backward, then
// growth rates and aggregate statistics are derived. Every function in this
// package is pure and safe for concurrent use.
package fill

import (
	"errors"
	"fmt"

	"github.com/coffeeportal/backfill/schema"
)

// Default reconstruction parameters.
const (
	DefaultMinPoints         = 4
	DefaultTrendWindow       = 5
	DefaultTrailingDampening = 0.8
	DefaultLeadingDampening  = 0.7
	DefaultNeighborhood      = 3
	DefaultMaxInteriorGap    = 2
)

// Options tunes a reconstruction.
type Options struct {
	MinPoints         int     // shortest accepted series
	TrendWindow       int     // trailing actual values considered for the trend
	TrailingDampening float64 // multiplier on the recent growth rate going forward
	LeadingDampening  float64 // multiplier on the early growth rate going backward
	Neighborhood      int     // actual points per side used for the quadratic fit, 0 = all
	MaxInteriorGap    int     // longer interior runs fall back to linear, 0 = no limit
}

// DefaultOptions returns the production parameters.
func DefaultOptions() Options {
	return Options{
		MinPoints:         DefaultMinPoints,
		TrendWindow:       DefaultTrendWindow,
		TrailingDampening: DefaultTrailingDampening,
		LeadingDampening:  DefaultLeadingDampening,
		Neighborhood:      DefaultNeighborhood,
		MaxInteriorGap:    DefaultMaxInteriorGap,
	}
}

// Validate checks that the options describe a usable reconstruction.
func (o Options) Validate() error {
	if o.MinPoints < 2 {
		return fmt.Errorf("min points must be at least 2, got %d", o.MinPoints)
	}
	if o.TrendWindow < 2 {
		return fmt.Errorf("trend window must be at least 2, got %d", o.TrendWindow)
	}
	if o.TrailingDampening <= 0 || o.TrailingDampening > 1 {
		return fmt.Errorf("trailing dampening must be in (0, 1], got %g", o.TrailingDampening)
	}
	if o.LeadingDampening <= 0 || o.LeadingDampening > 1 {
		return fmt.Errorf("leading dampening must be in (0, 1], got %g", o.LeadingDampening)
	}
	if o.Neighborhood < 0 {
		return fmt.Errorf("neighborhood must not be negative, got %d", o.Neighborhood)
	}
	if o.MaxInteriorGap < 0 {
		return fmt.Errorf("max interior gap must not be negative, got %d", o.MaxInteriorGap)
	}
	return nil
}

// Reconstruct fills every missing value of points and derives statistics.
// The input must be sorted ascending by year with no duplicate or skipped years.
func Reconstruct(points []schema.ObservedPoint, opts Options) (schema.ReconstructedSeries, error) {
	if err := opts.Validate(); err != nil {
		return schema.ReconstructedSeries{}, err
	}
	if err := ValidatePoints(points, opts.MinPoints); err != nil {
		return schema.ReconstructedSeries{}, err
	}

	d := NewDraft(points)
	d.FillInterior(opts)
	d.FillTrailing(opts)
	d.FillLeading(opts)

	series, err := d.Finish()
	if err != nil {
		return schema.ReconstructedSeries{}, err
	}
	return series, nil
}

// ValidatePoints checks the preconditions of Reconstruct.
func ValidatePoints(points []schema.ObservedPoint, minPoints int) error {
	if len(points) < minPoints {
		return fmt.Errorf("%w: got %d points, need at least %d", ErrInsufficientData, len(points), minPoints)
	}
	known := 0
	for i, p := range points {
		if p.Known() {
			known++
		}
		if i == 0 {
			continue
		}
		prev := points[i-1].Year
		switch {
		case p.Year == prev:
			return fmt.Errorf("%w: %d", ErrDuplicateYear, p.Year)
		case p.Year < prev:
			return fmt.Errorf("%w: %d follows %d", ErrUnsortedYears, p.Year, prev)
		case p.Year != prev+1:
			return fmt.Errorf("%w: %d follows %d", ErrYearGap, p.Year, prev)
		}
	}
	if known == 0 {
		return fmt.Errorf("%w: %d points", ErrAllMissing, len(points))
	}
	return nil
}

// IsHardError reports whether err aborts a metric, as opposed to a precondition bug.
func IsHardError(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrAllMissing) || errors.Is(err, ErrNonFinite)
}
