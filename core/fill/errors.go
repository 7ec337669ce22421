package fill

import "errors"

// Hard errors abort reconstruction of a metric.
var (
	// ErrInsufficientData means the series is too short to interpolate or extrapolate.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrAllMissing means no point carries an observed value.
	ErrAllMissing = errors.New("all values missing")
)

// Precondition violations on the input ordering.
var (
	ErrUnsortedYears = errors.New("years are not sorted ascending")
	ErrDuplicateYear = errors.New("duplicate year")
	ErrYearGap       = errors.New("years are not contiguous")
)

// ErrNonFinite means a filled value overflowed or became NaN.
var ErrNonFinite = errors.New("non-finite value")

// ErrDegenerateGrowth is point-local: a growth rate hit a zero denominator.
// It never aborts reconstruction.
var ErrDegenerateGrowth = errors.New("degenerate growth")
