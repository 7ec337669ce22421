package fill

import (
	"math"
	"testing"

	"github.com/coffeeportal/backfill/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// series builds contiguous observed points starting at first; NaN marks a missing value.
func series(first int, values ...float64) []schema.ObservedPoint {
	points := make([]schema.ObservedPoint, len(values))
	for i, v := range values {
		points[i].Year = first + i
		if !math.IsNaN(v) {
			val := v
			points[i].Value = &val
		}
	}
	return points
}

var null = math.NaN()

func relaxed(minPoints int) Options {
	opts := DefaultOptions()
	opts.MinPoints = minPoints
	return opts
}

func TestReconstructTrailingDampening(t *testing.T) {
	got, err := Reconstruct(series(2020, 100, 110, null), relaxed(3))
	require.NoError(t, err)

	require.Len(t, got.Points, 3)
	assert.InDelta(t, 118.8, got.Points[2].Value, 1e-9)
	assert.Equal(t, schema.Extrapolated, got.Points[2].Provenance)
	assert.True(t, got.Metadata.Interpolated)
	assert.Equal(t, 2021, got.Metadata.LatestActualYear)
}

func TestReconstructLeadingDampening(t *testing.T) {
	got, err := Reconstruct(series(2020, null, 110, 121), relaxed(3))
	require.NoError(t, err)

	assert.InDelta(t, 110/1.07, got.Points[0].Value, 1e-9)
	assert.InDelta(t, 102.80, got.Points[0].Value, 0.01)
	assert.Equal(t, schema.Extrapolated, got.Points[0].Provenance)
}

func TestReconstructInteriorLinearFallback(t *testing.T) {
	got, err := Reconstruct(series(2020, 100, null, 140), relaxed(3))
	require.NoError(t, err)

	assert.InDelta(t, 120, got.Points[1].Value, 1e-9)
	assert.Equal(t, schema.Interpolated, got.Points[1].Provenance)
}

func TestReconstructGrowthDivisionByZero(t *testing.T) {
	got, err := Reconstruct(series(2020, 0, 50), relaxed(2))
	require.NoError(t, err)

	assert.Nil(t, got.Points[0].GrowthRate)
	assert.Nil(t, got.Points[1].GrowthRate)
	assert.Equal(t, 50.0, got.Points[1].Value)
	assert.Nil(t, got.Stats.ChangePct)
	require.Len(t, got.Metadata.EstimationNotes, 1)
	assert.Equal(t, schema.DegenerateGrowthNote, got.Metadata.EstimationNotes[0].Kind)
	assert.Equal(t, 2021, got.Metadata.EstimationNotes[0].Year)
}

// TestReconstructProductionSeries mirrors the production table with 2024 not yet reported.
func TestReconstructProductionSeries(t *testing.T) {
	values := []float64{
		831000, 853500, 961200, 1055800, 1057500,
		1105700, 1276500, 1292400, 1326700, 1408400,
		1453000, 1460800, 1542400, 1616300, 1684000,
		1763500, 1845033, 1953990, 1956782, null,
	}
	got, err := Reconstruct(series(2005, values...), DefaultOptions())
	require.NoError(t, err)

	growth := (1956782.0 - 1953990.0) / 1953990.0
	want := 1956782 * (1 + growth*0.8)

	require.Len(t, got.Points, 20)
	last := got.Points[19]
	assert.Equal(t, 2024, last.Year)
	assert.InDelta(t, want, last.Value, 1e-6)
	assert.Equal(t, schema.Extrapolated, last.Provenance)
	assert.True(t, got.Metadata.Interpolated)
	assert.Equal(t, schema.ReconstructionMethod, got.Metadata.Method)
	assert.Equal(t, 2023, got.Metadata.LatestActualYear)
	assert.Equal(t, 1, got.EstimatedCount())

	assert.InDelta(t, want, got.Stats.Latest, 1e-6)
	require.NotNil(t, got.Stats.ChangePct)
	assert.InDelta(t, growth*0.8*100, *got.Stats.ChangePct, 1e-9)
	assert.Equal(t, 831000.0, got.Stats.Min)
	assert.InDelta(t, want, got.Stats.Max, 1e-6)
}

func TestReconstructFullyActualIsIdentity(t *testing.T) {
	input := series(2010, 10, 12, 15, 11, 20)
	got, err := Reconstruct(input, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, got.Metadata.Interpolated)
	assert.Empty(t, got.Metadata.EstimationNotes)
	assert.Equal(t, 2014, got.Metadata.LatestActualYear)
	for i, p := range got.Points {
		assert.Equal(t, *input[i].Value, p.Value)
		assert.Equal(t, schema.Actual, p.Provenance)
	}
	assert.InDelta(t, 68, got.Stats.Total, 1e-9)
	assert.InDelta(t, 13.6, got.Stats.Avg, 1e-9)
	assert.Equal(t, 20.0, got.Stats.Latest)
	require.NotNil(t, got.Points[1].GrowthRate)
	assert.InDelta(t, 20, *got.Points[1].GrowthRate, 1e-9)
	require.NotNil(t, got.Stats.ChangePct)
	assert.InDelta(t, (20.0-11.0)/11.0*100, *got.Stats.ChangePct, 1e-9)
}

func TestReconstructMultiYearEdges(t *testing.T) {
	got, err := Reconstruct(series(2000, null, null, 100, 110, 121, null, null), DefaultOptions())
	require.NoError(t, err)

	// Leading: first two actual values give 10%.
	assert.InDelta(t, 100/1.07, got.Points[1].Value, 1e-9)
	assert.InDelta(t, 100/1.07/1.07, got.Points[0].Value, 1e-9)
	// Trailing: last two actual values give 10%, compounded.
	assert.InDelta(t, 121*1.08, got.Points[5].Value, 1e-9)
	assert.InDelta(t, 121*1.08*1.08, got.Points[6].Value, 1e-9)

	for _, i := range []int{0, 1, 5, 6} {
		assert.Equal(t, schema.Extrapolated, got.Points[i].Provenance)
	}
	assert.Equal(t, 2004, got.Metadata.LatestActualYear)
}

func TestReconstructTrailingAcrossInteriorGap(t *testing.T) {
	got, err := Reconstruct(series(2020, 100, null, 121, null), relaxed(4))
	require.NoError(t, err)

	// 21% over two years is 10% a year, dampened to 8%.
	assert.InDelta(t, 121*1.08, got.Points[3].Value, 1e-9)
	assert.Equal(t, schema.Extrapolated, got.Points[3].Provenance)

	var sparse []schema.EstimationNote
	for _, n := range got.Metadata.EstimationNotes {
		if n.Kind == schema.SparseTrendNote {
			sparse = append(sparse, n)
		}
	}
	require.Len(t, sparse, 1)
	assert.Equal(t, 2022, sparse[0].Year)
}

func TestReconstructLeadingAcrossSignFlip(t *testing.T) {
	got, err := Reconstruct(series(2020, null, -100, null, 100), relaxed(4))
	require.NoError(t, err)

	// -200% over two years averages to -100% a year; divisor 1-0.7.
	assert.InDelta(t, -100/0.3, got.Points[0].Value, 1e-9)
	assert.Contains(t, got.Metadata.EstimationNotes, schema.EstimationNote{
		Year: 2023, Kind: schema.SparseTrendNote,
		Detail: "trend anchors 2021 and 2023 are 2 years apart, growth annualized to -1.0000",
	})
}

func TestReconstructOverflowIsNonFinite(t *testing.T) {
	_, err := Reconstruct(series(2000, 1e307, 1e308, null), relaxed(3))
	require.ErrorIs(t, err, ErrNonFinite)
	assert.True(t, IsHardError(err))
}

func TestReconstructSingleActualHoldsFlat(t *testing.T) {
	got, err := Reconstruct(series(2000, null, 42, null, null), DefaultOptions())
	require.NoError(t, err)

	for _, p := range got.Points {
		assert.Equal(t, 42.0, p.Value)
	}
	kinds := map[schema.NoteKind]int{}
	for _, n := range got.Metadata.EstimationNotes {
		kinds[n.Kind]++
	}
	assert.Equal(t, 2, kinds[schema.DegenerateTrendNote])
}

func TestReconstructZeroLeadingBaseHoldsFlat(t *testing.T) {
	got, err := Reconstruct(series(2000, null, 0, 10, 20), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0.0, got.Points[0].Value)
	assert.Equal(t, schema.Extrapolated, got.Points[0].Provenance)
	assert.Equal(t, schema.DegenerateTrendNote, got.Metadata.EstimationNotes[0].Kind)
}

func TestReconstructErrors(t *testing.T) {
	tests := []struct {
		name   string
		points []schema.ObservedPoint
		want   error
	}{
		{"three points", series(2020, 1, 2, 3), ErrInsufficientData},
		{"empty", nil, ErrInsufficientData},
		{"all missing", series(2020, null, null, null, null), ErrAllMissing},
		{"duplicate year", append(series(2020, 1, 2, 3), series(2022, 4)...), ErrDuplicateYear},
		{"unsorted", append(series(2020, 1, 2, 3), series(2019, 4)...), ErrUnsortedYears},
		{"skipped year", append(series(2020, 1, 2, 3), series(2025, 4)...), ErrYearGap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconstruct(tt.points, DefaultOptions())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsHardError(t *testing.T) {
	_, err := Reconstruct(series(2020, 1, 2), DefaultOptions())
	assert.True(t, IsHardError(err))

	_, err = Reconstruct(append(series(2020, 1, 2, 3), series(2025, 4)...), DefaultOptions())
	assert.False(t, IsHardError(err))
	assert.False(t, IsHardError(nil))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"min points", func(o *Options) { o.MinPoints = 1 }},
		{"trend window", func(o *Options) { o.TrendWindow = 1 }},
		{"trailing dampening zero", func(o *Options) { o.TrailingDampening = 0 }},
		{"trailing dampening above one", func(o *Options) { o.TrailingDampening = 1.5 }},
		{"leading dampening", func(o *Options) { o.LeadingDampening = -0.1 }},
		{"neighborhood", func(o *Options) { o.Neighborhood = -1 }},
		{"max interior gap", func(o *Options) { o.MaxInteriorGap = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.Validate())

			_, err := Reconstruct(series(2020, 1, 2, 3, 4), opts)
			assert.Error(t, err)
		})
	}
}

func TestReconstructDoesNotMutateInput(t *testing.T) {
	input := series(2020, 1, null, 3, null)
	_, err := Reconstruct(input, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, input[1].Value)
	assert.Nil(t, input[3].Value)
}

func TestDensify(t *testing.T) {
	got, err := Densify([]schema.ObservedPoint{series(2003, 30)[0], series(2000, 10)[0], series(2001, null)[0]})
	require.NoError(t, err)

	require.Len(t, got, 4)
	for i, p := range got {
		assert.Equal(t, 2000+i, p.Year)
	}
	assert.Equal(t, 10.0, *got[0].Value)
	assert.Nil(t, got[1].Value)
	assert.Nil(t, got[2].Value)
	assert.Equal(t, 30.0, *got[3].Value)

	_, err = Densify(append(series(2000, 1, 2), series(2001, 3)...))
	assert.ErrorIs(t, err, ErrDuplicateYear)

	_, err = Densify(append(series(0, 1), series(5000, 2)...))
	assert.ErrorIs(t, err, ErrYearGap)

	for _, bounds := range [][2]int{
		{-5e18, 5e18},
		{math.MinInt64, math.MaxInt64},
		{2000, 2000 + MaxSpan},
	} {
		_, err = Densify(append(series(bounds[1], 2), series(bounds[0], 1)...))
		assert.ErrorIs(t, err, ErrYearGap, "%d..%d", bounds[0], bounds[1])
	}

	got, err = Densify(append(series(2000, 1), series(2000+MaxSpan-1, 2)...))
	require.NoError(t, err)
	assert.Len(t, got, MaxSpan)

	got, err = Densify(nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
