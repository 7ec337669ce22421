package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/coffeeportal/backfill/core/fill"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/iocache"
	"github.com/coffeeportal/backfill/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSource serves in-memory columns. A missing column is an error.
type fakeSource struct {
	columns map[string][]schema.ObservedPoint
	loads   int
}

func (s *fakeSource) LoadSeries(_ context.Context, metric schema.MetricRef) ([]schema.ObservedPoint, error) {
	s.loads++
	points, ok := s.columns[metric.Column]
	if !ok {
		return nil, errors.New("column not found")
	}
	return points, nil
}

func (s *fakeSource) Describe() string { return "fake" }
func (s *fakeSource) Close() error     { return nil }

// mockWriter captures what the executors hand to the output layer.
type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteSeries(series schema.ReconstructedSeries, cfg *contract.Config, duration time.Duration) error {
	return m.Called(series, cfg, duration).Error(0)
}

func (m *mockWriter) WriteTable(result schema.TableResult, cfg *contract.Config, duration time.Duration) error {
	return m.Called(result, cfg, duration).Error(0)
}

func points(first int, values ...any) []schema.ObservedPoint {
	out := make([]schema.ObservedPoint, len(values))
	for i, v := range values {
		out[i].Year = first + i
		if f, ok := v.(float64); ok {
			out[i].Value = &f
		}
	}
	return out
}

func testConfig(table, column string) *contract.Config {
	opts := fill.DefaultOptions()
	opts.MinPoints = 3
	return &contract.Config{Table: table, Column: column, Fill: opts, Precision: 2}
}

func TestGetSeriesResultWithoutCache(t *testing.T) {
	src := &fakeSource{columns: map[string][]schema.ObservedPoint{
		"output_tons": points(2020, 100.0, 110.0, nil),
	}}
	metric := schema.MetricRef{Table: "production", Column: "output_tons"}

	got, err := GetSeriesResult(context.Background(), testConfig("production", "output_tons"), nil, src, metric)
	require.NoError(t, err)
	assert.Equal(t, metric, got.Metric)
	require.Len(t, got.Points, 3)
	assert.InDelta(t, 118.8, got.Points[2].Value, 1e-9)
	assert.Equal(t, schema.Extrapolated, got.Points[2].Provenance)
}

func TestGetSeriesResultDensifiesSkippedYears(t *testing.T) {
	a, b, c := 100.0, 140.0, 150.0
	src := &fakeSource{columns: map[string][]schema.ObservedPoint{
		"output_tons": {{Year: 2022, Value: &b}, {Year: 2020, Value: &a}, {Year: 2023, Value: &c}},
	}}

	got, err := GetSeriesResult(context.Background(), testConfig("production", "output_tons"), nil, src, schema.MetricRef{Table: "production", Column: "output_tons"})
	require.NoError(t, err)
	require.Len(t, got.Points, 4)
	assert.Equal(t, 2021, got.Points[1].Year)
	assert.Equal(t, schema.Interpolated, got.Points[1].Provenance)
}

func TestGetSeriesResultErrors(t *testing.T) {
	metric := schema.MetricRef{Table: "production", Column: "output_tons"}
	cfg := testConfig("production", "output_tons")

	_, err := GetSeriesResult(context.Background(), cfg, nil, &fakeSource{}, metric)
	assert.ErrorContains(t, err, "failed to load production.output_tons")

	allNull := &fakeSource{columns: map[string][]schema.ObservedPoint{"output_tons": points(2020, nil, nil, nil)}}
	_, err = GetSeriesResult(context.Background(), cfg, nil, allNull, metric)
	assert.ErrorIs(t, err, fill.ErrAllMissing)

	short := &fakeSource{columns: map[string][]schema.ObservedPoint{"output_tons": points(2020, 1.0, nil)}}
	_, err = GetSeriesResult(context.Background(), cfg, nil, short, metric)
	assert.ErrorIs(t, err, fill.ErrInsufficientData)
}

func TestGetSeriesResultCacheHit(t *testing.T) {
	metric := schema.MetricRef{Table: "production", Column: "output_tons"}
	cached := schema.ReconstructedSeries{Metric: metric, Points: []schema.ReconstructedPoint{{Year: 2020, Value: 1, Provenance: schema.Actual}}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(data, currentCacheVersion, time.Now().Unix(), nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResultStore").Return(store)

	src := &fakeSource{columns: map[string][]schema.ObservedPoint{"output_tons": points(2020, 100.0, 110.0, nil)}}
	got, err := GetSeriesResult(context.Background(), testConfig("production", "output_tons"), mgr, src, metric)
	require.NoError(t, err)
	assert.Equal(t, cached, got)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSeriesResultCacheMissStores(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		version int
		ts      int64
		err     error
	}{
		{name: "absent", err: errors.New("not found")},
		{name: "stale", data: []byte("{}"), version: currentCacheVersion, ts: time.Now().Add(-8 * 24 * time.Hour).Unix()},
		{name: "old version", data: []byte("{}"), version: currentCacheVersion + 1, ts: time.Now().Unix()},
		{name: "corrupt", data: []byte("{"), version: currentCacheVersion, ts: time.Now().Unix()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", mock.Anything).Return(tt.data, tt.version, tt.ts, tt.err)
			store.On("Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything).Return(nil)
			mgr := &iocache.MockCacheManager{}
			mgr.On("GetResultStore").Return(store)

			src := &fakeSource{columns: map[string][]schema.ObservedPoint{"output_tons": points(2020, 100.0, 110.0, nil)}}
			got, err := GetSeriesResult(context.Background(), testConfig("production", "output_tons"), mgr, src, schema.MetricRef{Table: "production", Column: "output_tons"})
			require.NoError(t, err)
			assert.InDelta(t, 118.8, got.Points[2].Value, 1e-9)
			store.AssertCalled(t, "Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything)
		})
	}
}

func TestGenerateCacheKey(t *testing.T) {
	metric := schema.MetricRef{Table: "production", Column: "output_tons"}
	opts := fill.DefaultOptions()
	base := generateCacheKey("fake", metric, opts, points(2020, 1.0, nil))

	assert.Len(t, base, 64)
	assert.Equal(t, base, generateCacheKey("fake", metric, opts, points(2020, 1.0, nil)))
	assert.NotEqual(t, base, generateCacheKey("fake", metric, opts, points(2020, 1.0, 0.0)))
	assert.NotEqual(t, base, generateCacheKey("other", metric, opts, points(2020, 1.0, nil)))

	opts.TrailingDampening = 0.5
	assert.NotEqual(t, base, generateCacheKey("fake", metric, opts, points(2020, 1.0, nil)))
}

func TestExecuteSeriesTracksRun(t *testing.T) {
	runs := &iocache.MockRunStore{}
	runs.On("BeginRun", mock.Anything, mock.Anything).Return(int64(7), nil)
	runs.On("RecordSeries", int64(7), mock.Anything).Return(nil)
	runs.On("EndRun", int64(7), mock.Anything, 1).Return(nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResultStore").Return(nil)
	mgr.On("GetRunStore").Return(runs)

	writer := &mockWriter{}
	writer.On("WriteSeries", mock.MatchedBy(func(s schema.ReconstructedSeries) bool {
		return s.Metric.Column == "output_tons" && len(s.Points) == 3
	}), mock.Anything, mock.Anything).Return(nil)

	src := &fakeSource{columns: map[string][]schema.ObservedPoint{"output_tons": points(2020, 100.0, 110.0, nil)}}
	ctx := WithSuppressHeader(context.Background())
	require.NoError(t, ExecuteSeries(ctx, testConfig("production", "output_tons"), mgr, src, writer))

	runs.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestExecuteSeriesFailureClosesRun(t *testing.T) {
	runs := &iocache.MockRunStore{}
	runs.On("BeginRun", mock.Anything, mock.Anything).Return(int64(3), nil)
	runs.On("EndRun", int64(3), mock.Anything, 0).Return(nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResultStore").Return(nil)
	mgr.On("GetRunStore").Return(runs)
	writer := &mockWriter{}

	err := ExecuteSeries(WithSuppressHeader(context.Background()), testConfig("production", "output_tons"), mgr, &fakeSource{}, writer)
	require.Error(t, err)
	runs.AssertExpectations(t)
	runs.AssertNotCalled(t, "RecordSeries", mock.Anything, mock.Anything)
	writer.AssertNotCalled(t, "WriteSeries", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteSeriesRequiresMetric(t *testing.T) {
	err := ExecuteSeries(context.Background(), testConfig("production", ""), nil, &fakeSource{}, &mockWriter{})
	assert.EqualError(t, err, "--table and --column are required")
}

func TestExecuteTableSkipsFailedColumns(t *testing.T) {
	src := &fakeSource{columns: map[string][]schema.ObservedPoint{
		"area_thousand_ha": points(2020, nil, nil, nil),
		"output_tons":      points(2020, 100.0, 110.0, nil),
		"export_tons":      points(2020, 50.0, nil, 70.0),
	}}
	writer := &mockWriter{}
	writer.On("WriteTable", mock.MatchedBy(func(r schema.TableResult) bool {
		return r.Table == "production" && len(r.Series) == 2 && len(r.Failures) == 1 &&
			r.Failures[0].Metric.Column == "area_thousand_ha"
	}), mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, ExecuteTable(WithSuppressHeader(context.Background()), testConfig("production", ""), nil, src, writer))
	writer.AssertExpectations(t)
	assert.Equal(t, 3, src.loads)
}

func TestExecuteTableAllColumnsFail(t *testing.T) {
	writer := &mockWriter{}
	err := ExecuteTable(WithSuppressHeader(context.Background()), testConfig("production", ""), nil, &fakeSource{}, writer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no column of production could be reconstructed")
	writer.AssertNotCalled(t, "WriteTable", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteTableCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{columns: map[string][]schema.ObservedPoint{"output_tons": points(2020, 1.0, 2.0, 3.0)}}

	_, err := GetTableResult(ctx, testConfig("production", ""), nil, src, schema.ProductionTable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.loads)
}

func TestExecuteTableUnknownTable(t *testing.T) {
	err := ExecuteTable(context.Background(), &contract.Config{Table: "nope"}, nil, &fakeSource{}, &mockWriter{})
	assert.ErrorContains(t, err, "unknown table")
}
