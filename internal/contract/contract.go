// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/coffeeportal/backfill/schema"
)

// SeriesSource loads raw observed points for a metric.
// This allows the reconstruction pipeline to be tested without a real database or file.
type SeriesSource interface {
	// LoadSeries returns the metric's points ordered by year. Missing values are nil.
	LoadSeries(ctx context.Context, metric schema.MetricRef) ([]schema.ObservedPoint, error)

	// Describe returns a stable identity for the source, used in cache keys.
	Describe() string

	// Close releases any underlying connection or file handle.
	Close() error
}

// ResultWriter renders reconstruction results in the configured output format.
type ResultWriter interface {
	WriteSeries(series schema.ReconstructedSeries, cfg *Config, duration time.Duration) error
	WriteTable(result schema.TableResult, cfg *Config, duration time.Duration) error
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResultStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking reconstruction runs and the points they produced.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalSeries int) error

	// RecordSeries stores every point of a reconstructed series with its provenance
	RecordSeries(runID int64, series schema.ReconstructedSeries) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllSeriesPoints returns every recorded point ordered by run, metric and year
	GetAllSeriesPoints() ([]schema.SeriesPointRecord, error)

	// Close closes the underlying connection
	Close() error
}
