// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

var _ contract.ResultWriter = &OutWriter{} // Compile-time check

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteSeries prints one reconstructed series using the configured output format.
func (ow *OutWriter) WriteSeries(series schema.ReconstructedSeries, cfg *contract.Config, duration time.Duration) error {
	return PrintSeriesResult(series, cfg, duration)
}

// WriteTable prints every reconstructed column of a table using the configured output format.
func (ow *OutWriter) WriteTable(result schema.TableResult, cfg *contract.Config, duration time.Duration) error {
	return PrintTableResult(result, cfg, duration)
}
