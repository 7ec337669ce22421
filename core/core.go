// Package core orchestrates reconstructions: it loads raw series, fills them,
// caches and tracks the results, then hands them to a writer.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/ingest"
	"github.com/coffeeportal/backfill/internal/iocache"
	"github.com/coffeeportal/backfill/schema"
)

// ExecutorFunc defines the function signature shared by the reconstruction commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, source contract.SeriesSource, writer contract.ResultWriter) error

// OpenSource returns the configured series source. An input file wins over the database.
func OpenSource(cfg *contract.Config) (contract.SeriesSource, error) {
	if cfg.InputFile != "" {
		return ingest.Open(cfg.InputFile, cfg.Sheet)
	}
	return iocache.NewSourceStore(cfg.SourceBackend, cfg.SourceDBConnect)
}

// ExecuteSeries reconstructs the configured metric and writes it.
func ExecuteSeries(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, source contract.SeriesSource, writer contract.ResultWriter) error {
	if cfg.Table == "" || cfg.Column == "" {
		return errors.New("--table and --column are required")
	}
	start := time.Now()
	metric := cfg.Metric()
	if !shouldSuppressHeader(ctx) {
		contract.LogInfo("🔎 Reconstructing %s from %s", metric, source.Describe())
	}

	ctx, finish := beginRun(ctx, cfg, mgr, start)
	series, err := GetSeriesResult(ctx, cfg, mgr, source, metric)
	if err != nil {
		finish(0)
		return err
	}
	recordSeries(ctx, mgr, series)
	finish(1)

	return writer.WriteSeries(series, cfg, time.Since(start))
}

// ExecuteTable reconstructs every registered column of the configured table.
// A column that cannot be reconstructed is reported and skipped. The call
// fails only when no column succeeds.
func ExecuteTable(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, source contract.SeriesSource, writer contract.ResultWriter) error {
	if cfg.Table == "" {
		return errors.New("--table is required")
	}
	table, err := schema.LookupTable(cfg.Table)
	if err != nil {
		return err
	}
	start := time.Now()
	if !shouldSuppressHeader(ctx) {
		contract.LogInfo("🔎 Reconstructing %d columns of %s from %s", len(table.Columns), table.Name, source.Describe())
	}

	result, err := GetTableResult(ctx, cfg, mgr, source, table)
	if err != nil {
		return err
	}
	return writer.WriteTable(result, cfg, time.Since(start))
}

// GetTableResult reconstructs every column of table inside one tracked run.
func GetTableResult(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, source contract.SeriesSource, table schema.MetricTable) (schema.TableResult, error) {
	ctx, finish := beginRun(ctx, cfg, mgr, time.Now())
	result := schema.TableResult{Table: table.Name}
	for _, column := range table.Columns {
		if err := ctx.Err(); err != nil {
			finish(len(result.Series))
			return schema.TableResult{}, err
		}
		metric := schema.MetricRef{Table: table.Name, Column: column.Name}
		series, err := GetSeriesResult(ctx, cfg, mgr, source, metric)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				finish(len(result.Series))
				return schema.TableResult{}, err
			}
			if !shouldSuppressHeader(ctx) {
				contract.LogWarn("Skipping "+metric.String(), err)
			}
			result.Failures = append(result.Failures, schema.SeriesFailure{Metric: metric, Reason: err.Error()})
			continue
		}
		recordSeries(ctx, mgr, series)
		result.Series = append(result.Series, series)
	}
	finish(len(result.Series))

	if len(result.Series) == 0 {
		return schema.TableResult{}, fmt.Errorf("no column of %s could be reconstructed: %s", table.Name, result.Failures[0].Reason)
	}
	return result, nil
}

// beginRun opens a tracked run when a run store is configured. The returned
// function closes the run with the number of series produced.
func beginRun(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, start time.Time) (context.Context, func(total int)) {
	noop := func(int) {}
	if mgr == nil {
		return ctx, noop
	}
	store := mgr.GetRunStore()
	if store == nil {
		return ctx, noop
	}
	runID, err := store.BeginRun(start, cfg.Params())
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return ctx, noop
	}
	return withRunID(ctx, runID), func(total int) {
		if err := store.EndRun(runID, time.Now(), total); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}
}

// recordSeries stores every point of series under the current run.
func recordSeries(ctx context.Context, mgr contract.CacheManager, series schema.ReconstructedSeries) {
	runID, ok := getRunID(ctx)
	if !ok || mgr == nil {
		return
	}
	store := mgr.GetRunStore()
	if store == nil {
		return
	}
	if err := store.RecordSeries(runID, series); err != nil {
		contract.LogWarn("Failed to record "+series.Metric.String(), err)
	}
}
