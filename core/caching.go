package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coffeeportal/backfill/core/fill"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL is how long a cached reconstruction stays valid.
const cacheTTL = 7 * 24 * time.Hour

// GetSeriesResult loads one metric from source and reconstructs it.
// A cached result is reused when the raw points and options are unchanged.
func GetSeriesResult(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, source contract.SeriesSource, metric schema.MetricRef) (schema.ReconstructedSeries, error) {
	raw, err := source.LoadSeries(ctx, metric)
	if err != nil {
		return schema.ReconstructedSeries{}, fmt.Errorf("failed to load %s: %w", metric, err)
	}
	points, err := fill.Densify(raw)
	if err != nil {
		return schema.ReconstructedSeries{}, fmt.Errorf("invalid series %s: %w", metric, err)
	}

	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetResultStore()
	}
	if store == nil {
		// Fallback to direct computation
		return reconstruct(points, metric, cfg.Fill)
	}

	key := generateCacheKey(source.Describe(), metric, cfg.Fill, points)
	if result, ok := checkCacheHit(store, key); ok {
		return result, nil
	}
	return computeAndStore(store, key, points, metric, cfg.Fill)
}

// reconstruct runs the fill pipeline and labels the result with its metric.
func reconstruct(points []schema.ObservedPoint, metric schema.MetricRef, opts fill.Options) (schema.ReconstructedSeries, error) {
	series, err := fill.Reconstruct(points, opts)
	if err != nil {
		return schema.ReconstructedSeries{}, fmt.Errorf("cannot reconstruct %s: %w", metric, err)
	}
	series.Metric = metric
	return series, nil
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string) (schema.ReconstructedSeries, bool) {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return schema.ReconstructedSeries{}, false // Cache miss
	}
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheTTL {
		return schema.ReconstructedSeries{}, false // Stale or version mismatch
	}
	var result schema.ReconstructedSeries
	if err := json.Unmarshal(data, &result); err != nil {
		return schema.ReconstructedSeries{}, false
	}
	return result, true
}

// computeAndStore reconstructs the series and stores it in cache
func computeAndStore(store contract.CacheStore, key string, points []schema.ObservedPoint, metric schema.MetricRef, opts fill.Options) (schema.ReconstructedSeries, error) {
	result, err := reconstruct(points, metric, opts)
	if err != nil {
		return schema.ReconstructedSeries{}, err
	}
	if data, err := json.Marshal(result); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Failed to cache "+metric.String(), err)
		}
	}
	return result, nil
}

// generateCacheKey hashes everything that determines a reconstruction:
// the source identity, the metric, the options and the raw points themselves.
func generateCacheKey(source string, metric schema.MetricRef, opts fill.Options, points []schema.ObservedPoint) string {
	digest := sha256.New()
	_, _ = fmt.Fprintf(digest, "%s|%s|%+v|", source, metric, opts)
	for _, p := range points {
		if p.Known() {
			_, _ = fmt.Fprintf(digest, "%d=%v;", p.Year, *p.Value)
		} else {
			_, _ = fmt.Fprintf(digest, "%d=null;", p.Year)
		}
	}
	return fmt.Sprintf("%x", digest.Sum(nil))
}
