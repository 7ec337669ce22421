package iocache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/shopspring/decimal"
)

// SourceStore reads year-indexed metric tables from a relational database.
type SourceStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.SeriesSource = &SourceStore{} // Compile-time check

// NewSourceStore opens the relational source. The none backend is rejected
// since it cannot provide any series.
func NewSourceStore(backend schema.DatabaseBackend, connStr string) (*SourceStore, error) {
	if backend == schema.NoneBackend {
		return nil, fmt.Errorf("no series source configured. Use --input or --source-backend")
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		return nil, fmt.Errorf("SQLite source requires a database file path")
	}
	db, err := openDB(backend, connStr, "")
	if err != nil {
		return nil, fmt.Errorf("series source: %w", err)
	}
	return &SourceStore{db: db, backend: backend}, nil
}

// NewSourceStoreFromDB wraps an already opened database.
func NewSourceStoreFromDB(db *sql.DB, backend schema.DatabaseBackend) *SourceStore {
	return &SourceStore{db: db, backend: backend}
}

// LoadSeries returns (year, value) rows of the metric ordered by year.
// SQL NULL becomes a nil value. Table and column must be registered metrics,
// so nothing user supplied reaches the query text unchecked.
func (s *SourceStore) LoadSeries(ctx context.Context, metric schema.MetricRef) ([]schema.ObservedPoint, error) {
	ref, err := schema.LookupMetric(metric.Table, metric.Column)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		quoteTableName(schema.YearColumn, s.backend),
		quoteTableName(ref.Column, s.backend),
		quoteTableName(ref.Table, s.backend),
		quoteTableName(schema.YearColumn, s.backend))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", ref, err)
	}
	defer func() { _ = rows.Close() }()

	var points []schema.ObservedPoint
	for rows.Next() {
		var year int64
		var value decimal.NullDecimal
		if err := rows.Scan(&year, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", ref, err)
		}
		point := schema.ObservedPoint{Year: int(year)}
		if value.Valid {
			v := value.Decimal.InexactFloat64()
			point.Value = &v
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", ref, err)
	}
	return points, nil
}

// Describe identifies the source for cache keys without exposing credentials.
func (s *SourceStore) Describe() string {
	return "db:" + string(s.backend)
}

// Close closes the underlying connection.
func (s *SourceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
