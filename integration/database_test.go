//go:build database

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/coffeeportal/backfill/schema"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// productionRows mirrors the CSV fixture; nil is stored as SQL NULL.
var productionRows = []struct {
	year   int
	output any
	export any
}{
	{2018, 1616307, 1878000},
	{2019, 1683971, nil},
	{2020, 1763476, 1564000},
	{2021, nil, 1568000},
	{2022, 1845033, 1776000},
	{2023, nil, nil},
}

// seedProduction creates and fills the production table. placeholder renders
// the n-th bind parameter for the driver.
func seedProduction(t *testing.T, driver, connStr string, placeholder func(n int) string) {
	t.Helper()
	db, err := sql.Open(driver, connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = db.ExecContext(ctx, `CREATE TABLE production (
		year INT PRIMARY KEY,
		area_thousand_ha DECIMAL(12,2) NULL,
		output_tons DECIMAL(14,2) NULL,
		export_tons DECIMAL(14,2) NULL
	)`)
	require.NoError(t, err)

	insert := fmt.Sprintf("INSERT INTO production (year, output_tons, export_tons) VALUES (%s, %s, %s)",
		placeholder(1), placeholder(2), placeholder(3))
	for _, row := range productionRows {
		_, err := db.ExecContext(ctx, insert, row.year, row.output, row.export)
		require.NoError(t, err)
	}
}

// exerciseBackend runs the CLI against a seeded database using it for the
// source, the cache and the run history at once.
func exerciseBackend(t *testing.T, backend, connStr string) {
	env := map[string]string{
		"BACKFILL_SOURCE_BACKEND":    backend,
		"BACKFILL_SOURCE_DB_CONNECT": connStr,
		"BACKFILL_CACHE_BACKEND":     backend,
		"BACKFILL_CACHE_DB_CONNECT":  connStr,
		"BACKFILL_RUNS_BACKEND":      backend,
		"BACKFILL_RUNS_DB_CONNECT":   connStr,
	}

	_, err := runBackfill(t, env, "runs", "migrate")
	require.NoError(t, err)

	_, err = runBackfill(t, env, "cache", "clear")
	require.NoError(t, err)

	_, err = runBackfill(t, env, "runs", "clear")
	require.NoError(t, err)

	out, err := runBackfill(t, env, "series", "--table", "production", "--column", "output_tons", "--output", "json")
	require.NoError(t, err)
	var resp schema.SeriesResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 6)
	assert.Equal(t, schema.Interpolated, resp.Data[3].Provenance)
	assert.Equal(t, schema.Extrapolated, resp.Data[5].Provenance)
	assert.InDelta(t, 1616307, resp.Data[0].Value, 0.001)

	// Second call is served from the cache and must match
	again, err := runBackfill(t, env, "series", "--table", "production", "--column", "output_tons", "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, out, again)

	// area_thousand_ha is all NULL and is reported as skipped
	_, err = runBackfill(t, env, "table", "--table", "production")
	require.NoError(t, err)

	_, err = runBackfill(t, env, "cache", "status")
	require.NoError(t, err)

	_, err = runBackfill(t, env, "runs", "status")
	require.NoError(t, err)

	exportBase := filepath.Join(t.TempDir(), "history")
	_, err = runBackfill(t, env, "runs", "export", "--output-file", exportBase)
	require.NoError(t, err)
	assert.FileExists(t, exportBase+".series_points.parquet")
}

// TestBackfillWithMySQL tests the backfill CLI with a MySQL backend.
func TestBackfillWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "backfill",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/backfill?parseTime=true", host, port.Port())

	seedProduction(t, "mysql", connStr, func(int) string { return "?" })
	exerciseBackend(t, "mysql", connStr)
}

// TestBackfillWithPostgres tests the backfill CLI with a PostgreSQL backend.
func TestBackfillWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())

	seedProduction(t, "pgx", connStr, func(n int) string { return fmt.Sprintf("$%d", n) })
	exerciseBackend(t, "postgresql", connStr)
}
