package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/parquet"
)

// ExecuteRunsExport exports run history from the global run store to Parquet files.
func ExecuteRunsExport(w io.Writer, outputFile string) error {
	store := Manager.GetRunStore()
	if store == nil {
		return errors.New("run tracking is disabled. Set --runs-backend to enable it")
	}
	return exportRuns(w, store, outputFile)
}

func exportRuns(w io.Writer, store contract.RunStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total point records: %d\n", status.TableSizes[seriesPointsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	points, err := store.GetAllSeriesPoints()
	if err != nil {
		return fmt.Errorf("failed to retrieve series points: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	pointsFile := outputFile + ".series_points.parquet"
	parquetPoints := parquet.ConvertSeriesPointRecords(points)
	if err := parquet.WriteSeriesPointsParquet(parquetPoints, pointsFile); err != nil {
		return fmt.Errorf("failed to write series points: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d point records to: %s\n", len(parquetPoints), pointsFile)

	return nil
}
