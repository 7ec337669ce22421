package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/coffeeportal/backfill/internal/chart"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/parquet"
	"github.com/coffeeportal/backfill/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSeriesResult outputs one series, dispatching based on the output format configured.
func PrintSeriesResult(series schema.ReconstructedSeries, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, schema.NewSeriesResponse(series))
		}, "Wrote JSON series"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVSeries(w, cfg.Precision, series)
		}, "Wrote CSV series"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.XLSXOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeXLSX(w, cfg.Precision, nil, series)
		}, "Wrote XLSX workbook"); err != nil {
			return fmt.Errorf("error writing XLSX output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.Write(w, parquet.ConvertSeries(series))
		}, "Wrote Parquet series"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	case schema.PNGOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return chart.Render(w, series)
		}, "Wrote PNG chart"); err != nil {
			return fmt.Errorf("error writing PNG output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := writeSeriesTable(os.Stdout, series, cfg); err != nil {
			return fmt.Errorf("error writing series table output: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Reconstructed in %v. Cache backend: %s\n", duration, cfg.CacheBackend)
	}
	return nil
}

// writeSeriesTable prints the points, then the statistics and metadata.
func writeSeriesTable(w io.Writer, series schema.ReconstructedSeries, cfg *contract.Config) error {
	_, _ = fmt.Fprintf(w, "%s (%d-%d)\n", series.Metric, series.FirstYear(), series.LastYear())

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Year", "Value", "Provenance", "Growth", "Note"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = []tw.Align{tw.AlignRight, tw.AlignRight, tw.AlignLeft, tw.AlignRight, tw.AlignLeft}
	})

	notes := notesByYear(series.Metadata.EstimationNotes)
	noteWidth := GetMaxNoteWidth(cfg)

	var data [][]string
	for _, p := range series.Points {
		data = append(data, []string{
			fmt.Sprint(p.Year),
			contract.FormatValue(p.Value, cfg.Precision),
			provenanceLabel(p.Provenance, cfg.UseColors),
			contract.FormatGrowth(p.GrowthRate, 1),
			truncate(notes[p.Year], noteWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	writeStats(w, series, cfg.Precision)
	return nil
}

// writeStats prints the aggregate block under a series table.
func writeStats(w io.Writer, series schema.ReconstructedSeries, precision int) {
	s := series.Stats
	_, _ = fmt.Fprintf(w, "Avg: %s  Total: %s  Latest: %s  Change: %s\n",
		contract.FormatValue(s.Avg, precision),
		contract.FormatValue(s.Total, precision),
		contract.FormatValue(s.Latest, precision),
		contract.FormatGrowth(s.ChangePct, 1))
	_, _ = fmt.Fprintf(w, "Min: %s  Max: %s\n",
		contract.FormatValue(s.Min, precision),
		contract.FormatValue(s.Max, precision))
	_, _ = fmt.Fprintf(w, "Method: %s. Latest actual year: %d. Estimated points: %d of %d\n",
		series.Metadata.Method, series.Metadata.LatestActualYear, series.EstimatedCount(), len(series.Points))
}
