package outwriter

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/coffeeportal/backfill/internal/chart"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/parquet"
	"github.com/coffeeportal/backfill/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// estimatedMarker flags estimated cells in the wide text table.
const estimatedMarker = "*"

// PrintTableResult outputs every series of a table, dispatching based on the output format configured.
func PrintTableResult(result schema.TableResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, schema.NewTableResponse(result))
		}, "Wrote JSON table"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVSeries(w, cfg.Precision, result.Series...)
		}, "Wrote CSV table"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.XLSXOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeXLSX(w, cfg.Precision, result.Failures, result.Series...)
		}, "Wrote XLSX workbook"); err != nil {
			return fmt.Errorf("error writing XLSX output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.Write(w, parquet.ConvertSeries(result.Series...))
		}, "Wrote Parquet table"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	case schema.PNGOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return chart.Render(w, result.Series...)
		}, "Wrote PNG chart"); err != nil {
			return fmt.Errorf("error writing PNG output: %w", err)
		}
	default:
		if err := writeTableGrid(os.Stdout, result, cfg); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Reconstructed %d columns of %s in %v. Cache backend: %s\n",
			len(result.Series), result.Table, duration, cfg.CacheBackend)
	}
	return nil
}

// writeTableGrid prints a year-by-column grid, then one summary row per column
// and any failed columns.
func writeTableGrid(w io.Writer, result schema.TableResult, cfg *contract.Config) error {
	if len(result.Series) > 0 {
		if err := writeGrid(w, result.Series, cfg); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s estimated value\n\n", estimatedMarker)
		if err := writeSummary(w, result.Series, cfg); err != nil {
			return err
		}
	}
	for _, failure := range result.Failures {
		_, _ = fmt.Fprintf(w, "Skipped %s: %s\n", failure.Metric, failure.Reason)
	}
	return nil
}

func writeGrid(w io.Writer, series []schema.ReconstructedSeries, cfg *contract.Config) error {
	var years []int
	cells := make([]map[int]schema.ReconstructedPoint, len(series))
	header := []string{"Year"}
	for i, s := range series {
		header = append(header, s.Metric.Column)
		cells[i] = make(map[int]schema.ReconstructedPoint, len(s.Points))
		for _, p := range s.Points {
			cells[i][p.Year] = p
			years = append(years, p.Year)
		}
	}
	slices.Sort(years)
	years = slices.Compact(years)

	table := tablewriter.NewWriter(w)
	table.Header(header)
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, year := range years {
		row := []string{fmt.Sprint(year)}
		for i := range series {
			p, ok := cells[i][year]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatGridCell(p, cfg))
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatGridCell(p schema.ReconstructedPoint, cfg *contract.Config) string {
	value := contract.FormatValue(p.Value, cfg.Precision)
	switch {
	case !p.Provenance.IsEstimated():
		return value + " "
	case !cfg.UseColors:
		return value + estimatedMarker
	case p.Provenance == schema.Interpolated:
		return contract.InterpolatedColor.Sprint(value + estimatedMarker)
	default:
		return contract.ExtrapolatedColor.Sprint(value + estimatedMarker)
	}
}

func writeSummary(w io.Writer, series []schema.ReconstructedSeries, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Column", "Years", "Estimated", "Latest", "Change", "Avg", "Min", "Max"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, s := range series {
		data = append(data, []string{
			s.Metric.Column,
			fmt.Sprintf("%d-%d", s.FirstYear(), s.LastYear()),
			fmt.Sprintf("%d/%d", s.EstimatedCount(), len(s.Points)),
			contract.FormatValue(s.Stats.Latest, cfg.Precision),
			contract.FormatGrowth(s.Stats.ChangePct, 1),
			contract.FormatValue(s.Stats.Avg, cfg.Precision),
			contract.FormatValue(s.Stats.Min, cfg.Precision),
			contract.FormatValue(s.Stats.Max, cfg.Precision),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
