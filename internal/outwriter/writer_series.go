package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/xuri/excelize/v2"
)

// seriesCSVHeader is the long-format header shared by series and table CSV output.
var seriesCSVHeader = []string{
	"table",
	"column",
	"year",
	"value",
	"estimated",
	"provenance",
	"growth_rate",
}

// writeCSVSeries writes one row per point of every series.
func writeCSVSeries(w io.Writer, precision int, series ...schema.ReconstructedSeries) error {
	return writeCSVWithHeader(w, seriesCSVHeader, func(cw *csv.Writer) error {
		for _, s := range series {
			for _, p := range s.Points {
				row := []string{
					s.Metric.Table,
					s.Metric.Column,
					strconv.Itoa(p.Year),
					contract.FormatValue(p.Value, precision),
					strconv.FormatBool(p.Provenance.IsEstimated()),
					string(p.Provenance),
					formatCSVGrowth(p.GrowthRate, precision),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// xlsxSheetLimit is the longest sheet name Excel accepts.
const xlsxSheetLimit = 31

// sheetName derives a unique, valid sheet name for a metric column.
func sheetName(column string, used map[string]bool) string {
	base := truncate(column, xlsxSheetLimit)
	if base == "" {
		base = "series"
	}
	name := base
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		name = string([]rune(base)[:min(len([]rune(base)), xlsxSheetLimit-len(suffix))]) + suffix
	}
	used[name] = true
	return name
}

// writeXLSX writes a Summary sheet plus one sheet per series.
// Estimated rows are italic and shaded. Values are stored as numbers.
func writeXLSX(w io.Writer, precision int, failures []schema.SeriesFailure, series ...schema.ReconstructedSeries) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	numFmt := "0"
	if precision > 0 {
		numFmt = "0." + fmt.Sprintf("%0*d", precision, 0)
	}
	valueStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}
	estimatedStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Font:         &excelize.Font{Italic: true},
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF2CC"}},
	})
	if err != nil {
		return err
	}

	summaryHeader := []any{"Table", "Column", "First Year", "Last Year", "Latest Actual Year", "Estimated", "Avg", "Total", "Latest", "Change %", "Min", "Max"}
	if err := f.SetSheetRow(summary, "A1", &summaryHeader); err != nil {
		return err
	}
	_ = f.SetRowStyle(summary, 1, 1, headerStyle)

	used := map[string]bool{summary: true}
	for i, s := range series {
		row := []any{
			s.Metric.Table, s.Metric.Column, s.FirstYear(), s.LastYear(), s.Metadata.LatestActualYear,
			s.EstimatedCount(), s.Stats.Avg, s.Stats.Total, s.Stats.Latest, growthCell(s.Stats.ChangePct), s.Stats.Min, s.Stats.Max,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return err
		}
		if err := writeSeriesSheet(f, sheetName(s.Metric.Column, used), s, headerStyle, valueStyle, estimatedStyle); err != nil {
			return fmt.Errorf("sheet for %s: %w", s.Metric, err)
		}
	}

	for i, failure := range failures {
		cell, _ := excelize.CoordinatesToCellName(1, len(series)+3+i)
		row := []any{failure.Metric.Table, failure.Metric.Column, "failed: " + failure.Reason}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(summary, "A", "B", 24)

	_, err = f.WriteTo(w)
	return err
}

func writeSeriesSheet(f *excelize.File, sheet string, s schema.ReconstructedSeries, headerStyle, valueStyle, estimatedStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{"Year", "Value", "Estimated", "Provenance", "Growth %", "Note"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	_ = f.SetRowStyle(sheet, 1, 1, headerStyle)

	notes := notesByYear(s.Metadata.EstimationNotes)
	for i, p := range s.Points {
		rowNum := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		row := []any{p.Year, p.Value, p.Provenance.IsEstimated(), string(p.Provenance), growthCell(p.GrowthRate), notes[p.Year]}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		style := valueStyle
		if p.Provenance.IsEstimated() {
			style = estimatedStyle
		}
		valueCell, _ := excelize.CoordinatesToCellName(2, rowNum)
		if err := f.SetCellStyle(sheet, valueCell, valueCell, style); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "B", "B", 16)
	_ = f.SetColWidth(sheet, "D", "D", 14)
	_ = f.SetColWidth(sheet, "F", "F", 40)
	return nil
}

// growthCell leaves undefined growth blank instead of writing zero.
func growthCell(g *float64) any {
	if g == nil {
		return nil
	}
	return *g
}
