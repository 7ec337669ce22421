package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(v float64) *float64 { return &v }

func sampleSeries(column string) schema.ReconstructedSeries {
	return schema.ReconstructedSeries{
		Metric: schema.MetricRef{Table: "production", Column: column},
		Points: []schema.ReconstructedPoint{
			{Year: 2021, Value: 100, Provenance: schema.Actual},
			{Year: 2022, Value: 110, Provenance: schema.Actual, GrowthRate: ptr(10)},
			{Year: 2023, Value: 118.8, Provenance: schema.Extrapolated, GrowthRate: ptr(8)},
		},
		Metadata: schema.SeriesMetadata{
			Interpolated:     true,
			Method:           schema.ReconstructionMethod,
			LatestActualYear: 2022,
			EstimationNotes:  []schema.EstimationNote{{Year: 2023, Kind: schema.DegenerateTrendNote, Detail: "held flat"}},
		},
		Stats: schema.SeriesStats{Avg: 109.6, Total: 328.8, Latest: 118.8, ChangePct: ptr(8), Min: 100, Max: 118.8},
	}
}

func testConfig(output schema.OutputMode, outputFile string) *contract.Config {
	return &contract.Config{Output: output, OutputFile: outputFile, Precision: 2, Width: 120, CacheBackend: schema.NoneBackend}
}

func TestWriteSeriesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, NewOutWriter().WriteSeries(sampleSeries("output_tons"), testConfig(schema.JSONOut, path), 0))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var resp schema.SeriesResponse
	require.NoError(t, json.Unmarshal(content, &resp))
	require.Len(t, resp.Data, 3)
	assert.False(t, resp.Data[0].Estimated)
	assert.Nil(t, resp.Data[0].GrowthRate)
	assert.True(t, resp.Data[2].Estimated)
	assert.Equal(t, schema.Extrapolated, resp.Data[2].Provenance)
	assert.Equal(t, 2022, resp.Metadata.LatestActualYear)
	assert.True(t, resp.Metadata.Interpolated)
	assert.Contains(t, string(content), `"growth_rate": null`)
}

func TestWriteCSVSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSVSeries(&buf, 1, sampleSeries("output_tons"), sampleSeries("export_tons")))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, seriesCSVHeader, records[0])
	assert.Equal(t, []string{"production", "output_tons", "2021", "100.0", "false", "actual", ""}, records[1])
	assert.Equal(t, []string{"production", "output_tons", "2023", "118.8", "true", "extrapolated", "8.0"}, records[3])
	assert.Equal(t, "export_tons", records[4][1])
}

func TestWriteSeriesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSeriesTable(&buf, sampleSeries("output_tons"), testConfig(schema.TextOut, "")))

	out := buf.String()
	assert.Contains(t, out, "production.output_tons (2021-2023)")
	assert.Contains(t, out, "118.80")
	assert.Contains(t, out, "Extrapolated")
	assert.Contains(t, out, "+10.0%")
	assert.Contains(t, out, "held flat")
	assert.Contains(t, out, "Change: +8.0%")
	assert.Contains(t, out, "Estimated points: 1 of 3")
}

func TestWriteTableGrid(t *testing.T) {
	result := schema.TableResult{
		Table:    "production",
		Series:   []schema.ReconstructedSeries{sampleSeries("output_tons"), sampleSeries("export_tons")},
		Failures: []schema.SeriesFailure{{Metric: schema.MetricRef{Table: "production", Column: "area_thousand_ha"}, Reason: "all values missing"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTableGrid(&buf, result, testConfig(schema.TextOut, "")))

	out := buf.String()
	assert.Contains(t, out, "118.80*")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "Skipped production.area_thousand_ha: all values missing")
	assert.Equal(t, 1, strings.Count(out, "2021 "))
}

func TestFormatGridCell(t *testing.T) {
	plain := testConfig(schema.TextOut, "")
	assert.Equal(t, "100.00 ", formatGridCell(schema.ReconstructedPoint{Value: 100, Provenance: schema.Actual}, plain))
	assert.Equal(t, "5.00*", formatGridCell(schema.ReconstructedPoint{Value: 5, Provenance: schema.Interpolated}, plain))
}

func TestWriteTableXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	result := schema.TableResult{
		Table:    "production",
		Series:   []schema.ReconstructedSeries{sampleSeries("output_tons"), sampleSeries("export_tons")},
		Failures: []schema.SeriesFailure{{Metric: schema.MetricRef{Table: "production", Column: "area_thousand_ha"}, Reason: "too few points"}},
	}
	require.NoError(t, NewOutWriter().WriteTable(result, testConfig(schema.XLSXOut, path), 0))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "output_tons", "export_tons"}, f.GetSheetList())

	rows, err := f.GetRows("output_tons")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Year", "Value", "Estimated", "Provenance", "Growth %", "Note"}, rows[0])
	assert.Equal(t, "2023", rows[3][0])
	assert.Equal(t, "extrapolated", rows[3][3])
	assert.Equal(t, "held flat", rows[3][5])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "output_tons", summary[1][1])
	assert.Contains(t, summary[4][2], "too few points")
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("x", 40)
	first := sheetName(long, used)
	second := sheetName(long, used)

	assert.Len(t, first, 31)
	assert.Len(t, second, 31)
	assert.True(t, strings.HasSuffix(second, "_2"))
	assert.NotEqual(t, first, second)
}

func TestWriteSeriesParquetAndPNG(t *testing.T) {
	dir := t.TempDir()

	parquetPath := filepath.Join(dir, "series.parquet")
	require.NoError(t, PrintSeriesResult(sampleSeries("output_tons"), testConfig(schema.ParquetOut, parquetPath), 0))
	content, err := os.ReadFile(parquetPath)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(content[:4]))

	pngPath := filepath.Join(dir, "series.png")
	require.NoError(t, PrintSeriesResult(sampleSeries("output_tons"), testConfig(schema.PNGOut, pngPath), 0))
	content, err = os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(content[:4]))
}
