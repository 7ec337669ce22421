package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]any{"year": 2024}))
	assert.Equal(t, "{\n  \"year\": 2024\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{
			name:     "simple csv",
			header:   []string{"year", "value"},
			rows:     [][]string{{"2023", "1.5"}, {"2024", "2"}},
			expected: "year,value\n2023,1.5\n2024,2\n",
		},
		{
			name:     "empty rows",
			header:   []string{"col1", "col2"},
			expected: "col1,col2\n",
		},
		{
			name:     "values with commas",
			header:   []string{"year", "note"},
			rows:     [][]string{{"2024", "held flat, zero base"}},
			expected: "year,note\n2024,\"held flat, zero base\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, tt.header, func(w *csv.Writer) error {
				for _, row := range tt.rows {
					if err := w.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteCSVWithHeaderError(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"col"}, func(w *csv.Writer) error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(tmpFile, func(w io.Writer) error {
		_, err := w.Write([]byte("content"))
		return err
	}, "Wrote test")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))

	err = writeWithFile(tmpFile, func(io.Writer) error { return assert.AnError }, "Wrote test")
	assert.Equal(t, assert.AnError, err)

	err = writeWithFile("/nonexistent/path/file.txt", func(io.Writer) error { return nil }, "Wrote test")
	assert.Error(t, err)
}

func TestProvenanceLabel(t *testing.T) {
	assert.Equal(t, "Interpolated", provenanceLabel(schema.Interpolated, false))
	assert.Equal(t, contract.GetColorLabel(schema.Extrapolated), provenanceLabel(schema.Extrapolated, true))
}

func TestNotesByYear(t *testing.T) {
	notes := notesByYear([]schema.EstimationNote{
		{Year: 2020, Kind: schema.LongInteriorGapNote, Detail: "linear fill"},
		{Year: 2020, Kind: schema.DegenerateGrowthNote, Detail: "zero base"},
		{Year: 2022, Kind: schema.DegenerateTrendNote, Detail: "held flat"},
	})
	assert.Equal(t, "linear fill; zero base", notes[2020])
	assert.Equal(t, "held flat", notes[2022])
	assert.Empty(t, notes[2021])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestGetMaxNoteWidth(t *testing.T) {
	assert.Equal(t, 12, GetMaxNoteWidth(&contract.Config{Width: 40}))
	assert.Equal(t, 40, GetMaxNoteWidth(&contract.Config{Width: 100}))
	assert.Equal(t, 80, GetMaxNoteWidth(&contract.Config{Width: 400}))
}

func TestFormatCSVGrowth(t *testing.T) {
	g := -2.5
	assert.Equal(t, "-2.50", formatCSVGrowth(&g, 2))
	assert.Equal(t, "", formatCSVGrowth(nil, 2))
}
