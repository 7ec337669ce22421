package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// provenanceLabel picks the colored or plain label.
func provenanceLabel(p schema.Provenance, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(p)
	}
	return contract.GetPlainLabel(p)
}

// notesByYear joins the estimation notes of each year.
func notesByYear(notes []schema.EstimationNote) map[int]string {
	grouped := make(map[int][]string)
	for _, n := range notes {
		grouped[n.Year] = append(grouped[n.Year], n.Detail)
	}
	out := make(map[int]string, len(grouped))
	for year, details := range grouped {
		out[year] = strings.Join(details, "; ")
	}
	return out
}

// formatCSVGrowth leaves undefined growth empty so spreadsheets read it as blank.
func formatCSVGrowth(g *float64, precision int) string {
	if g == nil {
		return ""
	}
	return contract.FormatValue(*g, precision)
}
