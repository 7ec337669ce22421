package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coffeeportal/backfill/schema"
	"github.com/fatih/color"
)

// Color variables for console output.
var (
	ActualColor       = color.New(color.FgGreen)              // ActualColor marks observed values.
	InterpolatedColor = color.New(color.FgYellow)             // InterpolatedColor marks values filled between observations.
	ExtrapolatedColor = color.New(color.FgMagenta, color.Bold) // ExtrapolatedColor marks values projected past the edges.
)

// GetPlainLabel returns the display label for a provenance.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(p schema.Provenance) string {
	switch p {
	case schema.Actual:
		return "Actual"
	case schema.Interpolated:
		return "Interpolated"
	case schema.Extrapolated:
		return "Extrapolated"
	default:
		return "Unknown"
	}
}

// GetColorLabel returns a colored provenance label for console output (table).
func GetColorLabel(p schema.Provenance) string {
	text := GetPlainLabel(p)

	switch p {
	case schema.Actual:
		return ActualColor.Sprint(text)
	case schema.Interpolated:
		return InterpolatedColor.Sprint(text)
	case schema.Extrapolated:
		return ExtrapolatedColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo prints a progress line to stderr so stdout stays machine readable.
func LogInfo(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for result caching.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".backfill_cache.db"
	}
	return filepath.Join(homeDir, ".backfill_cache.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run tracking.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".backfill_runs.db"
	}
	return filepath.Join(homeDir, ".backfill_runs.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// FormatValue renders a number with the given precision.
func FormatValue(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// FormatGrowth renders a growth rate as a percentage, or "-" when undefined.
func FormatGrowth(g *float64, precision int) string {
	if g == nil {
		return "-"
	}
	return fmt.Sprintf("%+.*f%%", precision, *g)
}
