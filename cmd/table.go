package cmd

import (
	"github.com/coffeeportal/backfill/core"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/outwriter"
	"github.com/spf13/cobra"
)

// tableCmd reconstructs every column of a metric table.
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Reconstruct every column of a metric table.",
	Long: `Reconstruct all registered columns of one table in a single run.

A column that cannot be reconstructed (too few years, no actual values) is
reported and skipped; the command fails only when no column succeeds.

Examples:
  # Year-by-column grid with estimated cells marked
  backfill table --input production.csv --table production

  # One workbook, one sheet per column
  backfill table --input export.xlsx --table export_performance --output xlsx --output-file export_filled.xlsx`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		source, err := core.OpenSource(cfg)
		if err != nil {
			contract.LogFatal("Cannot open series source", err)
		}
		defer func() { _ = source.Close() }()

		if err := core.ExecuteTable(rootCtx, cfg, cacheManager, source, outwriter.NewOutWriter()); err != nil {
			contract.LogFatal("Cannot reconstruct table", err)
		}
	},
}
