package cmd

import (
	"github.com/coffeeportal/backfill/core"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/internal/outwriter"
	"github.com/spf13/cobra"
)

// seriesCmd reconstructs a single metric.
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Reconstruct one metric and show every year with its provenance.",
	Long: `Load one metric column, fill its missing years and print the complete series.

Interior gaps are interpolated from the surrounding actual values. Gaps after
the latest actual year follow the recent growth trend, dampened; gaps before
the first actual year follow the early trend backward. Actual values are never
changed.

Examples:
  # Reconstruct from a MySQL database
  BACKFILL_SOURCE_DB_CONNECT="user:pass@tcp(localhost:3306)/coffee?parseTime=true" \
    backfill series --source-backend mysql --table production --column output_tons

  # Reconstruct from a spreadsheet export
  backfill series --input production.csv --table production --column export_tons

  # Dashboard payload and a chart
  backfill series --input data.xlsx --table export_performance --column price_vn_usd_per_ton --output json
  backfill series --input data.xlsx --table production --column output_tons --output png --output-file output.png`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		source, err := core.OpenSource(cfg)
		if err != nil {
			contract.LogFatal("Cannot open series source", err)
		}
		defer func() { _ = source.Close() }()

		if err := core.ExecuteSeries(rootCtx, cfg, cacheManager, source, outwriter.NewOutWriter()); err != nil {
			contract.LogFatal("Cannot reconstruct series", err)
		}
	},
}
