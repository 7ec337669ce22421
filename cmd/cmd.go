// Package cmd defines the command-line interface for backfill.
package cmd

import (
	"strings"

	"github.com/coffeeportal/backfill/core/fill"
	"github.com/coffeeportal/backfill/internal/contract"
	"github.com/coffeeportal/backfill/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("input", "", "CSV or XLSX file with a year column (takes precedence over --source-backend)")
	rootCmd.PersistentFlags().String("sheet", "", "XLSX sheet to read (default: first sheet)")
	rootCmd.PersistentFlags().String("source-backend", "", "Source database backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("source-db-connect", "", "Source database connection string or SQLite file path")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or xlsx or parquet or png")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to (required for xlsx, parquet, png)")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for values")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored provenance labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("runs-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("runs-db-connect", "", "Database connection string for run tracking (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().Int("min-points", fill.DefaultMinPoints, "Shortest series accepted for reconstruction")
	rootCmd.PersistentFlags().Int("trend-window", fill.DefaultTrendWindow, "Trailing actual values considered for the trend")
	rootCmd.PersistentFlags().Float64("trailing-dampening", fill.DefaultTrailingDampening, "Multiplier on the recent growth rate going forward")
	rootCmd.PersistentFlags().Float64("leading-dampening", fill.DefaultLeadingDampening, "Multiplier on the early growth rate going backward")
	rootCmd.PersistentFlags().Int("neighborhood", fill.DefaultNeighborhood, "Actual points per side used for interpolation")
	rootCmd.PersistentFlags().Int("max-interior-gap", fill.DefaultMaxInteriorGap, "Longer interior gaps fall back to linear interpolation")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// series and table flags are bound when the command runs
	seriesCmd.Flags().String("table", "", "Metric table: "+strings.Join(schema.TableNames(), " or "))
	seriesCmd.Flags().String("column", "", "Metric column of the table")
	tableCmd.Flags().String("table", "", "Metric table: "+strings.Join(schema.TableNames(), " or "))

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
