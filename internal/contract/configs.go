package contract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coffeeportal/backfill/core/fill"
	"github.com/coffeeportal/backfill/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 2
	MaxPrecision     = 4
)

// Supported input file extensions.
const (
	CSVExt  = ".csv"
	XLSXExt = ".xlsx"
)

// Config holds the runtime configuration for a reconstruction.
// This struct remains the "final, validated" config.
type Config struct {
	Table  string
	Column string

	InputFile       string // CSV or XLSX file; takes precedence over the source database
	Sheet           string // XLSX sheet name (empty = first sheet)
	SourceBackend   schema.DatabaseBackend
	SourceDBConnect string // Please use env var as this is plaintext

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	Fill fill.Options

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile      string `mapstructure:"output-file"`
	Precision       int    `mapstructure:"precision"`
	Output          string `mapstructure:"output"`
	Width           int    `mapstructure:"width"`
	Color           string `mapstructure:"color"`
	CacheBackend    string `mapstructure:"cache-backend"`
	CacheDBConnect  string `mapstructure:"cache-db-connect"`
	RunsBackend     string `mapstructure:"runs-backend"`
	RunsDBConnect   string `mapstructure:"runs-db-connect"`
	SourceBackend   string `mapstructure:"source-backend"`
	SourceDBConnect string `mapstructure:"source-db-connect"`
	Input           string `mapstructure:"input"`
	Sheet           string `mapstructure:"sheet"`

	// --- Fields from seriesCmd and tableCmd flags ---
	Table  string `mapstructure:"table"`
	Column string `mapstructure:"column"`

	// --- Reconstruction tuning, usually from the config file ---
	MinPoints         int     `mapstructure:"min-points"`
	TrendWindow       int     `mapstructure:"trend-window"`
	TrailingDampening float64 `mapstructure:"trailing-dampening"`
	LeadingDampening  float64 `mapstructure:"leading-dampening"`
	Neighborhood      int     `mapstructure:"neighborhood"`
	MaxInteriorGap    int     `mapstructure:"max-interior-gap"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Metric returns the configured table and column as a reference.
func (c *Config) Metric() schema.MetricRef {
	return schema.MetricRef{Table: c.Table, Column: c.Column}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processSource(cfg, input); err != nil {
		return err
	}
	if err := processMetric(cfg, input); err != nil {
		return err
	}
	if err := processFillOptions(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend lowercases and validates a backend name.
func ParseBackend(kind, raw string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid %s backend '%s'. must be sqlite, mysql, postgresql, none", kind, raw)
	}
	return backend, nil
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, xlsx, parquet, png", input.Output)
	}
	if _, ok := schema.FileOutputModes[cfg.Output]; ok && cfg.OutputFile == "" {
		return fmt.Errorf("output format '%s' requires --output-file", cfg.Output)
	}
	return nil
}

// validateBackendConfigs validates cache and run tracking backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	backend, err := ParseBackend("cache", input.CacheBackend)
	if err != nil {
		return err
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Run Tracking Backend Validation ---
	if input.RunsBackend == "" {
		return nil
	}
	backend, err = ParseBackend("runs", input.RunsBackend)
	if err != nil {
		return err
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return err
	}

	// Cache and run tracking must not share a SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunsBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		runsDBPath := cfg.RunsDBConnect
		if runsDBPath == "" {
			runsDBPath = GetRunsDBFilePath()
		}
		if cacheDBPath == runsDBPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// processSource decides where the raw series come from.
func processSource(cfg *Config, input *ConfigRawInput) error {
	cfg.InputFile = strings.TrimSpace(input.Input)
	cfg.Sheet = strings.TrimSpace(input.Sheet)
	if cfg.InputFile != "" {
		ext := strings.ToLower(filepath.Ext(cfg.InputFile))
		if ext != CSVExt && ext != XLSXExt {
			return fmt.Errorf("input file must be %s or %s (received %q)", CSVExt, XLSXExt, cfg.InputFile)
		}
		if cfg.Sheet != "" && ext != XLSXExt {
			return fmt.Errorf("--sheet only applies to %s input", XLSXExt)
		}
		cfg.SourceBackend = schema.NoneBackend
		return nil
	}

	raw := input.SourceBackend
	if raw == "" {
		raw = string(schema.NoneBackend)
	}
	backend, err := ParseBackend("source", raw)
	if err != nil {
		return err
	}
	cfg.SourceBackend = backend
	cfg.SourceDBConnect = input.SourceDBConnect
	if backend == schema.SQLiteBackend && cfg.SourceDBConnect == "" {
		return fmt.Errorf("source-db-connect must name the SQLite database file")
	}
	return ValidateDatabaseConnectionString(backend, cfg.SourceDBConnect)
}

// processMetric validates the table and column names against the metric registry.
// Both may be empty for commands that receive the metric later.
func processMetric(cfg *Config, input *ConfigRawInput) error {
	cfg.Table, cfg.Column = "", ""
	tableName := strings.TrimSpace(input.Table)
	columnName := strings.TrimSpace(input.Column)
	if tableName == "" {
		if columnName != "" {
			return fmt.Errorf("--column requires --table")
		}
		return nil
	}
	if columnName == "" {
		table, err := schema.LookupTable(tableName)
		if err != nil {
			return err
		}
		cfg.Table = table.Name
		return nil
	}
	metric, err := schema.LookupMetric(tableName, columnName)
	if err != nil {
		return err
	}
	cfg.Table, cfg.Column = metric.Table, metric.Column
	return nil
}

// processFillOptions overlays configured reconstruction parameters on the defaults.
// Zero values keep the default.
func processFillOptions(cfg *Config, input *ConfigRawInput) error {
	opts := fill.DefaultOptions()
	if input.MinPoints != 0 {
		opts.MinPoints = input.MinPoints
	}
	if input.TrendWindow != 0 {
		opts.TrendWindow = input.TrendWindow
	}
	if input.TrailingDampening != 0 {
		opts.TrailingDampening = input.TrailingDampening
	}
	if input.LeadingDampening != 0 {
		opts.LeadingDampening = input.LeadingDampening
	}
	if input.Neighborhood != 0 {
		opts.Neighborhood = input.Neighborhood
	}
	if input.MaxInteriorGap != 0 {
		opts.MaxInteriorGap = input.MaxInteriorGap
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid reconstruction options: %w", err)
	}
	cfg.Fill = opts
	return nil
}

// Params flattens the settings that influence results, for run tracking and cache keys.
func (c *Config) Params() map[string]any {
	return map[string]any{
		"table":              c.Table,
		"column":             c.Column,
		"source":             c.sourceLabel(),
		"min_points":         c.Fill.MinPoints,
		"trend_window":       c.Fill.TrendWindow,
		"trailing_dampening": c.Fill.TrailingDampening,
		"leading_dampening":  c.Fill.LeadingDampening,
		"neighborhood":       c.Fill.Neighborhood,
		"max_interior_gap":   c.Fill.MaxInteriorGap,
	}
}

// sourceLabel names the source without leaking credentials.
func (c *Config) sourceLabel() string {
	if c.InputFile != "" {
		return filepath.Base(c.InputFile)
	}
	return string(c.SourceBackend)
}
