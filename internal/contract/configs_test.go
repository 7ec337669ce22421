package contract

import (
	"testing"

	"github.com/coffeeportal/backfill/core/fill"
	"github.com/coffeeportal/backfill/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseInput mirrors the viper defaults.
func baseInput() *ConfigRawInput {
	return &ConfigRawInput{
		Precision:    DefaultPrecision,
		Output:       string(schema.TextOut),
		Color:        "yes",
		CacheBackend: string(schema.SQLiteBackend),
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name:   "valid minimal config",
			mutate: func(*ConfigRawInput) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.TextOut, cfg.Output)
				assert.Equal(t, schema.NoneBackend, cfg.SourceBackend)
				assert.Equal(t, fill.DefaultOptions(), cfg.Fill)
				assert.True(t, cfg.UseColors)
			},
		},
		{
			name: "table and column resolved case-insensitively",
			mutate: func(in *ConfigRawInput) {
				in.Table = "Production"
				in.Column = "OUTPUT_TONS"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.MetricRef{Table: "production", Column: "output_tons"}, cfg.Metric())
			},
		},
		{
			name:   "table without column",
			mutate: func(in *ConfigRawInput) { in.Table = "export_performance" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "export_performance", cfg.Table)
				assert.Empty(t, cfg.Column)
			},
		},
		{
			name:        "column without table",
			mutate:      func(in *ConfigRawInput) { in.Column = "output_tons" },
			expectError: true,
		},
		{
			name: "unknown column",
			mutate: func(in *ConfigRawInput) {
				in.Table = "production"
				in.Column = "price_vn_usd_per_ton"
			},
			expectError: true,
		},
		{
			name:        "unknown table",
			mutate:      func(in *ConfigRawInput) { in.Table = "users" },
			expectError: true,
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "yaml" },
			expectError: true,
		},
		{
			name:        "xlsx output needs a file",
			mutate:      func(in *ConfigRawInput) { in.Output = "xlsx" },
			expectError: true,
		},
		{
			name: "xlsx output with a file",
			mutate: func(in *ConfigRawInput) {
				in.Output = "XLSX"
				in.OutputFile = "series.xlsx"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.XLSXOut, cfg.Output)
			},
		},
		{
			name:        "precision too high",
			mutate:      func(in *ConfigRawInput) { in.Precision = 5 },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "sometimes" },
			expectError: true,
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: true,
		},
		{
			name: "mysql cache without tcp",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "mysql"
				in.CacheDBConnect = "user:pass@localhost/db"
			},
			expectError: true,
		},
		{
			name: "cache and runs on the same sqlite file",
			mutate: func(in *ConfigRawInput) {
				in.CacheDBConnect = "/tmp/same.db"
				in.RunsBackend = "sqlite"
				in.RunsDBConnect = "/tmp/same.db"
			},
			expectError: true,
		},
		{
			name: "postgres runs backend",
			mutate: func(in *ConfigRawInput) {
				in.RunsBackend = "postgresql"
				in.RunsDBConnect = "host=localhost dbname=backfill"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.PostgreSQLBackend, cfg.RunsBackend)
			},
		},
		{
			name: "mysql source",
			mutate: func(in *ConfigRawInput) {
				in.SourceBackend = "mysql"
				in.SourceDBConnect = "portal:secret@tcp(db:3306)/coffee"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.MySQLBackend, cfg.SourceBackend)
				assert.Equal(t, "mysql", cfg.Params()["source"])
			},
		},
		{
			name:        "sqlite source needs a path",
			mutate:      func(in *ConfigRawInput) { in.SourceBackend = "sqlite" },
			expectError: true,
		},
		{
			name: "input file overrides source",
			mutate: func(in *ConfigRawInput) {
				in.Input = "/data/production.xlsx"
				in.Sheet = "production"
				in.SourceBackend = "mysql"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.NoneBackend, cfg.SourceBackend)
				assert.Equal(t, "production", cfg.Sheet)
				assert.Equal(t, "production.xlsx", cfg.Params()["source"])
			},
		},
		{
			name:        "unsupported input extension",
			mutate:      func(in *ConfigRawInput) { in.Input = "production.json" },
			expectError: true,
		},
		{
			name: "sheet on csv input",
			mutate: func(in *ConfigRawInput) {
				in.Input = "production.csv"
				in.Sheet = "x"
			},
			expectError: true,
		},
		{
			name: "custom reconstruction options",
			mutate: func(in *ConfigRawInput) {
				in.TrailingDampening = 0.5
				in.MaxInteriorGap = 4
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.5, cfg.Fill.TrailingDampening)
				assert.Equal(t, 4, cfg.Fill.MaxInteriorGap)
				assert.Equal(t, fill.DefaultLeadingDampening, cfg.Fill.LeadingDampening)
			},
		},
		{
			name:        "invalid reconstruction options",
			mutate:      func(in *ConfigRawInput) { in.LeadingDampening = 1.7 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			tt.mutate(input)
			cfg := &Config{}

			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "", true},
		{schema.MySQLBackend, "u:p@tcp(localhost:3306)/db", false},
		{schema.MySQLBackend, "u:p@tcp(localhost:3306)", true},
		{schema.MySQLBackend, "u:p@localhost", true},
		{schema.PostgreSQLBackend, "host=localhost dbname=db", false},
		{schema.PostgreSQLBackend, "host=localhost", true},
		{schema.PostgreSQLBackend, "dbname=db", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.connStr, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Table: "production", Column: "output_tons", Fill: fill.DefaultOptions()}
	clone := cfg.Clone()
	clone.Column = "export_tons"
	clone.Fill.TrendWindow = 3

	assert.Equal(t, "output_tons", cfg.Column)
	assert.Equal(t, fill.DefaultTrendWindow, cfg.Fill.TrendWindow)
}
