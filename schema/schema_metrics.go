package schema

import (
	"fmt"
	"slices"
	"strings"
)

// MetricRef names one numeric column of a year-indexed table.
type MetricRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// String returns the table.column form used in logs and cache keys.
func (m MetricRef) String() string {
	if m.Table == "" {
		return m.Column
	}
	return m.Table + "." + m.Column
}

// MetricTable lists the reconstructable columns of a source table.
type MetricTable struct {
	Name        string
	Description string
	Columns     []MetricColumn
}

// MetricColumn describes one reconstructable column.
type MetricColumn struct {
	Name string
	Unit string
}

// YearColumn is the index column shared by every metric table.
const YearColumn = "year"

// Known metric tables.
var (
	ProductionTable = MetricTable{
		Name:        "production",
		Description: "Planted area, output and export volume by year",
		Columns: []MetricColumn{
			{Name: "area_thousand_ha", Unit: "thousand ha"},
			{Name: "output_tons", Unit: "tons"},
			{Name: "export_tons", Unit: "tons"},
		},
	}

	ExportPerformanceTable = MetricTable{
		Name:        "export_performance",
		Description: "Export volume, value and prices by year",
		Columns: []MetricColumn{
			{Name: "area_thousand_ha", Unit: "thousand ha"},
			{Name: "production_tons", Unit: "tons"},
			{Name: "export_tons", Unit: "tons"},
			{Name: "export_value_million_usd", Unit: "million USD"},
			{Name: "price_world_usd_per_ton", Unit: "USD/ton"},
			{Name: "price_vn_usd_per_ton", Unit: "USD/ton"},
		},
	}
)

// MetricTables is the registry of every table the source store may read.
var MetricTables = map[string]MetricTable{
	ProductionTable.Name:        ProductionTable,
	ExportPerformanceTable.Name: ExportPerformanceTable,
}

// ColumnNames returns the column names of the table in declaration order.
func (t MetricTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t MetricTable) Column(name string) (MetricColumn, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return MetricColumn{}, false
}

// LookupTable returns the registered table with the given name.
func LookupTable(name string) (MetricTable, error) {
	t, ok := MetricTables[strings.ToLower(name)]
	if !ok {
		return MetricTable{}, fmt.Errorf("unknown table %q. must be one of %s", name, strings.Join(TableNames(), ", "))
	}
	return t, nil
}

// LookupMetric validates a table/column pair against the registry.
func LookupMetric(table, column string) (MetricRef, error) {
	t, err := LookupTable(table)
	if err != nil {
		return MetricRef{}, err
	}
	col := strings.ToLower(column)
	if _, ok := t.Column(col); !ok {
		return MetricRef{}, fmt.Errorf("unknown column %q for table %s. must be one of %s", column, t.Name, strings.Join(t.ColumnNames(), ", "))
	}
	return MetricRef{Table: t.Name, Column: col}, nil
}

// TableNames returns the registered table names, sorted.
func TableNames() []string {
	names := make([]string, 0, len(MetricTables))
	for name := range MetricTables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
