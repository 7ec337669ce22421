package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// Provenance records where a reconstructed value came from.
	Provenance string

	// NoteKind classifies an estimation-quality note.
	NoteKind string

	// DatabaseBackend represents the database backend for sources, caching and run tracking.
	DatabaseBackend string
)

// All output modes supported.
const (
	TextOut    OutputMode = "text" // default
	CSVOut     OutputMode = "csv"
	JSONOut    OutputMode = "json"
	XLSXOut    OutputMode = "xlsx"
	ParquetOut OutputMode = "parquet"
	PNGOut     OutputMode = "png"
)

// All provenance tags. Input points never carry one; the reconstructor assigns them.
const (
	Actual       Provenance = "actual"
	Interpolated Provenance = "interpolated"
	Extrapolated Provenance = "extrapolated"
)

// All estimation note kinds.
const (
	LongInteriorGapNote  NoteKind = "long_interior_gap"
	DegenerateFitNote    NoteKind = "degenerate_fit"
	DegenerateTrendNote  NoteKind = "degenerate_trend"
	DegenerateGrowthNote NoteKind = "degenerate_growth"
	SparseTrendNote      NoteKind = "sparse_trend"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ReconstructionMethod is reported in every series metadata block.
const ReconstructionMethod = "polynomial_interpolation + trend_extrapolation"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:    {},
	CSVOut:     {},
	JSONOut:    {},
	XLSXOut:    {},
	ParquetOut: {},
	PNGOut:     {},
}

// FileOutputModes lists the output modes that cannot be streamed to stdout.
var FileOutputModes = map[OutputMode]struct{}{
	XLSXOut:    {},
	ParquetOut: {},
	PNGOut:     {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// IsEstimated reports whether the value was filled rather than observed.
func (p Provenance) IsEstimated() bool {
	return p == Interpolated || p == Extrapolated
}
