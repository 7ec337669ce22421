package schema

// ResponsePoint is the per-year entry of the response payload.
type ResponsePoint struct {
	Year       int        `json:"year"`
	Value      float64    `json:"value"`
	Estimated  bool       `json:"estimated"`
	Provenance Provenance `json:"provenance"`
	GrowthRate *float64   `json:"growth_rate"`
}

// SeriesResponse is the payload shape consumed by the dashboard.
type SeriesResponse struct {
	Metric   MetricRef       `json:"metric"`
	Data     []ResponsePoint `json:"data"`
	Metadata SeriesMetadata  `json:"metadata"`
	Stats    SeriesStats     `json:"stats"`
}

// NewSeriesResponse converts a reconstructed series into the response payload.
func NewSeriesResponse(s ReconstructedSeries) SeriesResponse {
	data := make([]ResponsePoint, len(s.Points))
	for i, p := range s.Points {
		data[i] = ResponsePoint{
			Year:       p.Year,
			Value:      p.Value,
			Estimated:  p.Provenance.IsEstimated(),
			Provenance: p.Provenance,
			GrowthRate: p.GrowthRate,
		}
	}
	return SeriesResponse{
		Metric:   s.Metric,
		Data:     data,
		Metadata: s.Metadata,
		Stats:    s.Stats,
	}
}

// SeriesFailure records a metric whose reconstruction was aborted.
type SeriesFailure struct {
	Metric MetricRef `json:"metric"`
	Reason string    `json:"reason"`
}

// TableResult bundles every column reconstructed from one table.
type TableResult struct {
	Table    string                `json:"table"`
	Series   []ReconstructedSeries `json:"series"`
	Failures []SeriesFailure       `json:"failures,omitempty"`
}

// TableResponse is the payload shape for a whole table.
type TableResponse struct {
	Table    string           `json:"table"`
	Series   []SeriesResponse `json:"series"`
	Failures []SeriesFailure  `json:"failures,omitempty"`
}

// NewTableResponse converts a table result into the response payload.
func NewTableResponse(r TableResult) TableResponse {
	series := make([]SeriesResponse, len(r.Series))
	for i, s := range r.Series {
		series[i] = NewSeriesResponse(s)
	}
	return TableResponse{Table: r.Table, Series: series, Failures: r.Failures}
}
