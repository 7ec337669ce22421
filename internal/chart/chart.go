// Package chart draws reconstructed series as PNG line charts with gonum.org/v1/plot.
//
// Segments between two actual points are solid; any segment touching an
// estimated point is dashed. Each provenance gets its own marker shape.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/coffeeportal/backfill/schema"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Chart dimensions per series.
const (
	Width       = 8 * vg.Inch
	PanelHeight = 4 * vg.Inch
)

var (
	lineColor = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}
	dashes    = []vg.Length{vg.Points(6), vg.Points(4)}

	markers = map[schema.Provenance]struct {
		shape draw.GlyphDrawer
		color color.Color
	}{
		schema.Actual:       {draw.CircleGlyph{}, color.RGBA{R: 0x2c, G: 0x7b, B: 0x2c, A: 0xff}},
		schema.Interpolated: {draw.TriangleGlyph{}, color.RGBA{R: 0xd6, G: 0x9e, B: 0x00, A: 0xff}},
		schema.Extrapolated: {draw.BoxGlyph{}, color.RGBA{R: 0xb0, G: 0x3a, B: 0x9e, A: 0xff}},
	}
)

// segment is a polyline drawn with one style.
type segment struct {
	xys    plotter.XYs
	dashed bool
}

// segments groups consecutive points into polylines. A link is solid only when
// both of its endpoints are actual values.
func segments(points []schema.ReconstructedPoint) []segment {
	var out []segment
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		dashed := prev.Provenance.IsEstimated() || cur.Provenance.IsEstimated()
		next := plotter.XY{X: float64(cur.Year), Y: cur.Value}
		if n := len(out); n > 0 && out[n-1].dashed == dashed {
			out[n-1].xys = append(out[n-1].xys, next)
			continue
		}
		out = append(out, segment{
			xys:    plotter.XYs{{X: float64(prev.Year), Y: prev.Value}, next},
			dashed: dashed,
		})
	}
	return out
}

// yearTicks labels whole years, thinning labels on long ranges.
type yearTicks struct{}

func (yearTicks) Ticks(lo, hi float64) []plot.Tick {
	first, last := int(math.Ceil(lo)), int(math.Floor(hi))
	step := 1
	if span := last - first; span > 12 {
		step = (span + 11) / 12
	}
	var ticks []plot.Tick
	for y := first; y <= last; y++ {
		tick := plot.Tick{Value: float64(y)}
		if (y-first)%step == 0 {
			tick.Label = fmt.Sprint(y)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

// New builds the plot for one series.
func New(series schema.ReconstructedSeries) (*plot.Plot, error) {
	if len(series.Points) == 0 {
		return nil, errors.New("cannot chart an empty series")
	}

	p := plot.New()
	p.Title.Text = series.Metric.String()
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Year"
	p.X.Tick.Marker = yearTicks{}
	p.Y.Label.Text = yLabel(series.Metric)
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	for _, seg := range segments(series.Points) {
		line, err := plotter.NewLine(seg.xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build line: %w", err)
		}
		line.Color = lineColor
		line.Width = vg.Points(2)
		if seg.dashed {
			line.Dashes = dashes
		}
		p.Add(line)
	}

	for _, prov := range []schema.Provenance{schema.Actual, schema.Interpolated, schema.Extrapolated} {
		var xys plotter.XYs
		for _, pt := range series.Points {
			if pt.Provenance == prov {
				xys = append(xys, plotter.XY{X: float64(pt.Year), Y: pt.Value})
			}
		}
		if len(xys) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s markers: %w", prov, err)
		}
		m := markers[prov]
		scatter.GlyphStyle.Shape = m.shape
		scatter.GlyphStyle.Color = m.color
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add(string(prov), scatter)
	}

	// Keep one year of breathing room on both ends
	p.X.Min = float64(series.FirstYear()) - 0.5
	p.X.Max = float64(series.LastYear()) + 0.5
	return p, nil
}

func yLabel(m schema.MetricRef) string {
	table, err := schema.LookupTable(m.Table)
	if err != nil {
		return m.Column
	}
	if col, ok := table.Column(m.Column); ok && col.Unit != "" {
		return fmt.Sprintf("%s (%s)", m.Column, col.Unit)
	}
	return m.Column
}

// Render writes a PNG with one panel per series, stacked vertically.
func Render(w io.Writer, series ...schema.ReconstructedSeries) error {
	if len(series) == 0 {
		return errors.New("no series to chart")
	}

	plots := make([][]*plot.Plot, len(series))
	for i, s := range series {
		p, err := New(s)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Metric, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(Width, PanelHeight*vg.Length(len(series)))
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: len(series), Cols: 1, PadY: vg.Millimeter * 4, PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
