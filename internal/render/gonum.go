package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
)

// Gonum draws figures with gonum.org/v1/plot.
type Gonum struct {
	Options
}

// Render draws fig and saves it to path; png, svg, pdf, eps, jpg and tif are
// supported.
func (g Gonum) Render(
	fig figure.Figure,
	path string,
) error {

	xmin, xmax, ymin, ymax := fig.Bounds()
	xpad, ypad := (xmax-xmin)/20, (ymax-ymin)/20
	xrange := []float64{xmin - xpad, xmax + xpad}
	yrange := []float64{ymin - ypad, ymax + ypad}
	if fig.XRange.Set {
		xrange = []float64{fig.XRange.Min, fig.XRange.Max}
	}
	if fig.YRange.Set {
		yrange = []float64{fig.YRange.Min, fig.YRange.Max}
	} else if fig.IsHistogram() {
		yrange[0] = 0
	}

	p, t, r, err := g.prepPlot(fig, xrange, yrange)
	if err != nil {
		return err
	}

	if fig.IsHistogram() {
		bins := make([]plotter.HistogramBin, len(fig.Bins))
		for i, b := range fig.Bins {
			bins[i] = plotter.HistogramBin{Min: b.Min, Max: b.Max, Weight: b.Height}
		}
		h := &plotter.Histogram{
			Bins:      bins,
			Width:     fig.Bins[0].Max - fig.Bins[0].Min,
			FillColor: palette(2, false),
			LineStyle: plotter.DefaultLineStyle,
		}
		h.LineStyle.Color = palette(2, true)
		p.Add(h)
	}

	if len(fig.Boxes) > 0 {
		labels := make([]string, len(fig.Boxes))
		for i, b := range fig.Boxes {
			box, err := plotter.NewBoxPlot(g.pt(60), b.Position, plotter.Values(b.Values))
			if err != nil {
				return calerr.Wrapf(calerr.ErrRender, err, "%s: box %s", fig.Name, b.Label)
			}
			box.FillColor = palette(b.Color, false)
			box.BoxStyle.Width = g.pt(1.5)
			p.Add(box)
			labels[i] = b.Label
		}
		p.NominalX(labels...)
	}

	for _, s := range fig.Series {
		pts := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			pts[i].X, pts[i].Y = pt.X, pt.Y
		}

		plotSet, err := plotter.NewScatter(pts)
		if err != nil {
			return calerr.Wrapf(calerr.ErrRender, err, "%s: series %s", fig.Name, s.Label)
		}
		plotSet.GlyphStyle.Color = palette(s.Color, false)
		plotSet.GlyphStyle.Radius = g.pt(4)
		plotSet.GlyphStyle.Shape = shape(s.Shape)

		p.Add(plotSet)
		p.Legend.Add(s.Label, plotSet)
	}

	for _, c := range fig.Curves {
		pts := make(plotter.XYs, len(c.Points))
		for i, pt := range c.Points {
			pts[i].X, pts[i].Y = pt.X, pt.Y
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return calerr.Wrapf(calerr.ErrRender, err, "%s: curve %s", fig.Name, c.Label)
		}
		l.LineStyle.Width = g.pt(2)
		l.LineStyle.Color = color.Black
		l.LineStyle.Dashes = []vg.Length{g.pt(8), g.pt(5)}
		p.Add(l)
		p.Legend.Add(c.Label, l)
	}

	for _, ref := range fig.HRefs {
		if err := g.guideLine(p, fig.Name, ref, plotter.XYs{{X: xrange[0], Y: ref.Value}, {X: xrange[1], Y: ref.Value}}); err != nil {
			return err
		}
	}
	for _, ref := range fig.VRefs {
		if err := g.guideLine(p, fig.Name, ref, plotter.XYs{{X: ref.Value, Y: yrange[0]}, {X: ref.Value, Y: yrange[1]}}); err != nil {
			return err
		}
	}

	if fig.Note != "" {
		p.Legend.Add(fig.Note)
	}

	p.Add(t, r)

	side := vg.Length(g.size()) * vg.Inch
	if err := p.Save(side, side, path); err != nil {
		return calerr.Wrapf(calerr.ErrRender, err, "save %s", path)
	}
	return nil
}

func (g Gonum) guideLine(
	p *plot.Plot,
	name string,
	ref figure.Ref,
	pts plotter.XYs,
) error {

	l, err := plotter.NewLine(pts)
	if err != nil {
		return calerr.Wrapf(calerr.ErrRender, err, "%s: reference %s", name, ref.Label)
	}
	l.LineStyle.Width = g.pt(2)
	l.LineStyle.Color = color.RGBA{R: 64, G: 64, B: 64, A: 255}
	l.LineStyle.Dashes = []vg.Length{g.pt(6), g.pt(4)}
	p.Add(l)
	if ref.Label != "" {
		p.Legend.Add(ref.Label, l)
	}
	return nil
}

// scale keeps fonts and strokes proportional to a 15 inch figure.
func (g Gonum) scale() float64 {
	return g.size() / 15
}

func (g Gonum) pt(v float64) vg.Length {
	return vg.Points(v * g.scale())
}

func (g Gonum) prepPlot(
	fig figure.Figure,
	xrange, yrange []float64,
) (
	*plot.Plot,
	*plotter.Line, *plotter.Line,
	error,
) {

	p := plot.New()
	p.BackgroundColor = color.White
	p.Title.Text = fig.Title
	p.Title.TextStyle.Font.Variant = "Sans"

	p.X.Label.Text = fig.XLabel
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.LineStyle.Width = g.pt(1.5)
	p.X.Min = xrange[0]
	p.X.Max = xrange[1]
	p.X.Tick.LineStyle.Width = g.pt(1.5)
	p.X.Tick.Label.Font.Variant = "Sans"
	if fig.XTime {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	}
	p.X.Padding = 0

	p.Y.Label.Text = fig.YLabel
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.LineStyle.Width = g.pt(1.5)
	p.Y.Min = yrange[0]
	p.Y.Max = yrange[1]
	p.Y.Tick.LineStyle.Width = g.pt(1.5)
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Padding = 0

	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true
	p.Legend.Padding = g.pt(10)
	p.Legend.ThumbnailWidth = g.pt(50)

	s := g.scale()
	if g.Slide {
		p.Title.TextStyle.Font.Size = font.Length(80 * s)
		p.Title.Padding = font.Length(80 * s)
		p.X.Label.TextStyle.Font.Size = font.Length(56 * s)
		p.X.Label.Padding = font.Length(40 * s)
		p.X.Tick.Label.Font.Size = font.Length(56 * s)
		p.Y.Label.TextStyle.Font.Size = font.Length(56 * s)
		p.Y.Label.Padding = font.Length(40 * s)
		p.Y.Tick.Label.Font.Size = font.Length(56 * s)
		p.Legend.TextStyle.Font.Size = font.Length(56 * s)
	} else {
		p.Title.TextStyle.Font.Size = font.Length(36 * s)
		p.Title.Padding = font.Length(36 * s)
		p.X.Label.TextStyle.Font.Size = font.Length(28 * s)
		p.X.Label.Padding = font.Length(20 * s)
		p.X.Tick.Label.Font.Size = font.Length(24 * s)
		p.Y.Label.TextStyle.Font.Size = font.Length(28 * s)
		p.Y.Label.Padding = font.Length(20 * s)
		p.Y.Tick.Label.Font.Size = font.Length(24 * s)
		p.Legend.TextStyle.Font.Size = font.Length(20 * s)
	}

	// Enclose plot
	t := plotter.XYs{{X: xrange[0], Y: yrange[1]}, {X: xrange[1], Y: yrange[1]}}
	r := plotter.XYs{{X: xrange[1], Y: yrange[0]}, {X: xrange[1], Y: yrange[1]}}

	tAxis, err := plotter.NewLine(t)
	if err != nil {
		return nil, nil, nil, calerr.Wrapf(calerr.ErrRender, err, "%s: top axis", fig.Name)
	}
	tAxis.LineStyle.Width = g.pt(1.5)

	rAxis, err := plotter.NewLine(r)
	if err != nil {
		return nil, nil, nil, calerr.Wrapf(calerr.ErrRender, err, "%s: right axis", fig.Name)
	}
	rAxis.LineStyle.Width = g.pt(1.5)

	return p, tAxis, rAxis, nil
}
