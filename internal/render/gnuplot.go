//go:build gnuplot

package render

import (
	"math"
	"strings"

	"github.com/Arafatk/glot"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
)

// Gnuplot draws figures through a gnuplot process. It needs the gnuplot
// binary on PATH and only writes png and pdf. glot panics at init without
// gnuplot, so this backend is only built with -tags gnuplot.
type Gnuplot struct {
	Options
}

func newGnuplot(opts Options) (Renderer, error) {
	return Gnuplot{Options: opts}, nil
}

// Render draws fig with gnuplot and saves it to path.
func (g Gnuplot) Render(
	fig figure.Figure,
	path string,
) error {

	ext := format(path)
	if ext != "png" && ext != "pdf" {
		return calerr.Wrapf(calerr.ErrRender, nil, "gnuplot cannot write %q files", ext)
	}

	dimensions := 2
	persist := false
	debug := false
	plot, err := glot.NewPlot(dimensions, persist, debug)
	if err != nil {
		return calerr.Wrapf(calerr.ErrRender, err, "start gnuplot")
	}
	defer plot.Close()

	xmin, xmax, ymin, ymax := fig.Bounds()

	steps := []func() error{
		func() error { return plot.SetTitle(quote(fig.Title)) },
		func() error { return plot.SetXLabel(quote(fig.XLabel)) },
		func() error { return plot.SetYLabel(quote(fig.YLabel)) },
	}
	if fig.XRange.Set {
		steps = append(steps, func() error {
			return plot.SetXrange(int(math.Floor(fig.XRange.Min)), int(math.Ceil(fig.XRange.Max)))
		})
	}

	if fig.IsHistogram() {
		centres := make([]float64, len(fig.Bins))
		heights := make([]float64, len(fig.Bins))
		for i, b := range fig.Bins {
			centres[i] = (b.Min + b.Max) / 2
			heights[i] = b.Height
		}
		steps = append(steps, group(plot, "Density", "boxes", centres, heights))
	}
	// Boxes become a strip chart: one column of points per label.
	for _, b := range fig.Boxes {
		xs := make([]float64, len(b.Values))
		for i := range xs {
			xs[i] = b.Position
		}
		steps = append(steps, group(plot, b.Label, "points", xs, b.Values))
	}
	for _, s := range fig.Series {
		xs := make([]float64, len(s.Points))
		ys := make([]float64, len(s.Points))
		for i, p := range s.Points {
			xs[i], ys[i] = p.X, p.Y
		}
		steps = append(steps, group(plot, s.Label, "points", xs, ys))
	}
	for _, c := range fig.Curves {
		xs := make([]float64, len(c.Points))
		ys := make([]float64, len(c.Points))
		for i, p := range c.Points {
			xs[i], ys[i] = p.X, p.Y
		}
		steps = append(steps, group(plot, c.Label, "lines", xs, ys))
	}
	for _, ref := range fig.HRefs {
		steps = append(steps, group(plot, ref.Label, "lines", []float64{xmin, xmax}, []float64{ref.Value, ref.Value}))
	}
	for _, ref := range fig.VRefs {
		steps = append(steps, group(plot, ref.Label, "lines", []float64{ref.Value, ref.Value}, []float64{ymin, ymax}))
	}

	steps = append(steps,
		func() error { return plot.SetFormat(ext) },
		func() error { return plot.SavePlot(path) },
	)

	for _, step := range steps {
		if err := step(); err != nil {
			return calerr.Wrapf(calerr.ErrRender, err, "gnuplot %s", fig.Name)
		}
	}
	return nil
}

func group(
	plot *glot.Plot,
	name, style string,
	xs, ys []float64,
) func() error {

	return func() error {
		return plot.AddPointGroup(quote(name), style, [][]float64{xs, ys})
	}
}

// quote keeps labels from closing gnuplot's double-quoted strings.
func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `''`)
}
