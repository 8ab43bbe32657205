// Package figure describes the ops-meeting charts independently of the
// library that draws them.
package figure

import (
	"math"
)

// Point is one plotted value.
type Point struct {
	X, Y float64
}

// Series is a set of scatter points sharing a colour and marker. Color
// indexes sources and Shape indexes epoch groups, both in order of first
// appearance in the figure.
type Series struct {
	Label  string
	Source string
	Group  string
	Color  int
	Shape  int
	Points []Point
}

// Ref is a dashed reference line at a constant value.
type Ref struct {
	Value float64
	Label string
}

// Curve is a solid line through Points, e.g. a fit or a 1:1 guide.
type Curve struct {
	Label  string
	Points []Point
}

// Bin is one histogram bar; Height is normalised so the bars integrate to 1.
type Bin struct {
	Min, Max float64
	Count    int
	Height   float64
}

// Box is one box-and-whisker at integer position Position on a nominal X
// axis labelled by Label.
type Box struct {
	Label    string
	Position float64
	Color    int
	Values   []float64
}

// Range pins an axis; unset axes are fitted to the data.
type Range struct {
	Min, Max float64
	Set      bool
}

// Figure is a complete chart ready to hand to a renderer.
type Figure struct {
	// Name is the file stem, e.g. "FCFpeak_vs_date_450".
	Name   string
	Title  string
	XLabel string
	YLabel string

	// XTime marks X values as Unix seconds.
	XTime bool

	Series []Series
	Bins   []Bin
	Boxes  []Box
	Curves []Curve
	HRefs  []Ref
	VRefs  []Ref
	Note   string

	XRange Range
	YRange Range
}

// IsHistogram reports whether the figure is a histogram.
func (f Figure) IsHistogram() bool {
	return len(f.Bins) > 0
}

// Bounds returns the extent of everything drawn on the figure, honouring any
// pinned ranges.
func (f Figure) Bounds() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)

	grow := func(x, y float64) {
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
	}

	for _, s := range f.Series {
		for _, p := range s.Points {
			grow(p.X, p.Y)
		}
	}
	for _, c := range f.Curves {
		for _, p := range c.Points {
			grow(p.X, p.Y)
		}
	}
	for _, b := range f.Bins {
		grow(b.Min, 0)
		grow(b.Max, b.Height)
	}
	for _, b := range f.Boxes {
		for _, v := range b.Values {
			grow(b.Position-0.5, v)
			grow(b.Position+0.5, v)
		}
	}
	for _, r := range f.HRefs {
		ymin, ymax = math.Min(ymin, r.Value), math.Max(ymax, r.Value)
	}
	for _, r := range f.VRefs {
		xmin, xmax = math.Min(xmin, r.Value), math.Max(xmax, r.Value)
	}

	if f.XRange.Set {
		xmin, xmax = f.XRange.Min, f.XRange.Max
	}
	if f.YRange.Set {
		ymin, ymax = f.YRange.Min, f.YRange.Max
	}

	// Nothing drawn, or a single value: open a unit window around it.
	if math.IsInf(xmin, 1) {
		xmin, xmax = 0, 1
	}
	if math.IsInf(ymin, 1) {
		ymin, ymax = 0, 1
	}
	if xmin == xmax {
		xmin, xmax = xmin-0.5, xmax+0.5
	}
	if ymin == ymax {
		ymin, ymax = ymin-0.5, ymax+0.5
	}
	return xmin, xmax, ymin, ymax
}

// Len is the number of scatter points, histogram entries or boxed values.
func (f Figure) Len() int {
	n := 0
	for _, s := range f.Series {
		n += len(s.Points)
	}
	for _, b := range f.Bins {
		n += b.Count
	}
	for _, b := range f.Boxes {
		n += len(b.Values)
	}
	return n
}
