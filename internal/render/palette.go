package render

import (
	"image/color"

	"gonum.org/v1/plot/vg/draw"
)

var col = []color.RGBA{
	{R: 31, G: 211, B: 172, A: 255},
	{R: 255, G: 122, B: 180, A: 255},
	{R: 122, G: 156, B: 255, A: 255},
	{R: 91, G: 22, B: 22, A: 255},
	{R: 188, G: 117, B: 255, A: 255},
	{R: 234, G: 156, B: 172, A: 255},
	{R: 1, G: 56, B: 84, A: 255},
	{R: 46, G: 140, B: 60, A: 255},
	{R: 140, G: 46, B: 49, A: 255},
	{R: 122, G: 41, B: 104, A: 255},
	{R: 41, G: 122, B: 100, A: 255},
	{R: 122, G: 90, B: 41, A: 255},
	{R: 255, G: 193, B: 122, A: 255},
	{R: 22, G: 44, B: 91, A: 255},
	{R: 59, G: 17, B: 66, A: 255},
	{R: 27, G: 150, B: 146, A: 255},
	{R: 255, G: 102, B: 102, A: 255},
}

var darkCol = []color.RGBA{
	{R: 27, G: 170, B: 139, A: 255},
	{R: 201, G: 104, B: 146, A: 255},
	{R: 99, G: 124, B: 198, A: 255},
	{R: 91, G: 22, B: 22, A: 255},
	{R: 188, G: 117, B: 255, A: 255},
	{R: 234, G: 156, B: 172, A: 255},
	{R: 1, G: 56, B: 84, A: 255},
	{R: 46, G: 140, B: 60, A: 255},
	{R: 140, G: 46, B: 49, A: 255},
	{R: 122, G: 41, B: 104, A: 255},
	{R: 41, G: 122, B: 100, A: 255},
	{R: 122, G: 90, B: 41, A: 255},
	{R: 183, G: 139, B: 89, A: 255},
	{R: 22, G: 44, B: 91, A: 255},
	{R: 59, G: 17, B: 66, A: 255},
	{R: 18, G: 102, B: 99, A: 255},
	{R: 255, G: 102, B: 102, A: 255},
}

// palette returns the colour for a source index, wrapping when there are
// more sources than colours. Dark shades are used for histogram outlines.
func palette(
	brush int,
	dark bool,
) (
	color.RGBA,
) {

	if brush < 0 {
		brush = -brush
	}
	if dark {
		return darkCol[brush%len(darkCol)]
	}
	return col[brush%len(col)]
}

var glyphs = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.TriangleGlyph{},
	draw.BoxGlyph{},
	draw.PyramidGlyph{},
	draw.RingGlyph{},
	draw.SquareGlyph{},
	draw.CrossGlyph{},
	draw.PlusGlyph{},
}

// shape returns the marker for an epoch group index.
func shape(i int) draw.GlyphDrawer {
	if i < 0 {
		i = -i
	}
	return glyphs[i%len(glyphs)]
}
