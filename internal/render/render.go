// Package render draws figure descriptions to image files.
package render

import (
	"path/filepath"
	"strings"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
)

// Renderer writes one figure to path. The extension of path picks the
// image format.
type Renderer interface {
	Render(fig figure.Figure, path string) error
}

// Backend names accepted by New.
const (
	BackendGonum   = "gonum"
	BackendGnuplot = "gnuplot"
)

// New returns the renderer for backend. An empty name means gonum.
func New(
	backend string,
	opts Options,
) (
	Renderer, error,
) {

	switch strings.ToLower(backend) {
	case "", BackendGonum:
		return Gonum{Options: opts}, nil
	case BackendGnuplot:
		return newGnuplot(opts)
	}
	return nil, calerr.Wrapf(calerr.ErrRender, nil, "unknown render backend %q", backend)
}

// Options are shared by every backend.
type Options struct {
	// SizeInches is the side of the square image; 0 means 10.
	SizeInches float64

	// Slide enlarges fonts for presentation slides.
	Slide bool
}

func (o Options) size() float64 {
	if o.SizeInches <= 0 {
		return 10
	}
	return o.SizeInches
}

func format(
	path string,
) (
	string,
) {

	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
