//go:build !gnuplot

package render

import (
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
)

func newGnuplot(Options) (Renderer, error) {
	return nil, calerr.Wrapf(calerr.ErrRender, nil, "built without gnuplot support, rebuild with -tags gnuplot")
}
