// Package beam estimates the empirical SCUBA-2 beamwidth from Uranus
// observations: FCF peak / FCF arcsec is the beam area, so the slope of a
// straight line through (fcfasec, fcfbeam) gives the effective FWHM.
package beam

import (
	"math"

	"github.com/maorshutman/lm"
	"github.com/rotisserie/eris"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/derive"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
)

// Source is the calibrator used for the beam estimate.
const Source = "URANUS"

// MinPoints is the fewest stable-night observations worth fitting.
const MinPoints = 3

var (
	ErrTooFewPoints = eris.New("too few stable Uranus observations")
	ErrDegenerate   = eris.New("fcfasec values do not vary")
	ErrNoBeamArea   = eris.New("fitted beam area is not positive")
)

// Expected beamwidths in arcsec with their uncertainty.
var expected = map[observation.Wavelength][2]float64{
	observation.W450: {10.0, 0.6},
	observation.W850: {14.4, 0.3},
}

// Result is a fitted beam estimate.
type Result struct {
	Wavelength  observation.Wavelength
	N           int
	Slope       float64
	Intercept   float64
	Beamwidth   float64
	Expected    float64
	ExpectedErr float64

	// Points are the (fcfasec, fcfbeam) pairs that went into the fit.
	Points []derive.Derived
}

// Line evaluates the fitted line at x.
func (r Result) Line(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// Uranus fits the stable-night Uranus observations at w.
func Uranus(
	rows []derive.Derived,
	w observation.Wavelength,
) (
	Result, error,
) {

	var pts []derive.Derived
	for _, d := range rows {
		if d.Wavelength == w && d.Source == Source && d.Stable {
			pts = append(pts, d)
		}
	}
	if len(pts) < MinPoints {
		return Result{}, eris.Wrapf(ErrTooFewPoints, "%d at %s microns", len(pts), w)
	}

	x := make([]float64, len(pts))
	y := make([]float64, len(pts))
	for i, d := range pts {
		x[i] = d.FCFArcsec
		y[i] = d.FCFPeak
	}

	slope, intercept, err := FitLine(x, y)
	if err != nil {
		return Result{}, err
	}
	if slope <= 0 {
		return Result{}, eris.Wrapf(ErrNoBeamArea, "slope %.3g at %s microns", slope, w)
	}

	exp := expected[w]
	return Result{
		Wavelength:  w,
		N:           len(pts),
		Slope:       slope,
		Intercept:   intercept,
		Beamwidth:   Beamwidth(slope),
		Expected:    exp[0],
		ExpectedErr: exp[1],
		Points:      pts,
	}, nil
}

// Beamwidth converts a beam area (arcsec²) to the FWHM of a Gaussian.
func Beamwidth(
	area float64,
) (
	float64,
) {

	return math.Sqrt(area / (math.Pi / (4 * math.Ln2)))
}

// FitLine fits y = slope*x + intercept by Levenberg-Marquardt.
func FitLine(
	x, y []float64,
) (
	float64, float64, error,
) {

	if len(x) != len(y) || len(x) < 2 {
		return 0, 0, eris.Wrapf(ErrTooFewPoints, "%d points", len(x))
	}

	xmin, xmax := x[0], x[0]
	imin, imax := 0, 0
	for i, v := range x {
		if v < xmin {
			xmin, imin = v, i
		}
		if v > xmax {
			xmax, imax = v, i
		}
	}
	if xmax == xmin {
		return 0, 0, ErrDegenerate
	}

	// Start from the line through the extreme points.
	m0 := (y[imax] - y[imin]) / (xmax - xmin)
	initialParams := []float64{m0, y[imin] - m0*xmin}

	resFunc := func(dst, params []float64) {
		for i := range x {
			dst[i] = y[i] - (params[0]*x[i] + params[1])
		}
	}

	nj := &lm.NumJac{Func: resFunc}

	problem := lm.LMProblem{
		Dim:        2,
		Size:       len(x),
		Func:       resFunc,
		Jac:        nj.Jac,
		InitParams: initialParams,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	settings := &lm.Settings{Iterations: 1000, ObjectiveTol: 1e-16}

	result, err := lm.LM(problem, settings)
	if err != nil {
		return 0, 0, eris.Wrap(err, "beam: line fit")
	}

	return result.X[0], result.X[1], nil
}
