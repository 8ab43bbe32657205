// Package derive computes per-observation calibration metrics.
package derive

import (
	"time"

	"go.uber.org/zap"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/epoch"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
)

// Nominal holds the recommended FCFs per filter.
type Nominal struct {
	Peak450   float64
	Peak850   float64
	Arcsec450 float64
	Arcsec850 float64
}

// DefaultNominal returns the post-2018-06 recommended values.
func DefaultNominal() Nominal {
	return Nominal{
		Peak450:   472,
		Peak850:   495,
		Arcsec450: 3.87,
		Arcsec850: 2.07,
	}
}

// Peak returns the nominal FCF peak for w.
func (n Nominal) Peak(w observation.Wavelength) float64 {
	if w == observation.W450 {
		return n.Peak450
	}
	return n.Peak850
}

// Arcsec returns the nominal FCF arcsec for w.
func (n Nominal) Arcsec(w observation.Wavelength) float64 {
	if w == observation.W450 {
		return n.Arcsec450
	}
	return n.Arcsec850
}

// Validate rejects non-positive nominal values.
func (n Nominal) Validate() error {
	for name, v := range map[string]float64{
		"fcf peak 450":   n.Peak450,
		"fcf peak 850":   n.Peak850,
		"fcf arcsec 450": n.Arcsec450,
		"fcf arcsec 850": n.Arcsec850,
	} {
		if !(v > 0) {
			return calerr.Wrapf(calerr.ErrMalformedInput, nil, "nominal %s must be positive, got %v", name, v)
		}
	}
	return nil
}

// hst is Hawaii Standard Time; Hawaii does not observe daylight saving.
var hst = time.FixedZone("HST", -10*60*60)

// Derived is an observation with its epoch and computed metrics attached.
type Derived struct {
	observation.Record

	Epoch epoch.Epoch

	// AspectRatio is minor/major beam FWHM; only meaningful when AspectOK.
	AspectRatio float64
	AspectOK    bool

	PeakRatio   float64
	ArcsecRatio float64

	// HSTHours is hours from midnight HST in [-12, 12).
	HSTHours float64
	Stable   bool
}

// AspectRatio returns minor/major in (0, 1]. The larger axis is taken as the
// major one if the two arrive swapped.
func AspectRatio(
	major, minor float64,
) (
	float64, error,
) {

	if !(major > 0) || !(minor > 0) {
		return 0, calerr.Wrapf(calerr.ErrInvalidGeometry, nil, "beam axes major=%v minor=%v", major, minor)
	}
	if minor > major {
		major, minor = minor, major
	}
	return minor / major, nil
}

// DeviationRatio is measured/nominal, unclamped.
func DeviationRatio(
	measured, nominal float64,
) (
	float64,
) {

	return measured / nominal
}

// HoursFromMidnightHST places t on a night-centred clock: 0 is midnight HST,
// evening hours are negative.
func HoursFromMidnightHST(
	t time.Time,
) (
	float64,
) {

	h := t.In(hst)
	hours := float64(h.Hour()) + float64(h.Minute())/60 + float64(h.Second())/3600
	if hours >= 12 {
		hours -= 24
	}
	return hours
}

// StableNight reports whether t is in the stable part of the night,
// 21:00 to 07:00 HST.
func StableNight(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= 7 && h < 17
}

// Deriver attaches epochs and metrics to loaded records.
type Deriver struct {
	Nominal    Nominal
	Classifier *epoch.Classifier
	Log        *zap.Logger
}

// Derive computes metrics for every record. Bad beam geometry only marks the
// aspect ratio invalid; the record is kept for every other metric.
func (d Deriver) Derive(
	records []observation.Record,
) (
	[]Derived,
) {

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]Derived, 0, len(records))
	for _, r := range records {
		dr := Derived{
			Record:      r,
			Epoch:       d.Classifier.Classify(r.UT),
			PeakRatio:   DeviationRatio(r.FCFPeak, d.Nominal.Peak(r.Wavelength)),
			ArcsecRatio: DeviationRatio(r.FCFArcsec, d.Nominal.Arcsec(r.Wavelength)),
			HSTHours:    HoursFromMidnightHST(r.UT),
			Stable:      StableNight(r.UT),
		}

		ar, err := AspectRatio(r.MajorFWHM, r.MinorFWHM)
		if err != nil {
			log.Warn("excluding row from aspect ratio",
				zap.Int("line", r.Line),
				zap.String("source", r.Source),
				zap.Error(err),
			)
		} else {
			dr.AspectRatio = ar
			dr.AspectOK = true
		}

		out = append(out, dr)
	}
	return out
}
