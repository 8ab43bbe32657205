// Package observation loads SCUBA-2 calibrator observations exported from
// Archimedes.
package observation

import (
	"math"
	"strconv"
	"time"
)

// Wavelength is a SCUBA-2 filter in microns.
type Wavelength int

const (
	W450 Wavelength = 450
	W850 Wavelength = 850
)

// Wavelengths lists the filters in plotting order.
var Wavelengths = []Wavelength{W450, W850}

func (w Wavelength) String() string {
	return strconv.Itoa(int(w))
}

// Valid reports whether w is one of the two SCUBA-2 filters.
func (w Wavelength) Valid() bool {
	return w == W450 || w == W850
}

// Record is one calibrator observation.
type Record struct {
	Source     string
	UT         time.Time
	Wavelength Wavelength
	FCFPeak    float64
	FCFArcsec  float64
	Trans      float64
	MajorFWHM  float64
	MinorFWHM  float64

	// Optional columns, NaN when absent.
	FCFMatch float64
	MainFWHM float64

	// Line is the CSV line the record came from (header is line 1).
	Line int
}

// HasFCFMatch reports whether the matched-filter FCF was present.
func (r Record) HasFCFMatch() bool {
	return !math.IsNaN(r.FCFMatch)
}

// HasMainFWHM reports whether the main-beam FWHM was present.
func (r Record) HasMainFWHM() bool {
	return !math.IsNaN(r.MainFWHM)
}

// ByWavelength splits records by filter, keeping input order.
func ByWavelength(
	records []Record,
) (
	map[Wavelength][]Record,
) {

	out := make(map[Wavelength][]Record, len(Wavelengths))
	for _, r := range records {
		out[r.Wavelength] = append(out[r.Wavelength], r)
	}
	return out
}
