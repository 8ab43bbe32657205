// Package summary aggregates derived calibration metrics per source and
// filter.
package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/derive"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
)

// Metric names a derived quantity that gets summarised.
type Metric string

const (
	FCFPeak     Metric = "FCFpeak"
	FCFArcsec   Metric = "FCFasec"
	PeakRatio   Metric = "FCFpeak_ratio"
	ArcsecRatio Metric = "FCFasec_ratio"
	Aspect      Metric = "AspectRatio"
)

// Metrics lists every summarised metric in report order.
var Metrics = []Metric{FCFPeak, FCFArcsec, PeakRatio, ArcsecRatio, Aspect}

// Value extracts m from d. ok is false when d has no valid value for m.
func (m Metric) Value(d derive.Derived) (v float64, ok bool) {
	switch m {
	case FCFPeak:
		return d.FCFPeak, true
	case FCFArcsec:
		return d.FCFArcsec, true
	case PeakRatio:
		return d.PeakRatio, true
	case ArcsecRatio:
		return d.ArcsecRatio, true
	case Aspect:
		return d.AspectRatio, d.AspectOK
	}
	return 0, false
}

// Values collects the valid values of m across rows.
func (m Metric) Values(rows []derive.Derived) []float64 {
	var out []float64
	for _, d := range rows {
		if v, ok := m.Value(d); ok {
			out = append(out, v)
		}
	}
	return out
}

// Stats are descriptive statistics over one metric.
type Stats struct {
	N      int
	Mean   float64
	StdDev float64

	// StdErr is the standard deviation of the mean.
	StdErr float64
}

// Describe computes Stats for values. A single value has zero spread; no
// values gives N == 0 and NaN mean.
func Describe(
	values []float64,
) (
	Stats,
) {

	switch len(values) {
	case 0:
		return Stats{Mean: math.NaN()}
	case 1:
		return Stats{N: 1, Mean: values[0]}
	}

	mean, sd := stat.MeanStdDev(values, nil)
	n := float64(len(values))
	return Stats{
		N:      len(values),
		Mean:   mean,
		StdDev: sd,
		StdErr: sd / math.Sqrt(n),
	}
}

// Group summarises one (source, wavelength) pair. Source is empty for the
// per-wavelength global group.
type Group struct {
	Source     string
	Wavelength observation.Wavelength
	Count      int
	Stats      map[Metric]Stats
}

// Summary holds every group plus one global group per wavelength present.
type Summary struct {
	Groups []Group
	Global map[observation.Wavelength]Group
}

// Total is the number of records across all groups.
func (s Summary) Total() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Count
	}
	return n
}

// Find returns the group for source at w.
func (s Summary) Find(source string, w observation.Wavelength) (Group, bool) {
	for _, g := range s.Groups {
		if g.Source == source && g.Wavelength == w {
			return g, true
		}
	}
	return Group{}, false
}

// Aggregate groups rows by wavelength and source. Groups are ordered by
// wavelength, then source name.
func Aggregate(
	rows []derive.Derived,
) (
	Summary,
) {

	type key struct {
		w      observation.Wavelength
		source string
	}

	byKey := map[key][]derive.Derived{}
	byWavelength := map[observation.Wavelength][]derive.Derived{}
	for _, d := range rows {
		k := key{d.Wavelength, d.Source}
		byKey[k] = append(byKey[k], d)
		byWavelength[d.Wavelength] = append(byWavelength[d.Wavelength], d)
	}

	keys := make([]key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].w != keys[j].w {
			return keys[i].w < keys[j].w
		}
		return keys[i].source < keys[j].source
	})

	s := Summary{Global: map[observation.Wavelength]Group{}}
	for _, k := range keys {
		s.Groups = append(s.Groups, group(k.source, k.w, byKey[k]))
	}
	for w, ws := range byWavelength {
		s.Global[w] = group("", w, ws)
	}
	return s
}

func group(
	source string,
	w observation.Wavelength,
	rows []derive.Derived,
) (
	Group,
) {

	g := Group{
		Source:     source,
		Wavelength: w,
		Count:      len(rows),
		Stats:      make(map[Metric]Stats, len(Metrics)),
	}
	for _, m := range Metrics {
		g.Stats[m] = Describe(m.Values(rows))
	}
	return g
}
