package figure

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/beam"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/derive"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/summary"
)

// Stable-night window on the hours-from-midnight-HST axis.
const (
	stableStart = -3.0
	stableEnd   = 7.0
)

// Skip records a figure that was not produced.
type Skip struct {
	Name   string
	Reason string
}

// Set is everything Build produced.
type Set struct {
	Figures []Figure
	Skipped []Skip
	Beams   []beam.Result
}

// Builder turns derived rows into the ops-meeting figure set.
type Builder struct {
	Nominal derive.Nominal

	// Groups fixes the marker order for epoch groups; groups not listed get
	// shapes after these.
	Groups []string

	Log *zap.Logger
}

type fcf struct {
	metric  summary.Metric
	title   string
	value   func(derive.Derived) float64
	ratio   func(derive.Derived) float64
	nominal func(derive.Nominal, observation.Wavelength) float64
}

var fcfs = []fcf{
	{
		metric:  summary.FCFArcsec,
		title:   "FCF Arcsec",
		value:   func(d derive.Derived) float64 { return d.FCFArcsec },
		ratio:   func(d derive.Derived) float64 { return d.ArcsecRatio },
		nominal: derive.Nominal.Arcsec,
	},
	{
		metric:  summary.FCFPeak,
		title:   "FCF Peak",
		value:   func(d derive.Derived) float64 { return d.FCFPeak },
		ratio:   func(d derive.Derived) float64 { return d.PeakRatio },
		nominal: derive.Nominal.Peak,
	},
}

// Build produces every figure the data supports. An empty record set is an
// error; an empty wavelength only skips that wavelength's figures.
func (b Builder) Build(
	rows []derive.Derived,
	sum summary.Summary,
) (
	Set, error,
) {

	if len(rows) == 0 {
		return Set{}, calerr.Wrapf(calerr.ErrRender, nil, "no observations to plot")
	}

	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}

	var set Set
	skip := func(name, reason string) {
		set.Skipped = append(set.Skipped, Skip{Name: name, Reason: reason})
		log.Info("skipping plot", zap.String("plot", name), zap.String("reason", reason))
	}

	byWavelength := map[observation.Wavelength][]derive.Derived{}
	for _, d := range rows {
		byWavelength[d.Wavelength] = append(byWavelength[d.Wavelength], d)
	}

	for _, w := range observation.Wavelengths {
		ws := byWavelength[w]
		if len(ws) == 0 {
			skip(w.String()+" micron plots", fmt.Sprintf("no %s micron observations", w))
			continue
		}

		for _, f := range fcfs {
			set.Figures = append(set.Figures,
				b.vsDate(w, ws, f),
				b.vsTime(w, ws, f),
				b.vsTrans(w, ws, f),
				b.histogram(w, ws, f, sum),
				b.ratioVsDate(w, ws, f),
				b.bySource(w, ws, f),
			)
		}

		var valid []derive.Derived
		for _, d := range ws {
			if d.AspectOK {
				valid = append(valid, d)
			}
		}
		if len(valid) == 0 {
			skip("AspectRatio_"+w.String(), "no valid beam geometry")
		} else {
			set.Figures = append(set.Figures, b.aspectVsDate(w, valid), b.aspectHistogram(w, valid, sum))
		}

		var matched []derive.Derived
		for _, d := range ws {
			if d.HasFCFMatch() {
				matched = append(matched, d)
			}
		}
		if len(matched) == 0 {
			skip("FCFmatch_vs_FCFPeak_"+w.String(), "no fcfmatch values")
		} else {
			set.Figures = append(set.Figures, b.matchVsPeak(w, matched))
		}

		var mainBeam []derive.Derived
		for _, d := range ws {
			if d.HasMainFWHM() {
				mainBeam = append(mainBeam, d)
			}
		}
		if len(mainBeam) == 0 {
			skip("FWHMMAIN_vs_date_"+w.String(), "no fwhmmain values")
		} else {
			set.Figures = append(set.Figures, b.mainFWHMVsDate(w, mainBeam))
		}

		res, err := beam.Uranus(ws, w)
		if err != nil {
			skip("Empirical_Beam_Uranus_"+w.String(), err.Error())
		} else {
			set.Beams = append(set.Beams, res)
			set.Figures = append(set.Figures, b.uranusBeam(res))
		}
	}

	return set, nil
}

// series splits rows into one series per (source, epoch group).
func (b Builder) series(
	rows []derive.Derived,
	xy func(derive.Derived) Point,
) (
	[]Series,
) {

	colors := map[string]int{}
	shapes := map[string]int{}
	for i, g := range b.Groups {
		shapes[g] = i
	}

	type key struct{ source, group string }
	index := map[key]int{}
	var out []Series

	for _, d := range rows {
		if _, ok := colors[d.Source]; !ok {
			colors[d.Source] = len(colors)
		}
		if _, ok := shapes[d.Epoch.Group]; !ok {
			shapes[d.Epoch.Group] = len(shapes)
		}

		k := key{d.Source, d.Epoch.Group}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			label := d.Source
			if d.Epoch.Group != "" {
				label += ", " + d.Epoch.Group
			}
			out = append(out, Series{
				Label:  label,
				Source: d.Source,
				Group:  d.Epoch.Group,
				Color:  colors[d.Source],
				Shape:  shapes[d.Epoch.Group],
			})
		}
		out[i].Points = append(out[i].Points, xy(d))
	}
	return out
}

func title(
	w observation.Wavelength,
	what string,
) (
	string,
) {

	return w.String() + " Microns, " + what
}

func unix(d derive.Derived) float64 {
	return float64(d.UT.Unix())
}

func (b Builder) vsDate(
	w observation.Wavelength,
	rows []derive.Derived,
	f fcf,
) (
	Figure,
) {

	return Figure{
		Name:   string(f.metric) + "_vs_date_" + w.String(),
		Title:  title(w, f.title),
		XLabel: "Date (UT)",
		YLabel: f.title,
		XTime:  true,
		Series: b.series(rows, func(d derive.Derived) Point { return Point{unix(d), f.value(d)} }),
		HRefs:  []Ref{{Value: f.nominal(b.Nominal, w), Label: "Nominal"}},
	}
}

func (b Builder) vsTime(
	w observation.Wavelength,
	rows []derive.Derived,
	f fcf,
) (
	Figure,
) {

	return Figure{
		Name:   string(f.metric) + "_vs_time_" + w.String(),
		Title:  title(w, f.title+", 0.0 = Midnight HST"),
		XLabel: "Hours from midnight HST",
		YLabel: f.title,
		Series: b.series(rows, func(d derive.Derived) Point { return Point{d.HSTHours, f.value(d)} }),
		HRefs:  []Ref{{Value: f.nominal(b.Nominal, w), Label: "Nominal"}},
		VRefs:  []Ref{{Value: stableStart, Label: "21:00 HST"}, {Value: stableEnd, Label: "07:00 HST"}},
		Note:   "Stable: 21:00--07:00 HST",
		XRange: Range{Min: -7, Max: 11, Set: true},
	}
}

func (b Builder) vsTrans(
	w observation.Wavelength,
	rows []derive.Derived,
	f fcf,
) (
	Figure,
) {

	return Figure{
		Name:   string(f.metric) + "_vs_trans_" + w.String(),
		Title:  title(w, f.title+" versus Transmission"),
		XLabel: "Transmission",
		YLabel: f.title,
		Series: b.series(rows, func(d derive.Derived) Point { return Point{d.Trans, f.value(d)} }),
		HRefs:  []Ref{{Value: f.nominal(b.Nominal, w), Label: "Nominal"}},
	}
}

func (b Builder) histogram(
	w observation.Wavelength,
	rows []derive.Derived,
	f fcf,
	sum summary.Summary,
) (
	Figure,
) {

	values := make([]float64, len(rows))
	for i, d := range rows {
		values[i] = f.value(d)
	}

	st := sum.Global[w].Stats[f.metric]
	return Figure{
		Name:   string(f.metric) + "_hist_" + w.String(),
		Title:  title(w, f.title) + " " + meanSD(st),
		XLabel: f.title,
		YLabel: "Normalised Density",
		Bins:   Histogram(values),
		VRefs:  []Ref{{Value: f.nominal(b.Nominal, w), Label: "Recommended Value"}},
	}
}

func (b Builder) ratioVsDate(
	w observation.Wavelength,
	rows []derive.Derived,
	f fcf,
) (
	Figure,
) {

	return Figure{
		Name:   string(f.metric) + "_ratio_vs_date_" + w.String(),
		Title:  title(w, f.title+" / Nominal"),
		XLabel: "Date (UT)",
		YLabel: f.title + " / Nominal",
		XTime:  true,
		Series: b.series(rows, func(d derive.Derived) Point { return Point{unix(d), f.ratio(d)} }),
		HRefs:  []Ref{{Value: 1, Label: "Nominal"}},
	}
}

func (b Builder) bySource(
	w observation.Wavelength,
	rows []derive.Derived,
	f fcf,
) (
	Figure,
) {

	index := map[string]int{}
	var boxes []Box
	for _, d := range rows {
		i, ok := index[d.Source]
		if !ok {
			i = len(boxes)
			index[d.Source] = i
			boxes = append(boxes, Box{Label: d.Source, Position: float64(i), Color: i})
		}
		boxes[i].Values = append(boxes[i].Values, f.value(d))
	}

	return Figure{
		Name:   string(f.metric) + "_by_source_" + w.String(),
		Title:  title(w, f.title+" by Source"),
		XLabel: "Source",
		YLabel: f.title,
		Boxes:  boxes,
		HRefs:  []Ref{{Value: f.nominal(b.Nominal, w), Label: "Nominal"}},
		XRange: Range{Min: -0.5, Max: float64(len(boxes)) - 0.5, Set: true},
	}
}

func (b Builder) aspectVsDate(
	w observation.Wavelength,
	rows []derive.Derived,
) (
	Figure,
) {

	return Figure{
		Name:   string(summary.Aspect) + "_vs_date_" + w.String(),
		Title:  title(w, "Beam Aspect Ratio"),
		XLabel: "Date (UT)",
		YLabel: "Minor / Major FWHM",
		XTime:  true,
		Series: b.series(rows, func(d derive.Derived) Point { return Point{unix(d), d.AspectRatio} }),
		HRefs:  []Ref{{Value: 1, Label: "Circular"}},
	}
}

// mainFWHMVsDate plots the main-beam FWHM over time, a proxy for the aspect
// ratio.
func (b Builder) mainFWHMVsDate(
	w observation.Wavelength,
	rows []derive.Derived,
) (
	Figure,
) {

	return Figure{
		Name:   "FWHMMAIN_vs_date_" + w.String(),
		Title:  title(w, "Beam Issues (Aspect Ratio Proxy)"),
		XLabel: "Date (UT)",
		YLabel: "Main Beam FWHM (arcsec)",
		XTime:  true,
		Series: b.series(rows, func(d derive.Derived) Point { return Point{unix(d), d.MainFWHM} }),
	}
}

func (b Builder) aspectHistogram(
	w observation.Wavelength,
	rows []derive.Derived,
	sum summary.Summary,
) (
	Figure,
) {

	values := make([]float64, len(rows))
	for i, d := range rows {
		values[i] = d.AspectRatio
	}

	return Figure{
		Name:   string(summary.Aspect) + "_hist_" + w.String(),
		Title:  title(w, "Beam Aspect Ratio") + " " + meanSD(sum.Global[w].Stats[summary.Aspect]),
		XLabel: "Minor / Major FWHM",
		YLabel: "Normalised Density",
		Bins:   Histogram(values),
	}
}

func (b Builder) matchVsPeak(
	w observation.Wavelength,
	rows []derive.Derived,
) (
	Figure,
) {

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range rows {
		lo = math.Min(lo, math.Min(d.FCFPeak, d.FCFMatch))
		hi = math.Max(hi, math.Max(d.FCFPeak, d.FCFMatch))
	}

	return Figure{
		Name:   "FCFmatch_vs_FCFPeak_" + w.String(),
		Title:  w.String() + " Microns, Matched Filter Versus Peak FCF",
		XLabel: "FCF Peak",
		YLabel: "FCF Match",
		Series: b.series(rows, func(d derive.Derived) Point { return Point{d.FCFPeak, d.FCFMatch} }),
		Curves: []Curve{{Label: "1:1", Points: []Point{{lo, lo}, {hi, hi}}}},
	}
}

func (b Builder) uranusBeam(
	r beam.Result,
) (
	Figure,
) {

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range r.Points {
		lo = math.Min(lo, d.FCFArcsec)
		hi = math.Max(hi, d.FCFArcsec)
	}

	return Figure{
		Name: "Empirical_Beam_Uranus_" + r.Wavelength.String(),
		Title: fmt.Sprintf("%s microns Uranus Empirical Beamwidth = %.1f\", Expected = %.1f ± %.1f\"",
			r.Wavelength, r.Beamwidth, r.Expected, r.ExpectedErr),
		XLabel: "FCF Arcsec",
		YLabel: "FCF Peak",
		Series: b.series(r.Points, func(d derive.Derived) Point { return Point{d.FCFArcsec, d.FCFPeak} }),
		Curves: []Curve{{
			Label:  "Fit",
			Points: []Point{{lo, r.Line(lo)}, {hi, r.Line(hi)}},
		}},
	}
}

func meanSD(
	st summary.Stats,
) (
	string,
) {

	return fmt.Sprintf("(%s ± %s, N = %d)", short(st.Mean), short(st.StdDev), st.N)
}

func short(v float64) string {
	return fmt.Sprintf("%.3g", v)
}
