// Package pipeline runs a complete calibration summary: load the CSV export,
// classify and derive, aggregate, draw the figures and write them out.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/beam"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/derive"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/epoch"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/output"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/render"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/summary"
)

type settings struct {
	nominal  derive.Nominal
	epochs   epoch.Set
	renderer render.Renderer
	base     string
	formats  []string
	clock    func() time.Time
	log      *zap.Logger
}

// Option adjusts a run.
type Option func(*settings)

// WithNominal replaces the recommended FCF values.
func WithNominal(n derive.Nominal) Option {
	return func(s *settings) { s.nominal = n }
}

// WithEpochs replaces the built-in hardware epoch list.
func WithEpochs(set epoch.Set) Option {
	return func(s *settings) { s.epochs = set }
}

// WithRenderer sets the plotting backend; the default is gonum.
func WithRenderer(r render.Renderer) Option {
	return func(s *settings) { s.renderer = r }
}

// WithOutputBase sets the directory the run directory is created in.
func WithOutputBase(dir string) Option {
	return func(s *settings) { s.base = dir }
}

// WithFormats sets the image formats written for each figure.
func WithFormats(formats ...string) Option {
	return func(s *settings) { s.formats = formats }
}

// WithClock sets the clock that names the run directory.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) { s.clock = clock }
}

// WithLogger sets the logger for every stage.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) { s.log = log }
}

// Result describes a finished run.
type Result struct {
	Dir     string
	Figures []string
	Report  observation.LoadReport
	Epochs  string
	Summary summary.Summary
	Skipped []figure.Skip
	Beams   []beam.Result
}

// Run produces the ops-meeting figures for the CSV at csvPath. Any error is
// fatal to the run; dropped rows are reported in Result.Report.
func Run(
	csvPath string,
	opts ...Option,
) (
	*Result, error,
) {

	s := settings{
		nominal: derive.DefaultNominal(),
		epochs:  epoch.Default(),
		base:    ".",
		formats: []string{"png"},
		clock:   time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	if err := s.nominal.Validate(); err != nil {
		return nil, err
	}
	classifier, err := epoch.NewClassifier(s.epochs)
	if err != nil {
		return nil, err
	}
	if s.renderer == nil {
		s.renderer, err = render.New(render.BackendGonum, render.Options{})
		if err != nil {
			return nil, err
		}
	}

	records, report, err := observation.Load(csvPath, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Info("loaded observations",
		zap.String("input", csvPath),
		zap.Int("rows", report.Rows),
		zap.Int("dropped", len(report.Dropped)),
	)

	rows := derive.Deriver{
		Nominal:    s.nominal,
		Classifier: classifier,
		Log:        s.log,
	}.Derive(records)

	sum := summary.Aggregate(rows)

	set, err := figure.Builder{
		Nominal: s.nominal,
		Groups:  s.epochs.Groups(),
		Log:     s.log,
	}.Build(rows, sum)
	if err != nil {
		return nil, err
	}

	org := output.Organizer{
		Base:     s.base,
		Formats:  s.formats,
		Renderer: s.renderer,
		Clock:    s.clock,
		Log:      s.log,
	}

	dir, err := org.Prepare()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Dir:     dir,
		Report:  report,
		Epochs:  s.epochs.Version,
		Summary: sum,
		Skipped: set.Skipped,
		Beams:   set.Beams,
	}

	res.Figures, err = org.WriteFigures(dir, set.Figures)
	if err != nil {
		return res, err
	}
	if err := org.WriteSummary(dir, sum, set.Beams); err != nil {
		return res, err
	}
	if err := org.WriteLog(dir, logLines(csvPath, s.nominal, res)); err != nil {
		return res, err
	}

	s.log.Info("run complete",
		zap.String("dir", dir),
		zap.Int("figures", len(res.Figures)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func logLines(
	csvPath string,
	n derive.Nominal,
	res *Result,
) (
	[]string,
) {

	logFile := []string{
		"Input: " + csvPath + "\n",
		fmt.Sprintf("Rows: %d, kept: %d, dropped: %d\n",
			res.Report.Rows, res.Report.Kept(), len(res.Report.Dropped)),
	}
	for _, d := range res.Report.Dropped {
		logFile = append(logFile, fmt.Sprintf("  line %d: %s\n", d.Line, d.Reason))
	}

	logFile = append(logFile,
		"Epoch list: "+res.Epochs+"\n",
		fmt.Sprintf("Nominal FCF peak: 450 = %g, 850 = %g\n", n.Peak450, n.Peak850),
		fmt.Sprintf("Nominal FCF arcsec: 450 = %g, 850 = %g\n", n.Arcsec450, n.Arcsec850),
		"\n",
	)

	for _, g := range res.Summary.Groups {
		st := g.Stats[summary.FCFPeak]
		logFile = append(logFile, fmt.Sprintf("%s %s: N = %d, FCF peak = %.1f ± %.1f\n",
			g.Source, g.Wavelength, g.Count, st.Mean, st.StdDev))
	}

	for _, b := range res.Beams {
		logFile = append(logFile, fmt.Sprintf(
			"\nUranus %s micron beam: %.1f\" from %d points (expected %.1f ± %.1f\")\n",
			b.Wavelength, b.Beamwidth, b.N, b.Expected, b.ExpectedErr))
	}

	logFile = append(logFile, fmt.Sprintf("\nFigures written: %d\n", len(res.Figures)))
	if len(res.Skipped) > 0 {
		var names []string
		for _, sk := range res.Skipped {
			names = append(names, sk.Name+" ("+sk.Reason+")")
		}
		logFile = append(logFile, "Skipped: "+strings.Join(names, ", ")+"\n")
	}
	return logFile
}
