package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/derive"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/epoch"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/output"
)

const header = "targetname,ut,filter,fcfbeam,fcfasec,trans,fwhmmajor,fwhmminor\n"

type recorder struct {
	names []string
	fail  error
}

func (r *recorder) Render(fig figure.Figure, path string) error {
	if r.fail != nil {
		return r.fail
	}
	r.names = append(r.names, fig.Name)
	return os.WriteFile(path, []byte(fig.Title), 0o644)
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cal.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+body), 0o644))
	return path
}

var clock = func() time.Time { return time.Date(2021, 9, 1, 14, 30, 0, 0, time.UTC) }

// tenRows has ten observations over two sources and both filters; line 6
// carries an unparseable timestamp.
func tenRows() string {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		source, filter, peak, asec := "URANUS", "850", 495.0+float64(i), 2.07
		if i%2 == 1 {
			source = "CRL618"
		}
		if i >= 7 {
			filter, peak, asec = "450", 472+float64(i), 3.87
		}
		ut := fmt.Sprintf("2021-05-%02d 10:00:00", i+1)
		if i == 4 {
			ut = "2021-05-05 not-a-time"
		}
		fmt.Fprintf(&b, "%s,%s,%s,%g,%g,0.6,14,13\n", source, ut, filter, peak, asec)
	}
	return b.String()
}

func TestRunSkipsBadTimestamp(t *testing.T) {
	r := &recorder{}
	base := t.TempDir()

	res, err := Run(writeCSV(t, tenRows()),
		WithRenderer(r),
		WithOutputBase(base),
		WithClock(clock),
	)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Report.Rows)
	assert.Equal(t, 9, res.Report.Kept())
	require.Len(t, res.Report.Dropped, 1)
	assert.Equal(t, 6, res.Report.Dropped[0].Line)

	assert.Equal(t, 9, res.Summary.Total())
	total := 0
	for _, g := range res.Summary.Groups {
		total += g.Count
	}
	assert.Equal(t, 9, total)

	assert.Equal(t, filepath.Join(base, output.DirName(clock())), res.Dir)
	assert.Equal(t, epoch.Default().Version, res.Epochs)
	assert.Len(t, res.Figures, len(r.names))
	assert.Contains(t, r.names, "FCFpeak_ratio_vs_date_450")
	assert.Contains(t, r.names, "FCFasec_vs_date_850")

	for _, path := range res.Figures {
		assert.FileExists(t, path)
		assert.Equal(t, ".png", filepath.Ext(path))
	}
	assert.FileExists(t, filepath.Join(res.Dir, output.WorkbookName))

	log, err := os.ReadFile(filepath.Join(res.Dir, "log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "Rows: 10, kept: 9, dropped: 1")
	assert.Contains(t, string(log), "line 6: unparseable ut")
	assert.Contains(t, string(log), "Nominal FCF peak: 450 = 472, 850 = 495")
}

func TestRunUranusBeam(t *testing.T) {
	var b strings.Builder
	for i, asec := range []float64{2.0, 2.1, 2.2, 2.3} {
		fmt.Fprintf(&b, "Uranus,2021-06-%02d 09:00:00,850,%g,%g,0.6,14,13\n", i+1, 240*asec, asec)
	}

	res, err := Run(writeCSV(t, b.String()),
		WithRenderer(&recorder{}),
		WithOutputBase(t.TempDir()),
		WithClock(clock),
	)
	require.NoError(t, err)
	require.Len(t, res.Beams, 1)
	assert.InDelta(t, 240, res.Beams[0].Slope, 1e-2)

	log, err := os.ReadFile(filepath.Join(res.Dir, "log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "Uranus 850 micron beam")
	assert.Contains(t, string(log), "Skipped: 450 micron plots")
}

func TestRunHeaderOnly(t *testing.T) {
	base := t.TempDir()
	r := &recorder{}

	_, err := Run(writeCSV(t, ""), WithRenderer(r), WithOutputBase(base), WithClock(clock))
	require.Error(t, err)
	assert.True(t, errors.Is(err, calerr.ErrRender))
	assert.Empty(t, r.names)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.csv")
	require.NoError(t, os.WriteFile(path, []byte("targetname,ut\nURANUS,2021-01-01 00:00:00\n"), 0o644))

	_, err := Run(path, WithRenderer(&recorder{}), WithOutputBase(t.TempDir()))
	assert.True(t, errors.Is(err, calerr.ErrMalformedInput))
}

func TestRunUnwritableBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(base, nil, 0o644))

	_, err := Run(writeCSV(t, tenRows()), WithRenderer(&recorder{}), WithOutputBase(base), WithClock(clock))
	assert.True(t, errors.Is(err, calerr.ErrOutputWrite))
}

func TestRunRenderFailure(t *testing.T) {
	fail := calerr.Wrapf(calerr.ErrRender, nil, "boom")
	_, err := Run(writeCSV(t, tenRows()),
		WithRenderer(&recorder{fail: fail}),
		WithOutputBase(t.TempDir()),
		WithClock(clock),
	)
	assert.True(t, errors.Is(err, calerr.ErrRender))
}

func TestRunBadConfiguration(t *testing.T) {
	csv := writeCSV(t, tenRows())

	_, err := Run(csv, WithNominal(derive.Nominal{}), WithRenderer(&recorder{}))
	assert.True(t, errors.Is(err, calerr.ErrMalformedInput))

	_, err = Run(csv, WithEpochs(epoch.Set{}), WithRenderer(&recorder{}))
	assert.True(t, errors.Is(err, calerr.ErrMalformedInput))
}

func TestRunNominalOverride(t *testing.T) {
	n := derive.DefaultNominal()
	n.Peak450 = 481

	r := &recorder{}
	res, err := Run(writeCSV(t, tenRows()),
		WithNominal(n),
		WithRenderer(r),
		WithOutputBase(t.TempDir()),
		WithClock(clock),
		WithFormats("png", "pdf"),
	)
	require.NoError(t, err)
	require.Len(t, res.Figures, len(r.names))
	pdfs := 0
	for _, path := range res.Figures {
		if filepath.Ext(path) == ".pdf" {
			pdfs++
		}
	}
	assert.Equal(t, len(res.Figures)/2, pdfs)

	log, err := os.ReadFile(filepath.Join(res.Dir, "log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "450 = 481")
}

func TestRunGonumWithoutGnuplotOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	res, err := Run(writeCSV(t, tenRows()),
		WithOutputBase(t.TempDir()),
		WithClock(clock),
		WithFormats("svg"),
	)
	require.NoError(t, err)
	require.NotEmpty(t, res.Figures)
	for _, path := range res.Figures {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
