package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/beam"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/summary"
)

type recorder struct {
	paths []string
	fail  string
}

func (r *recorder) Render(fig figure.Figure, path string) error {
	if fig.Name == r.fail {
		return calerr.Wrapf(calerr.ErrRender, nil, "boom")
	}
	r.paths = append(r.paths, path)
	return os.WriteFile(path, []byte(fig.Name), 0o644)
}

func fixedClock() time.Time {
	return time.Date(2021, 9, 14, 13, 5, 9, 0, time.Local)
}

func TestDirName(t *testing.T) {
	assert.Equal(t, "ops_meeting_plots_13:05:09", DirName(fixedClock()))
}

func TestPrepare(t *testing.T) {
	base := t.TempDir()
	o := Organizer{Base: base, Clock: fixedClock}

	dir, err := o.Prepare()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "ops_meeting_plots_13:05:09"), dir)
	assert.DirExists(t, dir)

	// Same second again reuses the directory.
	_, err = o.Prepare()
	assert.NoError(t, err)
}

func TestPrepareFails(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Organizer{Base: blocker, Clock: fixedClock}.Prepare()
	require.Error(t, err)
	assert.True(t, errors.Is(err, calerr.ErrOutputWrite))
}

func TestWriteFigures(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	o := Organizer{Renderer: rec, Formats: []string{"png", "svg"}}

	paths, err := o.WriteFigures(dir, []figure.Figure{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.png"), filepath.Join(dir, "a.svg"),
		filepath.Join(dir, "b.png"), filepath.Join(dir, "b.svg"),
	}, paths)
	assert.Equal(t, paths, rec.paths)
}

func TestWriteFiguresDefaultFormat(t *testing.T) {
	rec := &recorder{}
	paths, err := Organizer{Renderer: rec}.WriteFigures(t.TempDir(), []figure.Figure{{Name: "a"}})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, ".png", filepath.Ext(paths[0]))
}

func TestWriteFiguresRenderError(t *testing.T) {
	rec := &recorder{fail: "b"}
	paths, err := Organizer{Renderer: rec}.WriteFigures(t.TempDir(), []figure.Figure{{Name: "a"}, {Name: "b"}})
	assert.True(t, errors.Is(err, calerr.ErrRender))
	assert.Len(t, paths, 1)

	_, err = Organizer{}.WriteFigures(t.TempDir(), nil)
	assert.True(t, errors.Is(err, calerr.ErrRender))
}

func TestWriteLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Organizer{}.WriteLog(dir, []string{"Input: x.csv\n", "Rows: 3\n"}))

	b, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Input: x.csv\nRows: 3\n", string(b))

	err = Organizer{}.WriteLog(filepath.Join(dir, "missing"), nil)
	assert.True(t, errors.Is(err, calerr.ErrOutputWrite))
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	g := summary.Group{
		Source:     "URANUS",
		Wavelength: observation.W850,
		Count:      2,
		Stats: map[summary.Metric]summary.Stats{
			summary.FCFPeak: {N: 2, Mean: 510, StdDev: 14.142135623730951, StdErr: 10},
		},
	}
	sum := summary.Summary{
		Groups: []summary.Group{g},
		Global: map[observation.Wavelength]summary.Group{observation.W850: g},
	}
	beams := []beam.Result{{Wavelength: observation.W850, N: 3, Slope: 240, Beamwidth: 14.4, Expected: 14.4, ExpectedErr: 0.3}}

	require.NoError(t, Organizer{}.WriteSummary(dir, sum, beams))

	f, err := xlsx.OpenFile(filepath.Join(dir, WorkbookName))
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	groups := f.Sheet["Groups"]
	require.NotNil(t, groups)
	require.Len(t, groups.Rows, 2)
	assert.Equal(t, "Source", groups.Rows[0].Cells[0].String())
	assert.Equal(t, "URANUS", groups.Rows[1].Cells[0].String())
	assert.Equal(t, "850", groups.Rows[1].Cells[1].String())
	assert.Equal(t, "2", groups.Rows[1].Cells[2].String())
	assert.Equal(t, "510", groups.Rows[1].Cells[4].String())

	global := f.Sheet["Global"]
	require.Len(t, global.Rows, 2)
	assert.Equal(t, "ALL", global.Rows[1].Cells[0].String())

	require.NotNil(t, f.Sheet["Beam"])
	assert.Equal(t, "240", f.Sheet["Beam"].Rows[1].Cells[2].String())
}

func TestWriteSummaryNoBeams(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Organizer{}.WriteSummary(dir, summary.Summary{}, nil))

	f, err := xlsx.OpenFile(filepath.Join(dir, WorkbookName))
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 2)
}
