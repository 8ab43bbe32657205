package output

import (
	"math"
	"path/filepath"

	"github.com/tealeg/xlsx/v2"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/beam"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/observation"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/summary"
)

// WorkbookName is the summary spreadsheet written next to the figures.
const WorkbookName = "summary.xlsx"

// WriteSummary saves the aggregate tables and beam fits to dir/summary.xlsx.
func (o Organizer) WriteSummary(
	dir string,
	sum summary.Summary,
	beams []beam.Result,
) error {

	f := xlsx.NewFile()

	groups, err := f.AddSheet("Groups")
	if err != nil {
		return calerr.Wrapf(calerr.ErrOutputWrite, err, "add sheet")
	}
	statsHeader(groups.AddRow())
	for _, g := range sum.Groups {
		statsRow(groups.AddRow(), g.Source, g)
	}

	global, err := f.AddSheet("Global")
	if err != nil {
		return calerr.Wrapf(calerr.ErrOutputWrite, err, "add sheet")
	}
	statsHeader(global.AddRow())
	for _, w := range observation.Wavelengths {
		if g, ok := sum.Global[w]; ok {
			statsRow(global.AddRow(), "ALL", g)
		}
	}

	if len(beams) > 0 {
		sheet, err := f.AddSheet("Beam")
		if err != nil {
			return calerr.Wrapf(calerr.ErrOutputWrite, err, "add sheet")
		}
		labels(sheet.AddRow(), "Wavelength", "N", "Slope", "Intercept", "Beamwidth", "Expected", "Expected error")
		for _, b := range beams {
			row := sheet.AddRow()
			row.AddCell().SetInt(int(b.Wavelength))
			row.AddCell().SetInt(b.N)
			for _, v := range []float64{b.Slope, b.Intercept, b.Beamwidth, b.Expected, b.ExpectedErr} {
				number(row, v)
			}
		}
	}

	path := filepath.Join(dir, WorkbookName)
	if err := f.Save(path); err != nil {
		return calerr.Wrapf(calerr.ErrOutputWrite, err, "save %s", path)
	}
	return nil
}

func statsHeader(row *xlsx.Row) {
	labels(row, "Source", "Wavelength", "Count")
	for _, m := range summary.Metrics {
		name := string(m)
		labels(row, name+" N", name+" mean", name+" sd", name+" stderr")
	}
}

func statsRow(
	row *xlsx.Row,
	source string,
	g summary.Group,
) {

	row.AddCell().SetString(source)
	row.AddCell().SetInt(int(g.Wavelength))
	row.AddCell().SetInt(g.Count)
	for _, m := range summary.Metrics {
		st := g.Stats[m]
		row.AddCell().SetInt(st.N)
		number(row, st.Mean)
		number(row, st.StdDev)
		number(row, st.StdErr)
	}
}

func labels(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// number leaves the cell blank for NaN.
func number(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		cell.SetFloat(v)
	}
}
