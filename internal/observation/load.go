package observation

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
)

// RequiredColumns must all be present in the header of an Archimedes export.
var RequiredColumns = []string{
	"targetname", "ut", "filter", "fcfbeam", "fcfasec", "trans", "fwhmmajor", "fwhmminor",
}

// utLayouts are tried in order; fractional seconds are accepted by all of them.
var utLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

type row struct {
	TargetName string `csv:"targetname"`
	UT         string `csv:"ut"`
	Filter     string `csv:"filter"`
	FCFBeam    string `csv:"fcfbeam"`
	FCFAsec    string `csv:"fcfasec"`
	Trans      string `csv:"trans"`
	FWHMMajor  string `csv:"fwhmmajor"`
	FWHMMinor  string `csv:"fwhmminor"`
	FCFMatch   string `csv:"fcfmatch"`
	FWHMMain   string `csv:"fwhmmain"`
}

// Drop records a row the loader skipped.
type Drop struct {
	Line   int
	Reason string
}

// LoadReport summarises what the loader kept and skipped.
type LoadReport struct {
	Rows    int
	Dropped []Drop
}

// Kept is the number of rows turned into records.
func (r LoadReport) Kept() int {
	return r.Rows - len(r.Dropped)
}

// Load opens path and reads it with Read.
func Load(
	path string,
	log *zap.Logger,
) (
	[]Record, LoadReport, error,
) {

	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, calerr.Wrapf(calerr.ErrMalformedInput, err, "open %s", path)
	}
	defer f.Close()

	return Read(f, log)
}

// Read parses an Archimedes CSV export. A missing required column is fatal;
// rows with stray quotes or a bad timestamp, number, filter or source name
// are dropped and logged.
func Read(
	in io.Reader,
	log *zap.Logger,
) (
	[]Record, LoadReport, error,
) {

	if log == nil {
		log = zap.NewNop()
	}

	var report LoadReport

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, report, calerr.Wrapf(calerr.ErrMalformedInput, nil, "csv has no header")
	}
	if err != nil {
		return nil, report, calerr.Wrapf(calerr.ErrMalformedInput, err, "read csv header")
	}

	header = normalizeHeader(header)
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, report, calerr.Wrapf(calerr.ErrMalformedInput, nil,
			"csv missing required columns: %s", strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, report, calerr.Wrapf(calerr.ErrMalformedInput, err, "csv header")
	}

	var records []Record
	for {
		var raw row
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		report.Rows++

		var pe *csv.ParseError
		if errors.As(err, &pe) {
			report.drop(log, pe.StartLine, "unparseable row: "+pe.Err.Error())
			continue
		}
		if err != nil && !errors.Is(err, csvutil.ErrFieldCount) {
			return nil, report, calerr.Wrapf(calerr.ErrMalformedInput, err, "read csv row %d", report.Rows)
		}
		line, _ := cr.FieldPos(0)
		if err != nil {
			report.drop(log, line, "wrong number of fields")
			continue
		}

		rec, reason := parseRow(raw, present)
		if reason != "" {
			report.drop(log, line, reason)
			continue
		}
		rec.Line = line
		records = append(records, rec)
	}

	log.Info("loaded observations",
		zap.Int("rows", report.Rows),
		zap.Int("kept", report.Kept()),
		zap.Int("dropped", len(report.Dropped)),
	)

	return records, report, nil
}

func (r *LoadReport) drop(
	log *zap.Logger,
	line int,
	reason string,
) {

	r.Dropped = append(r.Dropped, Drop{Line: line, Reason: reason})
	log.Warn("dropping row", zap.Int("line", line), zap.String("reason", reason))
}

func parseRow(
	raw row,
	present map[string]bool,
) (
	Record, string,
) {

	var rec Record

	rec.Source = NormalizeSource(raw.TargetName)
	if rec.Source == "" {
		return rec, "empty targetname"
	}

	ut, err := ParseUT(raw.UT)
	if err != nil {
		return rec, "unparseable ut " + strconv.Quote(raw.UT)
	}
	rec.UT = ut

	filter, err := parseFloat(raw.Filter)
	if err != nil {
		return rec, "unparseable filter " + strconv.Quote(raw.Filter)
	}
	rec.Wavelength = Wavelength(int(math.Round(filter)))
	if !rec.Wavelength.Valid() || filter != math.Round(filter) {
		return rec, "unknown filter " + strconv.Quote(raw.Filter)
	}

	required := []struct {
		name string
		in   string
		out  *float64
	}{
		{"fcfbeam", raw.FCFBeam, &rec.FCFPeak},
		{"fcfasec", raw.FCFAsec, &rec.FCFArcsec},
		{"trans", raw.Trans, &rec.Trans},
		{"fwhmmajor", raw.FWHMMajor, &rec.MajorFWHM},
		{"fwhmminor", raw.FWHMMinor, &rec.MinorFWHM},
	}
	for _, f := range required {
		v, err := parseFloat(f.in)
		if err != nil {
			return rec, "unparseable " + f.name + " " + strconv.Quote(f.in)
		}
		*f.out = v
	}

	rec.FCFMatch = optionalFloat(present["fcfmatch"], raw.FCFMatch)
	rec.MainFWHM = optionalFloat(present["fwhmmain"], raw.FWHMMain)

	return rec, ""
}

// ParseUT reads an Archimedes UT timestamp as UTC.
func ParseUT(
	s string,
) (
	time.Time, error,
) {

	s = strings.TrimSpace(s)
	var err error
	for _, layout := range utLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// NormalizeSource trims, collapses internal whitespace and upper-cases a
// target name so "Uranus " and "URANUS" group together.
func NormalizeSource(
	name string,
) (
	string,
) {

	return cases.Upper(language.Und).String(strings.Join(strings.Fields(name), " "))
}

func normalizeHeader(
	header []string,
) (
	[]string,
) {

	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return out
}

func parseFloat(
	s string,
) (
	float64, error,
) {

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func optionalFloat(
	present bool,
	s string,
) (
	float64,
) {

	if !present {
		return math.NaN()
	}
	v, err := parseFloat(s)
	if err != nil {
		return math.NaN()
	}
	return v
}
