package epoch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
)

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDefaultSet(t *testing.T) {
	s := Default()
	assert.Equal(t, "2021-09", s.Version)
	require.Len(t, s.Epochs, 13)
	assert.NoError(t, s.Validate())
	assert.Equal(t, []string{"Pre-Filter Change", "Post-Filter Change", "Post-SMU Fix"}, s.Groups())
	assert.True(t, s.Epochs[0].Start.IsZero())
	assert.True(t, s.Epochs[12].End.IsZero())
}

func TestClassifyDefault(t *testing.T) {
	c, err := NewClassifier(Default())
	require.NoError(t, err)

	tests := []struct {
		ut    string
		label string
		group string
	}{
		{"1999-01-01T00:00:00Z", "Pre-Dempsey", "Pre-Filter Change"},
		{"2011-04-30T23:59:59Z", "Pre-Dempsey", "Pre-Filter Change"},
		{"2011-05-01T00:00:00Z", "Dempsey", "Pre-Filter Change"},
		{"2013-03-20T00:00:00Z", "WVM Out Of Service", "Pre-Filter Change"},
		{"2014-01-01T00:00:00Z", "Silver WVM", "Pre-Filter Change"},
		{"2016-10-06T00:00:00Z", "New Filters", "Post-Filter Change"},
		{"2018-06-30T08:10:59Z", "SMU Malfunction", "Post-Filter Change"},
		{"2018-06-30T08:11:00Z", "SMU Gain Fix", "Post-SMU Fix"},
		{"2018-07-26T00:00:00Z", "SMU Gain Fix", "Post-SMU Fix"},
		{"2021-09-01T00:00:00Z", "SMU HW Fix", "Post-SMU Fix"},
		{"2600-01-01T00:00:00Z", "SMU HW Fix", "Post-SMU Fix"},
	}
	for _, tt := range tests {
		e := c.Classify(utc(tt.ut))
		assert.Equal(t, tt.label, e.Label, tt.ut)
		assert.Equal(t, tt.group, e.Group, tt.ut)
		assert.True(t, e.Contains(utc(tt.ut)), tt.ut)
	}
}

func TestClassifyBoundedFirstEpoch(t *testing.T) {
	s := Set{Version: "test", Epochs: []Epoch{
		{Label: "A", Group: "A", Start: utc("2020-01-01T00:00:00Z"), End: utc("2021-01-01T00:00:00Z")},
		{Label: "B", Group: "B", Start: utc("2021-01-01T00:00:00Z")},
	}}
	c, err := NewClassifier(s)
	require.NoError(t, err)

	assert.Equal(t, "A", c.Classify(utc("2010-01-01T00:00:00Z")).Label)
	assert.Equal(t, "A", c.Classify(utc("2020-06-01T00:00:00Z")).Label)
	assert.Equal(t, "B", c.Classify(utc("2021-01-01T00:00:00Z")).Label)
	assert.Equal(t, "test", c.Set().Version)
}

func TestClassifyEveryTimeCovered(t *testing.T) {
	c, err := NewClassifier(Default())
	require.NoError(t, err)

	for ts := utc("2009-01-01T00:00:00Z"); ts.Before(utc("2023-01-01T00:00:00Z")); ts = ts.Add(97 * time.Hour) {
		e := c.Classify(ts)
		assert.NotEmpty(t, e.Label)
		assert.True(t, e.Contains(ts), ts)
	}
}

func TestValidateRejects(t *testing.T) {
	a := utc("2020-01-01T00:00:00Z")
	b := utc("2021-01-01T00:00:00Z")
	c := utc("2022-01-01T00:00:00Z")

	tests := map[string][]Epoch{
		"empty":         nil,
		"no label":      {{Start: a}},
		"gap":           {{Label: "x", End: b}, {Label: "y", Start: c}},
		"overlap":       {{Label: "x", End: c}, {Label: "y", Start: b}},
		"backwards":     {{Label: "x", Start: b, End: a}, {Label: "y", Start: a}},
		"open middle":   {{Label: "x"}, {Label: "y", Start: a}},
		"missing start": {{Label: "x", End: a}, {Label: "y"}},
	}
	for name, epochs := range tests {
		t.Run(name, func(t *testing.T) {
			err := Set{Version: "bad", Epochs: epochs}.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, calerr.ErrMalformedInput))

			_, err = NewClassifier(Set{Epochs: epochs})
			assert.Error(t, err)
		})
	}
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
version: v2
epochs:
  - label: Old receiver
    end: 2020-01-01
  - label: New receiver
    group: Upgraded
    start: 2020-01-01
`)
	s, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "v2", s.Version)
	require.Len(t, s.Epochs, 2)
	assert.Equal(t, "Old receiver", s.Epochs[0].Group)
	assert.Equal(t, "Upgraded", s.Epochs[1].Group)
	assert.Equal(t, utc("2020-01-01T00:00:00Z"), s.Epochs[1].Start)
}

func TestParseBadBoundary(t *testing.T) {
	_, err := Parse([]byte("epochs:\n  - label: x\n    end: soon\n"))
	assert.True(t, errors.Is(err, calerr.ErrMalformedInput))

	_, err = Parse([]byte("epochs: [this is: not"))
	assert.True(t, errors.Is(err, calerr.ErrMalformedInput))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epochs.yaml")
	require.NoError(t, os.WriteFile(path, defaultEpochs, 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, calerr.ErrMalformedInput))
}
