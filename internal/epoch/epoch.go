// Package epoch assigns observations to SCUBA-2 hardware epochs.
package epoch

import (
	_ "embed"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
)

//go:embed default_epochs.yaml
var defaultEpochs []byte

// Epoch is a period of fixed hardware configuration. Start is inclusive and
// End exclusive; a zero Start or End is unbounded on that side.
type Epoch struct {
	Label string
	Group string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside e.
func (e Epoch) Contains(t time.Time) bool {
	if !e.Start.IsZero() && t.Before(e.Start) {
		return false
	}
	if !e.End.IsZero() && !t.Before(e.End) {
		return false
	}
	return true
}

// Set is a versioned, ordered list of contiguous epochs.
type Set struct {
	Version string
	Epochs  []Epoch
}

type fileSet struct {
	Version string      `yaml:"version"`
	Epochs  []fileEpoch `yaml:"epochs"`
}

type fileEpoch struct {
	Label string `yaml:"label"`
	Group string `yaml:"group"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

var boundaryLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Default returns the built-in SCUBA-2 hardware history.
func Default() Set {
	s, err := Parse(defaultEpochs)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadFile reads an epoch set from a YAML file.
func LoadFile(
	path string,
) (
	Set, error,
) {

	b, err := os.ReadFile(path)
	if err != nil {
		return Set{}, calerr.Wrapf(calerr.ErrMalformedInput, err, "read epochs %s", path)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML epoch set.
func Parse(
	b []byte,
) (
	Set, error,
) {

	var fs fileSet
	if err := yaml.Unmarshal(b, &fs); err != nil {
		return Set{}, calerr.Wrapf(calerr.ErrMalformedInput, err, "decode epochs")
	}

	s := Set{Version: fs.Version}
	for i, fe := range fs.Epochs {
		start, err := parseBoundary(fe.Start)
		if err != nil {
			return Set{}, calerr.Wrapf(calerr.ErrMalformedInput, err, "epoch %d (%s) start", i, fe.Label)
		}
		end, err := parseBoundary(fe.End)
		if err != nil {
			return Set{}, calerr.Wrapf(calerr.ErrMalformedInput, err, "epoch %d (%s) end", i, fe.Label)
		}
		group := fe.Group
		if group == "" {
			group = fe.Label
		}
		s.Epochs = append(s.Epochs, Epoch{Label: fe.Label, Group: group, Start: start, End: end})
	}

	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

func parseBoundary(
	s string,
) (
	time.Time, error,
) {

	if s == "" {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range boundaryLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// Validate checks the epochs are non-empty, labelled, ordered and contiguous,
// with only the first start and the last end left open.
func (s Set) Validate() error {
	if len(s.Epochs) == 0 {
		return calerr.Wrapf(calerr.ErrMalformedInput, nil, "epoch set %q is empty", s.Version)
	}

	last := len(s.Epochs) - 1
	for i, e := range s.Epochs {
		if e.Label == "" {
			return calerr.Wrapf(calerr.ErrMalformedInput, nil, "epoch %d has no label", i)
		}
		if i > 0 && e.Start.IsZero() {
			return calerr.Wrapf(calerr.ErrMalformedInput, nil, "epoch %q has no start", e.Label)
		}
		if i < last && e.End.IsZero() {
			return calerr.Wrapf(calerr.ErrMalformedInput, nil, "epoch %q has no end", e.Label)
		}
		if !e.Start.IsZero() && !e.End.IsZero() && !e.End.After(e.Start) {
			return calerr.Wrapf(calerr.ErrMalformedInput, nil, "epoch %q ends before it starts", e.Label)
		}
		if i > 0 && !s.Epochs[i-1].End.Equal(e.Start) {
			return calerr.Wrapf(calerr.ErrMalformedInput, nil,
				"epoch %q does not start where %q ends", e.Label, s.Epochs[i-1].Label)
		}
	}
	return nil
}

// Groups lists the distinct epoch groups in order of first appearance.
func (s Set) Groups() []string {
	seen := map[string]bool{}
	var groups []string
	for _, e := range s.Epochs {
		if !seen[e.Group] {
			seen[e.Group] = true
			groups = append(groups, e.Group)
		}
	}
	return groups
}

// Classifier maps timestamps to epochs.
type Classifier struct {
	set    Set
	starts []time.Time
}

// NewClassifier validates s and indexes its boundaries.
func NewClassifier(
	s Set,
) (
	*Classifier, error,
) {

	if err := s.Validate(); err != nil {
		return nil, err
	}

	starts := make([]time.Time, len(s.Epochs))
	for i, e := range s.Epochs {
		starts[i] = e.Start
	}
	return &Classifier{set: s, starts: starts}, nil
}

// Set returns the epoch set the classifier was built from.
func (c *Classifier) Set() Set {
	return c.set
}

// Classify returns the single epoch covering t. Times before the first
// boundary fall in the first epoch and everything after the last boundary in
// the final, open-ended one.
func (c *Classifier) Classify(
	t time.Time,
) (
	Epoch,
) {

	// First epoch whose start is after t; the one before it covers t.
	i := sort.Search(len(c.starts), func(i int) bool {
		return !c.starts[i].IsZero() && c.starts[i].After(t)
	})
	if i == 0 {
		return c.set.Epochs[0]
	}
	return c.set.Epochs[i-1]
}
