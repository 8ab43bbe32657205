// Package output lays out a run's results on disk.
package output

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/figure"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/render"
)

// Prefix starts every output directory name.
const Prefix = "ops_meeting_plots_"

// DirName names the output directory for a run started at t.
func DirName(
	t time.Time,
) (
	string,
) {

	return Prefix + t.Format("15:04:05")
}

// Organizer creates the run directory and writes everything into it.
type Organizer struct {
	// Base is the parent of the run directory; empty means the working
	// directory.
	Base string

	// Formats are image extensions written for every figure; empty means png.
	Formats []string

	Renderer render.Renderer
	Clock    func() time.Time
	Log      *zap.Logger
}

func (o Organizer) log() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

func (o Organizer) formats() []string {
	if len(o.Formats) == 0 {
		return []string{"png"}
	}
	return o.Formats
}

// Prepare creates the run directory, named from the clock, and returns its
// path.
func (o Organizer) Prepare() (string, error) {
	now := time.Now
	if o.Clock != nil {
		now = o.Clock
	}

	dir := filepath.Join(o.Base, DirName(now()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", calerr.Wrapf(calerr.ErrOutputWrite, err, "create %s", dir)
	}
	o.log().Info("created output directory", zap.String("dir", dir))
	return dir, nil
}

// WriteFigures renders each figure once per format into dir and returns the
// written paths.
func (o Organizer) WriteFigures(
	dir string,
	figs []figure.Figure,
) (
	[]string, error,
) {

	if o.Renderer == nil {
		return nil, calerr.Wrapf(calerr.ErrRender, nil, "no renderer configured")
	}

	var paths []string
	for _, fig := range figs {
		for _, ext := range o.formats() {
			path := filepath.Join(dir, fig.Name+"."+ext)
			if err := o.Renderer.Render(fig, path); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
		o.log().Debug("wrote figure", zap.String("figure", fig.Name), zap.Int("points", fig.Len()))
	}
	return paths, nil
}

// WriteLog writes the run report to dir/log.txt.
func (o Organizer) WriteLog(
	dir string,
	logFile []string,
) error {

	txt, err := os.Create(filepath.Join(dir, "log.txt"))
	if err != nil {
		return calerr.Wrapf(calerr.ErrOutputWrite, err, "create log")
	}
	defer txt.Close()

	w := bufio.NewWriter(txt)
	for _, line := range logFile {
		if _, err := w.WriteString(line); err != nil {
			return calerr.Wrapf(calerr.ErrOutputWrite, err, "write log")
		}
	}
	if err := w.Flush(); err != nil {
		return calerr.Wrapf(calerr.ErrOutputWrite, err, "flush log")
	}
	return nil
}
