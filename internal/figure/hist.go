package figure

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MaxBins caps the histogram resolution.
const MaxBins = 40

// Histogram bins values into ceil(sqrt(n)) equal-width bins (at most
// MaxBins), normalised to unit area.
func Histogram(
	values []float64,
) (
	[]Bin,
) {

	if len(values) == 0 {
		return nil
	}

	x := append([]float64(nil), values...)
	sort.Float64s(x)

	n := int(math.Ceil(math.Sqrt(float64(len(x)))))
	if n > MaxBins {
		n = MaxBins
	}

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	// stat.Histogram wants the last divider strictly above the largest value.
	dividers := make([]float64, n+1)
	floats.Span(dividers, lo, hi)
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)

	width := (hi - lo) / float64(n)
	total := float64(len(x))
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{
			Min:    dividers[i],
			Max:    dividers[i+1],
			Count:  int(counts[i]),
			Height: counts[i] / (total * width),
		}
	}
	return bins
}
