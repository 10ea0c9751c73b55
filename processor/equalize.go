package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nci/satlib/utils"
)

const DefaultHistogramBins = 256

var (
	ErrEmptyHistogram = errors.New("no pixels selected to fit the histogram")
	ErrNonFinite      = errors.New("histogram range must be finite")
)

// EqualizeHist remaps r so that its value distribution is flat. The
// cumulative distribution is fit only on pixels where mask is 1 (all
// pixels for a nil mask) but every pixel is remapped. Results lie in
// [0, 1]; NaN pixels stay NaN.
//
// Integer rasters get one bin per integer value, float rasters nbins
// equal bins between the fitted minimum and maximum.
func EqualizeHist(r utils.Raster, mask *utils.ByteRaster, nbins int) ([]float64, error) {
	if mask != nil && mask.Len() != r.Len() {
		return nil, fmt.Errorf("mask has %d pixels but raster has %d", mask.Len(), r.Len())
	}
	if nbins <= 0 {
		nbins = DefaultHistogramBins
	}

	values := utils.Float64s(r)
	sample := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || (mask != nil && mask.Data[i] == 0) {
			continue
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: pixel %d is %v", ErrNonFinite, i, v)
		}
		sample = append(sample, v)
	}
	if len(sample) == 0 {
		return nil, ErrEmptyHistogram
	}
	sort.Float64s(sample)

	centers, cdf := cumulativeDistribution(sample, nbins, utils.IsIntegerRaster(r))

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = interp(v, centers, cdf)
	}
	return out, nil
}

// cumulativeDistribution returns the bin centers and the normalised
// cumulative histogram of the sorted sample.
func cumulativeDistribution(sorted []float64, nbins int, integer bool) ([]float64, []float64) {
	lo, hi := sorted[0], sorted[len(sorted)-1]

	var dividers []float64
	if integer {
		dividers = make([]float64, int(hi-lo)+2)
		floats.Span(dividers, lo-0.5, hi+0.5)
	} else {
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
		dividers = make([]float64, nbins+1)
		floats.Span(dividers, lo, hi)
		// the top edge belongs to the last bin
		dividers[nbins] = math.Nextafter(hi, math.Inf(1))
	}

	hist := stat.Histogram(nil, dividers, sorted, nil)
	centers := make([]float64, len(hist))
	for i := range hist {
		centers[i] = (dividers[i] + dividers[i+1]) / 2
	}
	if integer {
		for i := range centers {
			centers[i] = lo + float64(i)
		}
	}

	cdf := make([]float64, len(hist))
	floats.CumSum(cdf, hist)
	total := cdf[len(cdf)-1]
	for i := range cdf {
		cdf[i] /= total
	}
	return centers, cdf
}

// interp linearly interpolates v through (xp, fp), clamping outside the
// range of xp.
func interp(v float64, xp, fp []float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	n := len(xp)
	if v <= xp[0] {
		return fp[0]
	}
	if v >= xp[n-1] {
		return fp[n-1]
	}
	j := sort.SearchFloat64s(xp, v)
	if xp[j] == v {
		return fp[j]
	}
	x0, x1 := xp[j-1], xp[j]
	return fp[j-1] + (fp[j]-fp[j-1])*(v-x0)/(x1-x0)
}
