package mcmc

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Histogram is a one-dimensional histogram with equal width bins
// between Lower and Upper. Bin 0 is the underflow, bin NBins+1 the
// overflow.
type Histogram struct {
	Lower, Upper float64
	data         []float64
}

// NewHistogram creates an empty histogram.
func NewHistogram(nbins int, lower, upper float64) (*Histogram, error) {
	if nbins <= 0 || !(lower < upper) {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "histogram with %d bins on [%v, %v]", nbins, lower, upper)
	}
	return &Histogram{
		Lower: lower,
		Upper: upper,
		data:  make([]float64, nbins+2),
	}, nil
}

// NBins returns the number of bins without under- and overflow.
func (h *Histogram) NBins() int {
	return len(h.data) - 2
}

// Fill adds weight to the bin containing x.
func (h *Histogram) Fill(x, weight float64) {
	nbins := h.NBins()
	var bin int
	switch {
	case math.IsNaN(x):
		return
	case x < h.Lower:
		bin = 0
	case x >= h.Upper:
		bin = nbins + 1
	default:
		bin = int((x-h.Lower)*float64(nbins)/(h.Upper-h.Lower)) + 1
		// rounding at the upper edge
		if bin > nbins {
			bin = nbins
		}
	}
	h.data[bin] += weight
}

// Bin returns the content of bin i, 0 <= i <= NBins()+1.
func (h *Histogram) Bin(i int) float64 {
	return h.data[i]
}

// BinCenter returns the center of bin i, 1 <= i <= NBins().
func (h *Histogram) BinCenter(i int) float64 {
	w := (h.Upper - h.Lower) / float64(h.NBins())
	return h.Lower + (float64(i)-0.5)*w
}

// Integral returns the sum of all bins including under- and overflow.
func (h *Histogram) Integral() float64 {
	return floats.Sum(h.data)
}

// Add adds the contents of other, which must have the same binning.
func (h *Histogram) Add(other *Histogram) error {
	if len(h.data) != len(other.data) || h.Lower != other.Lower || h.Upper != other.Upper {
		return errors.WithMessage(ErrDimension, "histograms have different binning")
	}
	floats.Add(h.data, other.data)
	return nil
}

// Reset zeroes all bins.
func (h *Histogram) Reset() {
	for i := range h.data {
		h.data[i] = 0
	}
}

// HistoSpec selects the parameter and the binning of a posterior
// histogram.
type HistoSpec struct {
	Par   int
	NBins int
	Lower float64
	Upper float64
}

// HistoResult is a Result which also fills weighted histograms of
// selected parameters.
type HistoResult struct {
	*Result
	specs  []HistoSpec
	histos []*Histogram
}

// NewHistoResult creates a result with one histogram per spec.
func NewHistoResult(npar int, specs ...HistoSpec) (*HistoResult, error) {
	r := &HistoResult{
		Result: NewResult(npar),
		specs:  specs,
		histos: make([]*Histogram, len(specs)),
	}
	for i, s := range specs {
		if s.Par < 0 || s.Par >= npar {
			return nil, errors.Wrapf(ErrDimension, "histogram of parameter %d with %d parameters", s.Par, npar)
		}
		h, err := NewHistogram(s.NBins, s.Lower, s.Upper)
		if err != nil {
			return nil, err
		}
		r.histos[i] = h
	}
	return r, nil
}

// Fill adds a point to the moments and to the histograms.
func (r *HistoResult) Fill(x []float64, nll float64, weight int) {
	if r.SkipNonFinite && (math.IsNaN(nll) || math.IsInf(nll, 0)) {
		return
	}
	r.Result.Fill(x, nll, weight)
	for i, s := range r.specs {
		r.histos[i].Fill(x[s.Par], float64(weight))
	}
}

// Reset clears the moments and the histograms.
func (r *HistoResult) Reset() {
	r.Result.Reset()
	for _, h := range r.histos {
		h.Reset()
	}
}

// Histogram returns the i-th histogram in the order of the specs.
func (r *HistoResult) Histogram(i int) *Histogram {
	return r.histos[i]
}
