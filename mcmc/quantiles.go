package mcmc

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// QuantilesResult keeps the values of one parameter, every point
// repeated according to its weight, and returns quantiles of them once
// the chain has ended.
type QuantilesResult struct {
	npar   int
	ipar   int
	values []float64
	ended  bool
}

// NewQuantilesResult creates a result for parameter ipar. capacity is
// the expected number of iterations.
func NewQuantilesResult(npar, ipar, capacity int) (*QuantilesResult, error) {
	if ipar < 0 || ipar >= npar {
		return nil, errors.Wrapf(ErrDimension, "parameter %d with %d parameters", ipar, npar)
	}
	if capacity < 0 {
		capacity = 0
	}
	return &QuantilesResult{
		npar:   npar,
		ipar:   ipar,
		values: make([]float64, 0, capacity),
	}, nil
}

// NPar returns the number of parameters.
func (r *QuantilesResult) NPar() int {
	return r.npar
}

// Fill appends weight copies of the parameter value.
func (r *QuantilesResult) Fill(x []float64, nll float64, weight int) {
	for i := 0; i < weight; i++ {
		r.values = append(r.values, x[r.ipar])
	}
}

// End sorts the values.
func (r *QuantilesResult) End() {
	sort.Float64s(r.values)
	r.ended = true
}

// Count returns the number of values.
func (r *QuantilesResult) Count() int {
	return len(r.values)
}

// Quantile returns the value at position int(q*n) of the sorted
// values. It fails if the chain has not ended yet.
func (r *QuantilesResult) Quantile(q float64) (float64, error) {
	if !r.ended {
		return math.NaN(), errors.WithMessage(ErrInvalidConfiguration, "quantile requested before the chain has finished")
	}
	if !(q > 0 && q < 1) {
		return math.NaN(), errors.Wrapf(ErrInvalidConfiguration, "quantile %v out of (0, 1)", q)
	}
	if len(r.values) == 0 {
		return math.NaN(), errors.WithMessage(ErrNumerical, "no values")
	}
	index := int(q * float64(len(r.values)))
	if index >= len(r.values) {
		index = len(r.values) - 1
	}
	return r.values[index], nil
}

// Combine appends the values of other, which must describe the same
// parameter. End has to be called again before Quantile.
func (r *QuantilesResult) Combine(other *QuantilesResult) error {
	if r.npar != other.npar || r.ipar != other.ipar {
		return errors.Wrapf(ErrDimension, "cannot combine parameter %d of %d with parameter %d of %d",
			r.ipar, r.npar, other.ipar, other.npar)
	}
	r.values = append(r.values, other.values...)
	r.ended = false
	return nil
}

// Reset clears the values.
func (r *QuantilesResult) Reset() {
	r.values = r.values[:0]
	r.ended = false
}
