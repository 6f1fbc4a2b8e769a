package mcmc

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// RatioResult records the negative log posterior of every distinct
// point. It is used to compare the average posterior of two models.
type RatioResult struct {
	npar    int
	nll     []float64
	weights []int
	total   int
}

// NewRatioResult creates an empty result.
func NewRatioResult(npar int) *RatioResult {
	return &RatioResult{npar: npar}
}

// NPar returns the number of parameters.
func (r *RatioResult) NPar() int {
	return r.npar
}

// Fill records nll and weight; the point itself is ignored.
func (r *RatioResult) Fill(x []float64, nll float64, weight int) {
	r.nll = append(r.nll, nll)
	r.weights = append(r.weights, weight)
	r.total += weight
}

// End does nothing.
func (r *RatioResult) End() {}

// Count returns the total weight of all points.
func (r *RatioResult) Count() int {
	return r.total
}

// NLAveragePosterior returns -log(1/N sum_i w_i exp(-nll_i)), or NaN
// if nothing was filled.
func (r *RatioResult) NLAveragePosterior() float64 {
	if r.total == 0 {
		return math.NaN()
	}
	terms := make([]float64, len(r.nll))
	for i, nll := range r.nll {
		terms[i] = math.Log(float64(r.weights[i])) - nll
	}
	return math.Log(float64(r.total)) - floats.LogSumExp(terms)
}

// Combine appends the points of other.
func (r *RatioResult) Combine(other *RatioResult) error {
	if r.npar != other.npar {
		return errors.Wrapf(ErrDimension, "cannot combine results with %d and %d parameters", r.npar, other.npar)
	}
	r.nll = append(r.nll, other.nll...)
	r.weights = append(r.weights, other.weights...)
	r.total += other.total
	return nil
}

// JumpRate returns the fraction of steps which moved the chain.
func (r *RatioResult) JumpRate() float64 {
	return float64(len(r.nll)) / float64(r.total)
}
