package mcmc

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Result accumulates the weighted running means and the centered
// sums of products of the chain points, updated incrementally so that
// a large offset does not cancel the variances. Standard deviations
// and the covariance are derived on demand. Two results of the same
// dimension can be combined, which allows to run independent chains
// concurrently.
type Result struct {
	npar           int
	count          int
	countDifferent int
	mean           []float64
	// comoment is the packed upper triangle of
	// sum_k w_k (x_k - mean)(x_k - mean)^T.
	comoment []float64
	// delta holds x - mean before the update of the mean.
	delta []float64

	// SkipNonFinite makes Fill ignore points with a non-finite
	// negative log posterior.
	SkipNonFinite bool
}

// NewResult creates an empty result for npar parameters.
func NewResult(npar int) *Result {
	if npar <= 0 {
		panic("number of parameters should be > 0")
	}
	return &Result{
		npar:     npar,
		mean:     make([]float64, npar),
		comoment: make([]float64, npar*(npar+1)/2),
		delta:    make([]float64, npar),
	}
}

// index returns the position of (i, j), i <= j, in the packed upper
// triangle.
func (r *Result) index(i, j int) int {
	return i*(2*r.npar-i-1)/2 + j
}

// Reset zeroes all the totals.
func (r *Result) Reset() {
	for i := range r.mean {
		r.mean[i] = 0
	}
	for i := range r.comoment {
		r.comoment[i] = 0
	}
	r.count = 0
	r.countDifferent = 0
}

// Fill adds a point with the given weight.
func (r *Result) Fill(x []float64, nll float64, weight int) {
	if weight < 1 {
		panic("weight should be >= 1")
	}
	if r.SkipNonFinite && (math.IsNaN(nll) || math.IsInf(nll, 0)) {
		return
	}
	w := float64(weight)
	r.count += weight
	f := w / float64(r.count)
	for i, m := range r.mean {
		r.delta[i] = x[i] - m
		r.mean[i] = m + r.delta[i]*f
	}
	// C += w (x - mean_old)(x - mean_new)^T
	z := 0
	for i := 0; i < r.npar; i++ {
		wd := w * r.delta[i]
		for j := i; j < r.npar; j++ {
			r.comoment[z] += wd * (x[j] - r.mean[j])
			z++
		}
	}
	r.countDifferent++
}

// End is called after the last point of a chain.
func (r *Result) End() {}

// NPar returns the number of parameters.
func (r *Result) NPar() int {
	return r.npar
}

// Count returns the total weight of all points.
func (r *Result) Count() int {
	return r.count
}

// CountDifferent returns the number of distinct points.
func (r *Result) CountDifferent() int {
	return r.countDifferent
}

// JumpRate returns the fraction of steps which moved the chain to a
// new point.
func (r *Result) JumpRate() float64 {
	return float64(r.countDifferent) / float64(r.count)
}

// Means returns the weighted mean of every parameter. At least one
// point must have been filled.
func (r *Result) Means() []float64 {
	return append([]float64(nil), r.mean...)
}

// Sigmas returns the unbiased estimates of the standard deviations.
// Count must be > 1.
func (r *Result) Sigmas() []float64 {
	n := float64(r.count)
	sigmas := make([]float64, r.npar)
	for i := range sigmas {
		v := r.comoment[r.index(i, i)] / (n - 1)
		// rounding for parameters which never move
		sigmas[i] = math.Sqrt(math.Max(v, 0))
	}
	return sigmas
}

// Cov returns the unbiased estimate of the covariance matrix. Count
// must be > 1.
func (r *Result) Cov() *mat.SymDense {
	n := float64(r.count)
	cov := mat.NewSymDense(r.npar, nil)
	for i := 0; i < r.npar; i++ {
		for j := i; j < r.npar; j++ {
			cov.SetSym(i, j, r.comoment[r.index(i, j)]/(n-1))
		}
	}
	return cov
}

// Combine merges the points of other into r using the pairwise update
// of Chan, Golub and LeVeque.
func (r *Result) Combine(other *Result) error {
	if r.npar != other.npar {
		return errors.Wrapf(ErrDimension, "cannot combine results with %d and %d parameters", r.npar, other.npar)
	}
	if other.count == 0 {
		return nil
	}
	na := float64(r.count)
	nb := float64(other.count)
	n := na + nb
	for i := range r.delta {
		r.delta[i] = other.mean[i] - r.mean[i]
	}
	f := na * nb / n
	z := 0
	for i := 0; i < r.npar; i++ {
		for j := i; j < r.npar; j++ {
			r.comoment[z] += other.comoment[z] + r.delta[i]*r.delta[j]*f
			z++
		}
	}
	for i := range r.mean {
		r.mean[i] += r.delta[i] * nb / n
	}
	r.count += other.count
	r.countDifferent += other.countDifferent
	return nil
}
