package mcmc

import (
	"math"
)

// FullResult is a Result which also keeps every distinct point of the
// chain and its weight, in chain order.
type FullResult struct {
	*Result
	points  []float64
	weights []int
}

// NewFullResult creates an empty full result. capacity is the
// expected number of distinct points.
func NewFullResult(npar, capacity int) *FullResult {
	if capacity < 0 {
		capacity = 0
	}
	return &FullResult{
		Result:  NewResult(npar),
		points:  make([]float64, 0, capacity*npar),
		weights: make([]int, 0, capacity),
	}
}

// Fill adds a point to the moments and to the trace.
func (r *FullResult) Fill(x []float64, nll float64, weight int) {
	if r.SkipNonFinite && (math.IsNaN(nll) || math.IsInf(nll, 0)) {
		return
	}
	r.Result.Fill(x, nll, weight)
	r.points = append(r.points, x[:r.npar]...)
	r.weights = append(r.weights, weight)
}

// Reset clears the moments and the trace.
func (r *FullResult) Reset() {
	r.Result.Reset()
	r.points = r.points[:0]
	r.weights = r.weights[:0]
}

// Point returns the i-th distinct point, 0 <= i < CountDifferent().
// The returned slice must not be modified.
func (r *FullResult) Point(i int) []float64 {
	return r.points[i*r.npar : (i+1)*r.npar : (i+1)*r.npar]
}

// Weight returns the weight of the i-th distinct point.
func (r *FullResult) Weight(i int) int {
	return r.weights[i]
}

// Values returns the values of parameter ipar with every point
// repeated according to its weight.
func (r *FullResult) Values(ipar int) []float64 {
	values := make([]float64, 0, r.count)
	for i, w := range r.weights {
		v := r.points[i*r.npar+ipar]
		for j := 0; j < w; j++ {
			values = append(values, v)
		}
	}
	return values
}
