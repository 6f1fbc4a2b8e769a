package mcmc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultMoments(t *testing.T) {
	r := NewResult(2)
	r.Fill([]float64{1, 2}, 0, 1)
	r.Fill([]float64{2, 4}, 0, 1)
	r.Fill([]float64{3, 6}, 0, 1)

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 3, r.CountDifferent())
	assert.InDeltaSlice(t, []float64{2, 4}, r.Means(), 1e-12)
	assert.InDeltaSlice(t, []float64{1, 2}, r.Sigmas(), 1e-12)

	cov := r.Cov()
	assert.InDelta(t, 1, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 2, cov.At(0, 1), 1e-12)
	assert.InDelta(t, 2, cov.At(1, 0), 1e-12)
	assert.InDelta(t, 4, cov.At(1, 1), 1e-12)
}

func TestResultWeights(t *testing.T) {
	points := [][]float64{{0.5, -1, 3}, {1.5, 2, -0.25}, {-2, 0, 1}}
	weights := []int{3, 1, 5}

	weighted := NewResult(3)
	expanded := NewResult(3)
	for i, p := range points {
		weighted.Fill(p, 0, weights[i])
		for j := 0; j < weights[i]; j++ {
			expanded.Fill(p, 0, 1)
		}
	}

	assert.Equal(t, 9, weighted.Count())
	assert.Equal(t, 3, weighted.CountDifferent())
	assert.InDelta(t, 3.0/9, weighted.JumpRate(), 1e-12)
	assert.Equal(t, expanded.Count(), weighted.Count())
	assert.InDeltaSlice(t, expanded.Means(), weighted.Means(), 1e-12)
	assert.InDeltaSlice(t, expanded.Sigmas(), weighted.Sigmas(), 1e-12)
	assert.InDeltaSlice(t, expanded.Cov().RawSymmetric().Data, weighted.Cov().RawSymmetric().Data, 1e-12)
}

func TestResultCombine(t *testing.T) {
	a := NewResult(2)
	b := NewResult(2)
	all := NewResult(2)
	for i := 0; i < 10; i++ {
		x := []float64{float64(i), float64(i * i)}
		if i%3 == 0 {
			a.Fill(x, 0, i+1)
		} else {
			b.Fill(x, 0, i+1)
		}
		all.Fill(x, 0, i+1)
	}

	ab := NewResult(2)
	require.NoError(t, ab.Combine(a))
	require.NoError(t, ab.Combine(b))
	ba := NewResult(2)
	require.NoError(t, ba.Combine(b))
	require.NoError(t, ba.Combine(a))

	for _, r := range []*Result{ab, ba} {
		assert.Equal(t, all.Count(), r.Count())
		assert.Equal(t, all.CountDifferent(), r.CountDifferent())
		assert.InDeltaSlice(t, all.Means(), r.Means(), 1e-9)
		assert.InDeltaSlice(t, all.Cov().RawSymmetric().Data, r.Cov().RawSymmetric().Data, 1e-9)
	}

	err := ab.Combine(NewResult(3))
	assert.ErrorIs(t, err, ErrDimension)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestResultLargeOffset(t *testing.T) {
	const offset = 1e8
	n := 1000
	points := make([][]float64, n)
	for i := range points {
		points[i] = []float64{offset + 0.5*math.Sin(float64(i)), -offset + 0.25*math.Cos(float64(i))}
	}

	// two-pass reference
	mean := make([]float64, 2)
	for _, p := range points {
		mean[0] += p[0] / float64(n)
		mean[1] += p[1] / float64(n)
	}
	var c00, c01, c11 float64
	for _, p := range points {
		d0, d1 := p[0]-mean[0], p[1]-mean[1]
		c00 += d0 * d0
		c01 += d0 * d1
		c11 += d1 * d1
	}
	want := [][]float64{{c00, c01}, {c01, c11}}

	all := NewResult(2)
	a := NewResult(2)
	b := NewResult(2)
	for i, p := range points {
		all.Fill(p, 0, 1)
		if i < n/3 {
			a.Fill(p, 0, 1)
		} else {
			b.Fill(p, 0, 1)
		}
	}
	require.NoError(t, a.Combine(b))

	for _, r := range []*Result{all, a} {
		assert.InDeltaSlice(t, mean, r.Means(), 1e-4)
		cov := r.Cov()
		sigmas := r.Sigmas()
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				assert.InDelta(t, want[i][j]/float64(n-1), cov.At(i, j), 1e-6)
			}
			assert.InDelta(t, math.Sqrt(want[i][i]/float64(n-1)), sigmas[i], 1e-6)
		}
		assert.True(t, sigmas[0] > 0.3)
	}
}

func TestResultReset(t *testing.T) {
	r := NewResult(1)
	r.Fill([]float64{5}, 0, 2)
	r.Reset()
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.CountDifferent())
	r.Fill([]float64{1}, 0, 1)
	assert.Equal(t, []float64{1}, r.Means())
}

func TestResultSkipNonFinite(t *testing.T) {
	r := NewResult(1)
	r.Fill([]float64{1}, inf, 1)
	assert.Equal(t, 1, r.Count())

	r.Reset()
	r.SkipNonFinite = true
	r.Fill([]float64{1}, inf, 1)
	r.Fill([]float64{2}, 1, 1)
	assert.Equal(t, 1, r.Count())
}

func TestFullResult(t *testing.T) {
	r := NewFullResult(2, 1)
	x := []float64{1, 2}
	r.Fill(x, 0, 2)
	x[0], x[1] = 3, 4
	r.Fill(x, 0, 1)

	require.Equal(t, 2, r.CountDifferent())
	assert.Equal(t, []float64{1, 2}, r.Point(0))
	assert.Equal(t, []float64{3, 4}, r.Point(1))
	assert.Equal(t, 2, r.Weight(0))
	assert.Equal(t, 1, r.Weight(1))
	assert.Equal(t, []float64{1, 1, 3}, r.Values(0))
	assert.InDeltaSlice(t, []float64{5.0 / 3, 8.0 / 3}, r.Means(), 1e-12)

	r.Reset()
	assert.Equal(t, 0, r.CountDifferent())
	assert.Empty(t, r.Values(1))
}
