package estimate

import (
	"math"
	"testing"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrrlab/thetamc/mcmc"
)

func init() {
	logging.SetLevel(logging.WARNING, "estimate")
}

// quad is 0.5 (x-mu)^T A (x-mu), restricted to x >= 0 if positive is
// set.
type quad struct {
	mu       []float64
	a        [][]float64
	positive bool
}

func (q quad) Eval(x []float64) (float64, error) {
	s := 0.0
	for i := range x {
		if q.positive && x[i] < 0 {
			return math.Inf(1), nil
		}
		for j := range x {
			s += 0.5 * (x[i] - q.mu[i]) * q.a[i][j] * (x[j] - q.mu[j])
		}
	}
	return s, nil
}

func (q quad) NPar() int {
	return len(q.mu)
}

var unbounded = [2]float64{math.Inf(-1), math.Inf(1)}

func TestSecant(t *testing.T) {
	f := func(x float64) (float64, error) { return x*x - 2, nil }
	root, err := Secant(f, 0, 2, -2, 2, 1e-12, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, root, 1e-9)

	root, err = Secant(f, -2, 0, 2, -2, 0, 1e-10)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sqrt2, root, 1e-6)

	_, err = Secant(f, 0, 1, -2, -1, 0, 0)
	assert.ErrorIs(t, err, mcmc.ErrInvalidConfiguration)

	failed := errors.New("failed")
	_, err = Secant(func(float64) (float64, error) { return 0, failed }, 0, 2, -2, 2, 1e-12, 0)
	assert.ErrorIs(t, err, failed)
}

func TestWidths(t *testing.T) {
	// sigmas 2 and 0.5, third parameter is fixed
	f := quad{
		mu: []float64{1, -3, 0},
		a:  [][]float64{{0.25, 0, 0}, {0, 4, 0}, {0, 0, 0}},
	}
	support := [][2]float64{unbounded, {-10, 10}, {0, 0}}
	widths, err := Widths(f, []float64{1, -3, 0}, support)
	require.NoError(t, err)
	assert.InDelta(t, 2, widths[0], 0.11)
	assert.InDelta(t, 0.5, widths[1], 0.03)
	assert.Zero(t, widths[2])
}

func TestWidthsBoundary(t *testing.T) {
	// the nll never rises by 0.5 within the support
	f := quad{mu: []float64{0}, a: [][]float64{{0.01}}}
	widths, err := Widths(f, []float64{0}, [][2]float64{{-1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, widths[0])

	// mode on the boundary of a half-infinite support
	f = quad{mu: []float64{0}, a: [][]float64{{1}}, positive: true}
	widths, err = Widths(f, []float64{0}, [][2]float64{{0, math.Inf(1)}})
	require.NoError(t, err)
	assert.InDelta(t, 1, widths[0], 0.06)

	_, err = Widths(f, []float64{-1}, [][2]float64{{0, math.Inf(1)}})
	assert.ErrorIs(t, err, mcmc.ErrInvalidConfiguration)
	_, err = Widths(f, []float64{0, 0}, [][2]float64{unbounded})
	assert.ErrorIs(t, err, mcmc.ErrDimension)
}

func TestCovariance(t *testing.T) {
	// covariance [[4, 1.2], [1.2, 1]]
	det := 4.0 - 1.44
	f := quad{
		mu: []float64{0, 0, 5},
		a:  [][]float64{{1 / det, -1.2 / det, 0}, {-1.2 / det, 4 / det, 0}, {0, 0, 0}},
	}
	cov, err := Covariance(f, []float64{0, 0, 5}, []float64{2, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 4, cov.At(0, 0), 1e-3)
	assert.InDelta(t, 1.2, cov.At(0, 1), 1e-3)
	assert.InDelta(t, 1, cov.At(1, 1), 1e-3)
	for j := 0; j < 3; j++ {
		assert.Zero(t, cov.At(2, j))
	}

	_, err = Covariance(f, []float64{0, 0, 5}, []float64{0, 0, 0})
	assert.ErrorIs(t, err, mcmc.ErrInvalidConfiguration)

	concave := quad{mu: []float64{0}, a: [][]float64{{-1}}}
	_, err = Covariance(concave, []float64{0}, []float64{1})
	assert.ErrorIs(t, err, mcmc.ErrNumerical)
}

func TestEstimate(t *testing.T) {
	f := quad{
		mu: []float64{2, 0.5},
		a:  [][]float64{{0.25, 0}, {0, 1}},
	}
	s, err := Estimate(f, []float64{0, 0}, [][2]float64{{-20, 20}, unbounded})
	require.NoError(t, err)
	assert.InDelta(t, 2, s.Mode[0], 1e-3)
	assert.InDelta(t, 0.5, s.Mode[1], 1e-3)
	assert.InDelta(t, 0, s.NLL, 1e-6)
	assert.InDelta(t, 2, s.Widths[0], 0.11)
	assert.InDelta(t, 1, s.Widths[1], 0.06)
	require.NotNil(t, s.Cov)
	assert.InDelta(t, 4, s.Cov.At(0, 0), 0.01)
	assert.InDelta(t, 0, s.Cov.At(0, 1), 0.01)
}

func TestModeGradientFixed(t *testing.T) {
	f := quad{
		mu: []float64{2, 0.5, 1},
		a:  [][]float64{{0.25, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
	m := NewModeFinder()
	m.f = f
	m.bounds = [][2]float64{{-20, 20}, unbounded, {3, 3}}
	g := m.EvaluateGradient([]float64{0, 0, 3})
	assert.InDelta(t, -0.5, g[0], 1e-6)
	assert.InDelta(t, -0.5, g[1], 1e-6)
	assert.Equal(t, 0.0, g[2])
}

func TestEstimateFixed(t *testing.T) {
	f := quad{
		mu: []float64{2, 0.5, 1},
		a:  [][]float64{{0.25, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
	s, err := Estimate(f, []float64{0, 0, 3}, [][2]float64{{-20, 20}, unbounded, {3, 3}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Mode[2])
	assert.InDelta(t, 2, s.Mode[0], 1e-3)
	assert.InDelta(t, 0.5, s.Mode[1], 1e-3)
	assert.InDelta(t, 2, s.NLL, 1e-6)
	assert.Zero(t, s.Widths[2])
	assert.InDelta(t, 2, s.Widths[0], 0.11)
	require.NotNil(t, s.Cov)
	assert.InDelta(t, 4, s.Cov.At(0, 0), 0.01)
	for j := 0; j < 3; j++ {
		assert.Zero(t, s.Cov.At(2, j))
	}
}
