package mcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReducedCholeskyRoundTrip(t *testing.T) {
	cov := mat.NewSymDense(4, []float64{
		4, 0, 1, 0.5,
		0, 0, 0, 0,
		1, 0, 2, 0.3,
		0.5, 0, 0.3, 1,
	})
	l, nReduced, err := ReducedCholesky(cov, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, nReduced)

	for j := 0; j < 4; j++ {
		assert.Zero(t, l.At(1, j))
		assert.Zero(t, l.At(j, 1))
	}

	var llt mat.Dense
	llt.Mul(l, l.T())
	assert.True(t, mat.EqualApprox(&llt, cov, 1e-12))
	assert.Equal(t, []bool{false, true, false, false}, FixedParameters(l))
}

func TestReducedCholeskyRelativeTolerance(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		1e10, 0,
		0, 1e-8,
	})
	l, nReduced, err := ReducedCholesky(cov, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, nReduced)
	assert.Zero(t, l.At(1, 1))
	assert.InDelta(t, 1e5, l.At(0, 0), 1e-6)
}

func TestReducedCholeskyErrors(t *testing.T) {
	_, _, err := ReducedCholesky(mat.NewSymDense(2, nil), 0)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	_, _, err = ReducedCholesky(cov, 1)
	assert.ErrorIs(t, err, ErrDimension)

	notPD := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, _, err = ReducedCholesky(notPD, 2)
	assert.ErrorIs(t, err, ErrNumerical)
	assert.NotErrorIs(t, err, ErrInvalidConfiguration)
}

func TestClearFixed(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 1e-20, 1e-20, 1e-30})
	ClearFixed(cov, []bool{false, true})
	assert.Equal(t, 1.0, cov.At(0, 0))
	assert.Zero(t, cov.At(0, 1))
	assert.Zero(t, cov.At(1, 1))
}
