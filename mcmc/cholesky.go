package mcmc

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// fixedTolerance is the relative size of a diagonal covariance entry
// below which the parameter is considered fixed.
const fixedTolerance = 1e-15

// ReducedCholesky computes the lower triangular Cholesky factor of
// cov, allowing for fixed parameters. A parameter is fixed if its
// variance is zero relative to the largest variance. Only the
// sub-matrix of non-fixed parameters is decomposed; rows and columns
// of fixed parameters are exactly zero in the result.
//
// If expectReduced is > 0 it must match the number of non-fixed
// parameters. The number of non-fixed parameters is returned together
// with the factor.
func ReducedCholesky(cov mat.Symmetric, expectReduced int) (*mat.TriDense, int, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, 0, errors.WithMessage(ErrInvalidConfiguration, "empty covariance matrix")
	}

	scale := 0.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(cov.At(i, i)))
	}

	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if scale > 0 && math.Abs(cov.At(i, i))/scale >= fixedTolerance {
			free = append(free, i)
		}
	}
	nReduced := len(free)
	if nReduced == 0 {
		return nil, 0, errors.WithMessage(ErrInvalidConfiguration,
			"number of reduced dimensions is zero (all parameters fixed?)")
	}
	if expectReduced > 0 && expectReduced != nReduced {
		return nil, nReduced, errors.Wrapf(ErrDimension,
			"expected %d reduced dimensions, got %d", expectReduced, nReduced)
	}

	sub := mat.NewSymDense(nReduced, nil)
	for a, i := range free {
		for b := a; b < nReduced; b++ {
			sub.SetSym(a, b, cov.At(i, free[b]))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sub); !ok {
		return nil, nReduced, errors.WithMessage(ErrNumerical, "covariance matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)

	res := mat.NewTriDense(n, mat.Lower, nil)
	for a, i := range free {
		for b := 0; b <= a; b++ {
			res.SetTri(i, free[b], l.At(a, b))
		}
	}
	return res, nReduced, nil
}

// FixedParameters reports which parameters have a zero diagonal entry
// in a square root covariance.
func FixedParameters(sqrtCov mat.Matrix) []bool {
	n, _ := sqrtCov.Dims()
	fixed := make([]bool, n)
	for i := range fixed {
		fixed[i] = sqrtCov.At(i, i) == 0
	}
	return fixed
}

// ClearFixed sets rows and columns of fixed parameters in cov to zero.
// Estimated covariances of parameters which never move are not exactly
// zero because of rounding.
func ClearFixed(cov *mat.SymDense, fixed []bool) {
	n := cov.SymmetricDim()
	for i, f := range fixed {
		if !f {
			continue
		}
		for j := 0; j < n; j++ {
			cov.SetSym(i, j, 0)
		}
	}
}
