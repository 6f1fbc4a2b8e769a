package estimate

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/mrrlab/thetamc/mcmc"
)

// Covariance estimates the covariance of the posterior as the inverse
// of the nll Hessian at the mode. The Hessian is computed by finite
// differences in coordinates scaled by widths. Parameters with zero
// width are fixed; their rows and columns are zero.
func Covariance(f mcmc.Function, mode, widths []float64) (*mat.SymDense, error) {
	npar := f.NPar()
	if len(mode) != npar || len(widths) != npar {
		return nil, errors.Wrapf(mcmc.ErrDimension, "function %d, mode %d, widths %d", npar, len(mode), len(widths))
	}
	var free []int
	for i, w := range widths {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.Wrapf(mcmc.ErrInvalidConfiguration, "width of parameter %d is %v", i, w)
		}
		if w > 0 {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return nil, errors.WithMessage(mcmc.ErrInvalidConfiguration, "all widths are zero")
	}

	var evalErr error
	x := make([]float64, npar)
	// nll as a function of y, x = mode + widths * y for free parameters
	scaled := func(y []float64) float64 {
		copy(x, mode)
		for a, i := range free {
			x[i] += widths[i] * y[a]
		}
		v, err := f.Eval(x)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return v
	}

	n := len(free)
	h := mat.NewSymDense(n, nil)
	fd.Hessian(h, scaled, make([]float64, n), nil)
	if evalErr != nil {
		return nil, errors.Wrap(evalErr, "evaluating Hessian")
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(h); !ok {
		return nil, errors.WithMessage(mcmc.ErrNumerical, "Hessian is not positive definite")
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, errors.Wrap(mcmc.ErrNumerical, err.Error())
	}

	cov := mat.NewSymDense(npar, nil)
	for a, i := range free {
		for b := a; b < n; b++ {
			j := free[b]
			cov.SetSym(i, j, inv.At(a, b)*widths[i]*widths[j])
		}
	}
	return cov, nil
}
