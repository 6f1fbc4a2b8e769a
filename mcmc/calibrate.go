package mcmc

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// shrinkFactor scales the proposal covariance after a pass whose
// points do not span the free parameters.
const shrinkFactor = 0.1

// Calibration is the outcome of the proposal tuning. Start and SqrtCov
// can be used directly for a full length run.
type Calibration struct {
	Start   []float64
	Cov     *mat.SymDense
	SqrtCov *mat.TriDense
	// NReduced is the number of non-fixed parameters.
	NReduced int
	// JumpRates holds the jump rate of every pass.
	JumpRates []float64
}

// Passes returns the number of passes performed.
func (c *Calibration) Passes() int {
	return len(c.JumpRates)
}

// Calibrator tunes the proposal covariance by running short chains and
// re-estimating the covariance from every chain until the jump rate is
// in (MinRate, MaxRate) and stable.
type Calibrator struct {
	Sampler *Sampler
	// MaxPasses limits the number of chains.
	MaxPasses int
	// Iterations and BurnIn are the lengths of every chain.
	Iterations int
	BurnIn     int
	MinRate    float64
	MaxRate    float64
	// Tolerance is the maximal relative change of the jump rate
	// between consecutive passes.
	Tolerance float64
	// IgnoreInfNLL is passed to the sampler.
	IgnoreInfNLL bool
	// OnPass is called after every pass with the current state.
	OnPass func(c *Calibration)
}

// NewCalibrator creates a calibrator with default settings.
func NewCalibrator(s *Sampler) *Calibrator {
	return &Calibrator{
		Sampler:    s,
		MaxPasses:  20,
		Iterations: 8000,
		BurnIn:     800,
		MinRate:    0.1,
		MaxRate:    0.5,
		Tolerance:  0.05,
	}
}

// converged checks the stopping rule given the jump rate history.
func (c *Calibrator) converged(rates []float64) bool {
	if len(rates) < 2 {
		return false
	}
	last := rates[len(rates)-1]
	prev := rates[len(rates)-2]
	if last <= c.MinRate || last >= c.MaxRate {
		return false
	}
	return math.Abs(prev-last)/math.Max(prev, last) < c.Tolerance
}

// Calibrate starts from a diagonal covariance with variances
// widths[i]^2; parameters with zero width are fixed and keep exactly
// their start value. A pass which visits too few distinct points to
// estimate a positive definite covariance keeps the previous proposal
// scaled down by shrinkFactor. If the jump rate does not converge within
// MaxPasses, the last calibration is returned together with a
// *NotConvergedError.
func (c *Calibrator) Calibrate(ctx context.Context, f Function, start, widths []float64) (*Calibration, error) {
	npar := f.NPar()
	if len(start) != npar || len(widths) != npar {
		return nil, errors.Wrapf(ErrDimension, "function %d, start point %d, widths %d", npar, len(start), len(widths))
	}
	if c.MaxPasses <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "number of passes should be > 0, got %d", c.MaxPasses)
	}

	cov := mat.NewSymDense(npar, nil)
	fixed := make([]bool, npar)
	nReduced := 0
	for i, w := range widths {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, errors.Wrapf(ErrInvalidConfiguration, "width of parameter %d is %v", i, w)
		}
		cov.SetSym(i, i, w*w)
		if w == 0 {
			fixed[i] = true
		} else {
			nReduced++
		}
	}
	if nReduced == 0 {
		return nil, errors.WithMessage(ErrInvalidConfiguration, "all widths are zero")
	}
	sqrtCov, _, err := ReducedCholesky(cov, nReduced)
	if err != nil {
		return nil, errors.Wrap(err, "initial covariance")
	}
	return c.calibrate(ctx, f, start, cov, sqrtCov, fixed)
}

// CalibrateCov is like Calibrate but starts from a full covariance
// matrix. Parameters with zero variance are fixed.
func (c *Calibrator) CalibrateCov(ctx context.Context, f Function, start []float64, cov mat.Symmetric) (*Calibration, error) {
	npar := f.NPar()
	if len(start) != npar || cov.SymmetricDim() != npar {
		return nil, errors.Wrapf(ErrDimension, "function %d, start point %d, covariance %d", npar, len(start), cov.SymmetricDim())
	}
	if c.MaxPasses <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "number of passes should be > 0, got %d", c.MaxPasses)
	}
	sqrtCov, _, err := ReducedCholesky(cov, 0)
	if err != nil {
		return nil, errors.Wrap(err, "initial covariance")
	}
	fixed := FixedParameters(sqrtCov)
	initial := mat.NewSymDense(npar, nil)
	initial.CopySym(cov)
	ClearFixed(initial, fixed)
	return c.calibrate(ctx, f, start, initial, sqrtCov, fixed)
}

// calibrate runs the passes starting from cov and its reduced factor.
func (c *Calibrator) calibrate(ctx context.Context, f Function, start []float64, cov *mat.SymDense, sqrtCov *mat.TriDense, fixed []bool) (*Calibration, error) {
	npar := f.NPar()
	nReduced := 0
	for _, fx := range fixed {
		if !fx {
			nReduced++
		}
	}
	cal := &Calibration{
		Start:    append([]float64(nil), start...),
		Cov:      cov,
		SqrtCov:  sqrtCov,
		NReduced: nReduced,
	}
	res := NewResult(npar)
	for pass := 1; pass <= c.MaxPasses; pass++ {
		res.Reset()
		opts := Options{
			Start:        cal.Start,
			Iterations:   c.Iterations,
			BurnIn:       c.BurnIn,
			IgnoreInfNLL: c.IgnoreInfNLL,
		}
		if err := c.Sampler.Run(ctx, f, res, opts, cal.SqrtCov); err != nil {
			return nil, errors.Wrapf(err, "calibration pass %d", pass)
		}

		newStart := res.Means()
		for i, fx := range fixed {
			if fx {
				newStart[i] = start[i]
			}
		}
		newCov, newSqrtCov, err := estimateCov(res, fixed, nReduced)
		if err != nil {
			log.Infof("Calibration pass %d: %v, shrinking the proposal", pass, err)
			newCov, newSqrtCov = shrink(cal.Cov, cal.SqrtCov)
		}

		cal.Start = newStart
		cal.Cov = newCov
		cal.SqrtCov = newSqrtCov
		cal.JumpRates = append(cal.JumpRates, res.JumpRate())
		log.Infof("Calibration pass %d: jump rate %.4f", pass, res.JumpRate())
		if c.OnPass != nil {
			c.OnPass(cal)
		}
		if c.converged(cal.JumpRates) {
			log.Noticef("Calibration converged after %d passes", pass)
			return cal, nil
		}
	}
	log.Warningf("Calibration did not converge after %d passes", c.MaxPasses)
	return cal, &NotConvergedError{JumpRates: append([]float64(nil), cal.JumpRates...)}
}

// estimateCov computes the proposal covariance and its reduced Cholesky
// factor from the points of one pass.
func estimateCov(res *Result, fixed []bool, nReduced int) (*mat.SymDense, *mat.TriDense, error) {
	if res.CountDifferent() <= nReduced {
		return nil, nil, errors.Wrapf(ErrNumerical, "%d distinct points for %d free parameters", res.CountDifferent(), nReduced)
	}
	cov := res.Cov()
	ClearFixed(cov, fixed)
	sqrtCov, _, err := ReducedCholesky(cov, nReduced)
	if err != nil {
		return nil, nil, err
	}
	return cov, sqrtCov, nil
}

// shrink returns copies of cov and its factor scaled by shrinkFactor.
// Rows and columns of fixed parameters stay zero.
func shrink(cov *mat.SymDense, sqrtCov *mat.TriDense) (*mat.SymDense, *mat.TriDense) {
	var newCov mat.SymDense
	newCov.ScaleSym(shrinkFactor, cov)
	var newSqrtCov mat.TriDense
	newSqrtCov.ScaleTri(math.Sqrt(shrinkFactor), sqrtCov)
	return &newCov, &newSqrtCov
}
