package estimate

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/mrrlab/thetamc/mcmc"
)

// ModeFinder minimizes the nll within bounds using L-BFGS-B with
// central difference gradients.
type ModeFinder struct {
	// DH is the finite difference step of the gradient.
	DH float64
	// FTolerance and GTolerance are passed to L-BFGS-B.
	FTolerance float64
	GTolerance float64
	// RepPeriod is the number of iterations between log reports.
	RepPeriod int

	f      mcmc.Function
	bounds [][2]float64
	err    error
	calls  int
	grad   []float64
}

// NewModeFinder creates a mode finder with default settings.
func NewModeFinder() *ModeFinder {
	return &ModeFinder{
		DH:         1e-6,
		FTolerance: 1e-9,
		GTolerance: 1e-9,
		RepPeriod:  10,
	}
}

// EvaluateFunction returns the nll, or +Inf outside the bounds.
func (m *ModeFinder) EvaluateFunction(x []float64) float64 {
	for i, v := range x {
		if v < m.bounds[i][0] || v > m.bounds[i][1] {
			return math.Inf(1)
		}
	}
	m.calls++
	nll, err := m.f.Eval(x)
	if err != nil {
		if m.err == nil {
			m.err = err
		}
		return math.Inf(1)
	}
	return nll
}

// EvaluateGradient returns the central difference gradient. The
// components of parameters with collapsed bounds are zero.
func (m *ModeFinder) EvaluateGradient(x []float64) []float64 {
	if m.grad == nil {
		m.grad = make([]float64, len(x))
	}
	fd.Gradient(m.grad, m.EvaluateFunction, x, &fd.Settings{
		Formula: fd.Central,
		Step:    m.DH,
	})
	for i, b := range m.bounds {
		if b[0] == b[1] {
			m.grad[i] = 0
		}
	}
	return m.grad
}

func (m *ModeFinder) logger(info *lbfgsb.OptimizationIterationInformation) {
	if m.RepPeriod > 0 && info.Iteration%m.RepPeriod == 0 {
		log.Debugf("%d: nll=%f", info.Iteration, info.F)
	}
}

// Mode returns the point of minimal nll within bounds, starting at
// start, and the nll there. Bounds may be infinite.
func (m *ModeFinder) Mode(f mcmc.Function, start []float64, bounds [][2]float64) ([]float64, float64, error) {
	npar := f.NPar()
	if len(start) != npar || len(bounds) != npar {
		return nil, 0, errors.Wrapf(mcmc.ErrDimension, "function %d, start point %d, bounds %d", npar, len(start), len(bounds))
	}
	m.f = f
	m.err = nil
	m.calls = 0
	m.grad = nil
	m.bounds = bounds

	// keep the finite difference steps inside the bounds
	inner := make([][2]float64, npar)
	for i, b := range bounds {
		if !(b[0] <= start[i] && start[i] <= b[1]) {
			return nil, 0, errors.Wrapf(mcmc.ErrInvalidConfiguration,
				"start %v of parameter %d outside of [%v, %v]", start[i], i, b[0], b[1])
		}
		inner[i] = b
		if b[1]-b[0] > 4e-5 {
			inner[i][0] = b[0] + 1e-5
			inner[i][1] = b[1] - 1e-5
		}
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(m.FTolerance)
	opt.SetGTolerance(m.GTolerance)
	opt.SetBounds(inner)
	opt.SetLogger(m.logger)

	res, exitStatus := opt.Minimize(m, start)
	if m.err != nil {
		return nil, 0, errors.Wrap(m.err, "minimizing nll")
	}
	log.Debugf("Exit status: %v, function calls: %d", exitStatus, m.calls)
	if exitStatus.Code != lbfgsb.SUCCESS {
		log.Warningf("L-BFGS-B did not finish successfully: %v", exitStatus)
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, 0, errors.Wrapf(mcmc.ErrNumerical, "nll at minimum is %v", res.F)
	}
	return res.X, res.F, nil
}
