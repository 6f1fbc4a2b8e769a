package estimate

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mrrlab/thetamc/mcmc"
)

// widthAccuracy is the accuracy of the nll difference 0.5 which
// defines the width.
const widthAccuracy = 0.05

// maxScanSteps limits the search for the width on an unbounded side.
const maxScanSteps = 1000

// Widths estimates the width of every parameter as the distance from
// the mode at which the nll has increased by 0.5, scanning one
// parameter at a time. support holds the allowed range of every
// parameter; parameters with an empty range get width zero. If the nll
// does not increase by 0.5 within a finite range, the width of the
// range is returned.
func Widths(f mcmc.Function, mode []float64, support [][2]float64) ([]float64, error) {
	npar := f.NPar()
	if len(mode) != npar || len(support) != npar {
		return nil, errors.Wrapf(mcmc.ErrDimension, "function %d, mode %d, support %d", npar, len(mode), len(support))
	}
	for i, s := range support {
		if !(s[0] <= mode[i] && mode[i] <= s[1]) {
			return nil, errors.Wrapf(mcmc.ErrInvalidConfiguration,
				"mode %v of parameter %d outside of [%v, %v]", mode[i], i, s[0], s[1])
		}
	}
	nllMode, err := f.Eval(mode)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating mode")
	}
	if math.IsNaN(nllMode) || math.IsInf(nllMode, 0) {
		return nil, errors.Wrapf(mcmc.ErrNumerical, "nll at mode is %v", nllMode)
	}

	widths := make([]float64, npar)
	x := make([]float64, npar)
	for i := range widths {
		lo, hi := support[i][0], support[i][1]
		if lo == hi {
			continue
		}
		// g is zero at the width
		g := func(v float64) (float64, error) {
			copy(x, mode)
			x[i] = v
			nll, err := f.Eval(x)
			return nll - nllMode - 0.5, err
		}
		w, err := width(g, mode[i], lo, hi)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %d", i)
		}
		log.Debugf("Width of parameter %d: %g", i, w)
		widths[i] = w
	}
	return widths, nil
}

func width(g func(float64) (float64, error), m, lo, hi float64) (float64, error) {
	finite := func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	var hiTooLow, loTooLow bool
	if finite(hi) {
		fh, err := g(hi)
		if err != nil {
			return 0, err
		}
		switch {
		case fh == 0:
			return math.Abs(hi - m), nil
		case !finite(fh) || fh < 0:
			hiTooLow = true
		default:
			root, err := Secant(g, m, hi, -0.5, fh, 0, widthAccuracy)
			return math.Abs(m - root), err
		}
	}
	if finite(lo) {
		fl, err := g(lo)
		if err != nil {
			return 0, err
		}
		switch {
		case fl == 0:
			return math.Abs(m - lo), nil
		case !finite(fl) || fl < 0:
			loTooLow = true
		default:
			root, err := Secant(g, lo, m, fl, -0.5, 0, widthAccuracy)
			return math.Abs(m - root), err
		}
	}
	if hiTooLow && loTooLow {
		return hi - lo, nil
	}

	for _, sign := range []float64{-1, 1} {
		if (sign < 0 && !math.IsInf(lo, -1)) || (sign > 0 && !math.IsInf(hi, 1)) {
			continue
		}
		step := math.Abs(m)
		if step == 0 {
			step = 1
		}
		for i := 0; i < maxScanSteps; i++ {
			v := m + sign*step
			fv, err := g(v)
			if err != nil {
				return 0, err
			}
			if math.IsInf(fv, 0) || math.IsNaN(fv) {
				step /= 1.5
				continue
			}
			if fv > 0 {
				var root float64
				if sign < 0 {
					root, err = Secant(g, v, m, fv, -0.5, 0, widthAccuracy)
				} else {
					root, err = Secant(g, m, v, -0.5, fv, 0, widthAccuracy)
				}
				return math.Abs(m - root), err
			}
			step *= 2
		}
	}
	return 0, errors.WithMessage(mcmc.ErrNumerical, "could not find width")
}
