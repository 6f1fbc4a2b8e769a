package estimate

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mrrlab/thetamc/mcmc"
)

// maxSecantSteps limits the number of interval reductions.
const maxSecantSteps = 200

// Secant finds a root of f in [xLow, xHigh]. fLow and fHigh are the
// function values at the interval ends and must have different signs.
// Every step replaces one end of the interval by the intersection of
// the secant with zero, or by the midpoint if the secant would not
// halve the interval. The iteration stops once the interval is shorter
// than xAccuracy or |f| < fAccuracy.
func Secant(f func(float64) (float64, error), xLow, xHigh, fLow, fHigh, xAccuracy, fAccuracy float64) (float64, error) {
	if xLow > xHigh {
		return math.NaN(), errors.Wrapf(mcmc.ErrInvalidConfiguration, "interval [%v, %v]", xLow, xHigh)
	}
	if fLow*fHigh >= 0 {
		return math.NaN(), errors.Wrapf(mcmc.ErrInvalidConfiguration,
			"function values %v and %v have the same sign", fLow, fHigh)
	}
	for i := 0; i < maxSecantSteps; i++ {
		length := xHigh - xLow
		x := xLow - length/(fHigh-fLow)*fLow
		if length < xAccuracy {
			return x, nil
		}
		fx, err := f(x)
		if err != nil {
			return math.NaN(), err
		}
		if math.Abs(fx) < fAccuracy {
			return x, nil
		}
		newLength := xHigh - x
		if fLow*fx < 0 {
			newLength = x - xLow
		}
		if newLength > 0.5*length {
			x = 0.5 * (xLow + xHigh)
			if fx, err = f(x); err != nil {
				return math.NaN(), err
			}
		}

		switch p := fLow * fx; {
		case p < 0:
			xHigh, fHigh = x, fx
		case p > 0:
			xLow, fLow = x, fx
		default:
			// exact zero or underflow of the product
			switch {
			case math.Abs(fLow) < math.Abs(fHigh) && math.Abs(fLow) < math.Abs(fx):
				return xLow, nil
			case math.Abs(fHigh) < math.Abs(fx):
				return xHigh, nil
			}
			return x, nil
		}
	}
	return math.NaN(), errors.Wrapf(mcmc.ErrNumerical, "no root found in %d steps", maxSecantSteps)
}
