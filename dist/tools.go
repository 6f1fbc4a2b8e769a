// Package dist implements helpers for the normal distribution used by
// the samplers and the run length diagnostic.
package dist

import (
	"math"

	"github.com/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuantileNormal returns z so that Prob{x<z}=prob where x is standard
// normal distributed.
func QuantileNormal(prob float64) float64 {
	return mathext.NormalQuantile(prob)
}

// NormalCDF returns Prob{X<x} for a standard normal X.
func NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// PilotLength returns the minimal number of independent samples
// needed to estimate the quantile q within +-r with probability s.
func PilotLength(q, r, s float64) int {
	a := QuantileNormal((s+1)/2) / r
	return int(math.Floor(a * a * q * (1 - q)))
}
