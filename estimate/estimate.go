// Package estimate provides start values for the samplers: the mode
// of the posterior, parameter widths and a covariance estimate from
// the curvature at the mode.
package estimate

import (
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/mrrlab/thetamc/mcmc"
)

var log = logging.MustGetLogger("estimate")

// Start is a starting configuration for calibration.
type Start struct {
	Mode   []float64
	NLL    float64
	Widths []float64
	// Cov is nil if the Hessian could not be inverted.
	Cov *mat.SymDense
}

// Estimate finds the mode, the widths and, if possible, the
// covariance.
func Estimate(f mcmc.Function, start []float64, bounds [][2]float64) (*Start, error) {
	mode, nll, err := NewModeFinder().Mode(f, start, bounds)
	if err != nil {
		return nil, err
	}
	widths, err := Widths(f, mode, bounds)
	if err != nil {
		return nil, err
	}
	s := &Start{Mode: mode, NLL: nll, Widths: widths}
	cov, err := Covariance(f, mode, widths)
	switch {
	case errors.Is(err, mcmc.ErrNumerical):
		log.Warningf("Could not estimate covariance: %v", err)
	case err != nil:
		return nil, err
	default:
		s.Cov = cov
	}
	return s, nil
}
