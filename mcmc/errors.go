package mcmc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfiguration is returned for arguments which can
	// never lead to a valid chain.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDimension is returned if the dimensions of start point,
	// covariance, function and result do not match. It is an
	// ErrInvalidConfiguration.
	ErrDimension = errors.WithMessage(ErrInvalidConfiguration, "dimension mismatch")
	// ErrNumerical is returned on numerical failures, e.g. a
	// covariance matrix which is not positive definite.
	ErrNumerical = errors.New("numerical failure")
	// ErrDidNotConverge is matched by NotConvergedError.
	ErrDidNotConverge = errors.New("did not converge")
)

// NotConvergedError is returned by Calibrate if the jump rate did
// not settle within the pass budget.
type NotConvergedError struct {
	// JumpRates are the jump rates observed in every pass.
	JumpRates []float64
}

func (e *NotConvergedError) Error() string {
	rates := make([]string, len(e.JumpRates))
	for i, r := range e.JumpRates {
		rates[i] = fmt.Sprintf("%.4f", r)
	}
	return fmt.Sprintf("covariance estimate did not converge after %d passes; jump rates were: %s",
		len(e.JumpRates), strings.Join(rates, "; "))
}

// Is makes errors.Is(err, ErrDidNotConverge) true.
func (e *NotConvergedError) Is(target error) bool {
	return target == ErrDidNotConverge
}
