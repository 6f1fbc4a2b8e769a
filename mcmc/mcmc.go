/*
Package mcmc implements a Metropolis-Hastings sampler with a
Cholesky-transformed Gaussian jump kernel together with the machinery
needed to use it in practice: streaming results, the reduced Cholesky
decomposition of a proposal covariance, adaptive covariance calibration
and parallel independent chains.

The sampler talks to the outside world through two interfaces only. A
Function maps a parameter vector to its negative logarithm of the
posterior. A Sink receives the chain, one distinct point at a time,
together with its repeat weight.

	s := mcmc.NewSampler(seed)
	cal, err := mcmc.NewCalibrator(s).Calibrate(ctx, f, start, widths)
	res := mcmc.NewResult(f.NPar())
	err = s.Run(ctx, f, res, mcmc.Options{Start: cal.Start, Iterations: 50000, BurnIn: 5000}, cal.SqrtCov)
	means := res.Means()
*/
package mcmc

import (
	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("mcmc")

// Function is a negative log posterior. Eval must return the same
// value for the same input during a chain.
type Function interface {
	// Eval returns the negative log posterior at x. Smaller values
	// correspond to higher probability density.
	Eval(x []float64) (float64, error)
	// NPar returns the number of parameters.
	NPar() int
}

// Sink receives the points of a Markov chain.
type Sink interface {
	// NPar returns the number of parameters.
	NPar() int
	// Fill is called once per distinct point of the chain. weight is
	// the number of rejected proposals to jump away from the point
	// plus one. The slice x is reused by the sampler and must be
	// copied if retained.
	Fill(x []float64, nll float64, weight int)
	// End is called exactly once after the last Fill.
	End()
}

// Sinks passes every point to all of its elements, which must have the
// same number of parameters.
type Sinks []Sink

// NPar returns the number of parameters of the first sink.
func (s Sinks) NPar() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].NPar()
}

func (s Sinks) Fill(x []float64, nll float64, weight int) {
	for _, sink := range s {
		sink.Fill(x, nll, weight)
	}
}

func (s Sinks) End() {
	for _, sink := range s {
		sink.End()
	}
}
