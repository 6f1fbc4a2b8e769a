/*
Package diag implements the Raftery-Lewis run length diagnostic.

For a quantile q of one parameter, the diagnostic estimates the burn-in
M and the number of iterations N needed to estimate the quantile within
+-r with probability s. The chain of indicators z_t = [x_t <= x_q] is
thinned until it is well described by a first order Markov chain, whose
transition rates then determine M and N.

Raftery, A.E. and Lewis, S.M. (1996). Implementing MCMC. In: Gilks,
W.R., Richardson, S. and Spiegelhalter, D.J., Markov Chain Monte Carlo
in Practice, 115-130.
*/
package diag

import (
	"context"
	"math"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/mrrlab/thetamc/dist"
	"github.com/mrrlab/thetamc/mcmc"
)

var log = logging.MustGetLogger("diag")

// Report is the outcome of the diagnostic.
type Report struct {
	// Quantile is the quantile estimated from the last chain, or NaN
	// if the diagnostic did not converge.
	Quantile float64
	// M and N are the recommended burn-in and number of iterations.
	M, N float64
	// Nmin is the length of the pilot chains.
	Nmin int
	// K is the thinning of the indicator chain in the last round.
	K int
	// Rounds is the number of chains run after the pilot chains.
	Rounds    int
	Converged bool
}

// Options returns sampler options with the recommended run length.
func (r *Report) Options(start []float64) mcmc.Options {
	return mcmc.Options{
		Start:      start,
		Iterations: int(math.Ceil(r.N)),
		BurnIn:     int(math.Ceil(r.M)),
	}
}

// RafteryLewis runs chains of increasing length until the run length
// estimate stops growing.
type RafteryLewis struct {
	Sampler *mcmc.Sampler
	// Epsilon is the precision of the stationary distribution of the
	// indicator chain. Zero means r/10.
	Epsilon float64
	// MaxRounds limits the number of chains after the pilot chains.
	MaxRounds int
	// MaxIterations limits the length of a single chain.
	MaxIterations int
}

// NewRafteryLewis creates a diagnostic with default settings.
func NewRafteryLewis(s *mcmc.Sampler) *RafteryLewis {
	return &RafteryLewis{
		Sampler:       s,
		MaxRounds:     10,
		MaxIterations: 10000000,
	}
}

// Quantile estimates the q quantile of parameter ipar with accuracy
// +-r and probability s. Every chain starts at start; the jump
// covariance of the first chain is cov and of every further chain the
// covariance of the chain before it.
//
// If the run length estimate keeps growing for MaxRounds chains, a
// report with NaN quantile and Converged set to false is returned
// without an error.
func (rl *RafteryLewis) Quantile(ctx context.Context, f mcmc.Function, ipar int, q, r, s float64,
	start []float64, cov mat.Symmetric) (*Report, error) {
	npar := len(start)
	if npar != cov.SymmetricDim() || npar != f.NPar() {
		return nil, errors.Wrapf(mcmc.ErrDimension, "start point %d, covariance %d, function %d",
			npar, cov.SymmetricDim(), f.NPar())
	}
	if ipar < 0 || ipar >= npar {
		return nil, errors.Wrapf(mcmc.ErrDimension, "parameter %d with %d parameters", ipar, npar)
	}
	if !(q > 0 && q < 1) || !(r > 0) || !(s > 0 && s < 1) {
		return nil, errors.Wrapf(mcmc.ErrInvalidConfiguration, "q=%v, r=%v, s=%v", q, r, s)
	}
	epsilon := rl.Epsilon
	if epsilon <= 0 {
		epsilon = r / 10
	}
	a := dist.QuantileNormal((s+1)/2) / r
	nmin := dist.PilotLength(q, r, s)
	if nmin < 1 {
		return nil, errors.Wrapf(mcmc.ErrInvalidConfiguration, "pilot chain length is %d", nmin)
	}

	sqrtCov, nReduced, err := mcmc.ReducedCholesky(cov, 0)
	if err != nil {
		return nil, err
	}
	fixed := mcmc.FixedParameters(sqrtCov)
	if fixed[ipar] {
		return nil, errors.Wrapf(mcmc.ErrInvalidConfiguration, "parameter %d is fixed", ipar)
	}

	fr := mcmc.NewFullResult(npar, nmin)
	run := func(iterations, burnIn int) error {
		if iterations > rl.MaxIterations {
			return errors.Wrapf(mcmc.ErrNumerical, "required chain length %d exceeds %d", iterations, rl.MaxIterations)
		}
		fr.Reset()
		opts := mcmc.Options{Start: start, Iterations: iterations, BurnIn: burnIn}
		return rl.Sampler.Run(ctx, f, fr, opts, sqrtCov)
	}
	// updateCov uses the covariance of the last chain for the next one.
	updateCov := func() error {
		c := fr.Cov()
		mcmc.ClearFixed(c, fixed)
		sqrtCov, _, err = mcmc.ReducedCholesky(c, nReduced)
		return err
	}

	log.Debugf("Raftery-Lewis pilot chains of length %d", nmin)
	if err := run(nmin, nmin); err != nil {
		return nil, errors.Wrap(err, "first pilot chain")
	}
	if err := updateCov(); err != nil {
		return nil, errors.Wrap(err, "first pilot chain")
	}
	if err := run(nmin, nmin); err != nil {
		return nil, errors.Wrap(err, "second pilot chain")
	}

	report := &Report{Nmin: nmin}
	m, n := float64(nmin), float64(nmin)
	for {
		if err := updateCov(); err != nil {
			return nil, errors.Wrapf(err, "round %d", report.Rounds)
		}
		lastN := n
		qpar, err := FindQuantile(fr, ipar, q)
		if err != nil {
			return nil, err
		}
		mr, nr, k := runLength(Indicator(fr, ipar, qpar), a, epsilon)
		if math.IsNaN(mr) || math.IsNaN(nr) {
			log.Debugf("Raftery-Lewis round %d: no thinning found, doubling run length", report.Rounds)
			m *= 2
			n *= 2
		} else {
			m, n = mr, nr
			report.K = k
			log.Debugf("Raftery-Lewis round %d: k=%d, M=%.0f, N=%.0f", report.Rounds, k, m, n)
			if lastN > n {
				break
			}
		}
		if err := run(int(2*n), int(2*m)); err != nil {
			return nil, errors.Wrapf(err, "round %d", report.Rounds)
		}
		report.Rounds++
		if report.Rounds >= rl.MaxRounds || !(lastN < n) {
			break
		}
	}
	report.M, report.N = m, n
	if report.Rounds >= rl.MaxRounds {
		log.Warningf("Raftery-Lewis diagnostic did not converge after %d rounds", report.Rounds)
		report.Quantile = math.NaN()
		return report, nil
	}

	quantile, err := FindQuantile(fr, ipar, q)
	if err != nil {
		return nil, err
	}
	report.Quantile = quantile
	report.Converged = true
	return report, nil
}
