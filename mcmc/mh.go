package mcmc

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// OptimalScale returns the asymptotically optimal scale of a Gaussian
// random walk proposal in n dimensions.
func OptimalScale(n int) float64 {
	return 2.38 / math.Sqrt(float64(n))
}

// Options specify start point and length of a chain.
type Options struct {
	// Start is the first point of the chain.
	Start []float64
	// Iterations is the number of recorded iterations. The total
	// weight filled into the sink equals Iterations.
	Iterations int
	// BurnIn is the number of iterations discarded before recording.
	BurnIn int
	// IgnoreInfNLL allows a start point with infinite negative log
	// posterior.
	IgnoreInfNLL bool
}

// Sampler is a Metropolis-Hastings sampler. A Sampler owns its random
// number generator and must not be used by several goroutines at the
// same time.
type Sampler struct {
	rnd *rand.Rand
	// AccPeriod is the number of iterations between acceptance rate
	// reports on the debug log level; 0 disables the reports.
	AccPeriod int
}

// NewSampler creates a sampler using a Mersenne twister seeded with
// seed.
func NewSampler(seed int64) *Sampler {
	return NewSamplerRand(rand.New(NewSource(seed)))
}

// NewSamplerRand creates a sampler using the given random number
// generator.
func NewSamplerRand(rnd *rand.Rand) *Sampler {
	return &Sampler{rnd: rnd}
}

// Run runs a chain with the Gaussian jumping kernel. sqrtCov is the
// lower triangular square root of the proposal covariance, usually the
// result of ReducedCholesky; parameters with a zero diagonal entry are
// never changed. The jump is scaled by OptimalScale of the number of
// non-fixed parameters.
//
// Errors returned by f abort the chain; in this case End is not called.
func (s *Sampler) Run(ctx context.Context, f Function, res Sink, opts Options, sqrtCov mat.Triangular) error {
	npar := len(opts.Start)
	r, c := sqrtCov.Dims()
	if npar != r || npar != c || npar != f.NPar() || npar != res.NPar() {
		return errors.Wrapf(ErrDimension, "start point %d, square root covariance %dx%d, function %d, result %d",
			npar, r, c, f.NPar(), res.NPar())
	}
	if _, kind := sqrtCov.Triangle(); kind != mat.Lower {
		return errors.WithMessage(ErrInvalidConfiguration, "square root covariance should be lower triangular")
	}
	for i := 0; i < npar; i++ {
		for j := 0; j <= i; j++ {
			if v := sqrtCov.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.WithMessage(ErrNumerical, "square root covariance has non-finite entries")
			}
		}
	}
	p, nReduced := newGaussProposal(sqrtCov)
	if nReduced == 0 {
		return errors.WithMessage(ErrInvalidConfiguration, "all parameters are fixed")
	}
	return s.chain(ctx, f, res, opts, p)
}

// RunOrtho runs a chain which changes one randomly selected parameter
// per iteration by a Gaussian jump of three times its width.
// Parameters with zero width are never changed.
func (s *Sampler) RunOrtho(ctx context.Context, f Function, res Sink, opts Options, widths []float64) error {
	npar := len(opts.Start)
	if npar != len(widths) || npar != f.NPar() || npar != res.NPar() {
		return errors.Wrapf(ErrDimension, "start point %d, widths %d, function %d, result %d",
			npar, len(widths), f.NPar(), res.NPar())
	}
	p := newOrthoProposal(widths)
	if len(p.free) == 0 {
		return errors.WithMessage(ErrInvalidConfiguration, "all parameters are fixed")
	}
	return s.chain(ctx, f, res, opts, p)
}

// chain implements the Metropolis-Hastings loop shared by all
// proposals. Repeated points are not filled; instead the weight of the
// current point is incremented and it is filled once the chain moves
// away from it.
func (s *Sampler) chain(ctx context.Context, f Function, res Sink, opts Options, p proposal) error {
	if opts.Iterations <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "number of iterations should be > 0, got %d", opts.Iterations)
	}
	if opts.BurnIn < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "burn-in should be >= 0, got %d", opts.BurnIn)
	}
	npar := len(opts.Start)
	x := make([]float64, npar)
	xNew := make([]float64, npar)
	copy(x, opts.Start)

	nll, err := f.Eval(x)
	if err != nil {
		return errors.Wrap(err, "evaluating start point")
	}
	if (math.IsNaN(nll) || math.IsInf(nll, 0)) && !opts.IgnoreInfNLL {
		return errors.Wrapf(ErrInvalidConfiguration, "negative log posterior at start point is %v", nll)
	}

	total := opts.BurnIn + opts.Iterations
	weight := 1
	accepted := 0
	for it := 1; it < total; it++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "chain stopped at iteration %d", it)
		}
		if s.AccPeriod > 0 && it%s.AccPeriod == 0 {
			log.Debugf("%d: nll=%f, acceptance rate %.2f%%", it, nll, 100*float64(accepted)/float64(s.AccPeriod))
			accepted = 0
		}

		p.propose(s.rnd, x, xNew)
		nllNew, err := f.Eval(xNew)
		if err != nil {
			return errors.Wrapf(err, "evaluating iteration %d", it)
		}
		if nllNew <= nll || s.rnd.Float64() < math.Exp(nll-nllNew) {
			if it > opts.BurnIn {
				res.Fill(x, nll, weight)
				weight = 1
			}
			x, xNew = xNew, x
			nll = nllNew
			accepted++
		} else if it > opts.BurnIn {
			weight++
		}
	}
	res.Fill(x, nll, weight)
	res.End()
	return nil
}
