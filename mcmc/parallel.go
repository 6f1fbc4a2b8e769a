package mcmc

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ChainFunc runs one chain using its own sampler and result.
type ChainFunc func(ctx context.Context, chain int, s *Sampler, res *Result) error

// RunChains runs n independent chains concurrently and merges their
// results. Chain i uses a sampler seeded with seed+i. The first error
// cancels the remaining chains.
func RunChains(ctx context.Context, n int, seed int64, npar int, run ChainFunc) (*Result, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "number of chains should be > 0, got %d", n)
	}
	results := make([]*Result, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		results[i] = NewResult(npar)
		g.Go(func() error {
			if err := run(gctx, i, NewSampler(seed+int64(i)), results[i]); err != nil {
				return errors.Wrapf(err, "chain %d", i)
			}
			log.Debugf("Chain %d finished, %d points", i, results[i].Count())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := NewResult(npar)
	for _, r := range results {
		if err := total.Combine(r); err != nil {
			return nil, err
		}
	}
	return total, nil
}
