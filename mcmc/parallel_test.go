package mcmc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChains(t *testing.T) {
	f := gauss{mu: []float64{3}, sigma: []float64{2}}
	run := func(ctx context.Context, chain int, s *Sampler, res *Result) error {
		opts := Options{Start: []float64{float64(chain)}, Iterations: 20000, BurnIn: 2000}
		return s.Run(ctx, f, res, opts, diagSqrt(2))
	}
	res, err := RunChains(context.Background(), 4, 200, 1, run)
	require.NoError(t, err)
	assert.Equal(t, 80000, res.Count())
	assert.InDelta(t, 3, res.Means()[0], 0.15)
	assert.InDelta(t, 2, res.Sigmas()[0], 0.15)
}

func TestRunChainsError(t *testing.T) {
	run := func(ctx context.Context, chain int, s *Sampler, res *Result) error {
		f := &failing{gauss: gauss{mu: []float64{0}, sigma: []float64{1}}}
		if chain == 2 {
			f.failAt = 10
		}
		opts := Options{Start: []float64{0}, Iterations: 1000}
		return s.Run(ctx, f, res, opts, diagSqrt(1))
	}
	_, err := RunChains(context.Background(), 3, 1, 1, run)
	assert.ErrorIs(t, err, errTarget)
	assert.Contains(t, err.Error(), "chain 2")

	_, err = RunChains(context.Background(), 0, 1, 1, run)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
