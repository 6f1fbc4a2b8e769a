package main

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/mrrlab/thetamc/config"
	"github.com/mrrlab/thetamc/mcmc"
	"github.com/mrrlab/thetamc/target"
)

// Problem is the function to sample together with its start point,
// parameter support and names.
type Problem struct {
	F      mcmc.Function
	Start  []float64
	Bounds [][2]float64
	Names  []string
}

// fix collapses the support of fixed parameters to their start value.
func (p *Problem) fix(fixed []int) {
	for _, i := range fixed {
		p.Bounds[i] = [2]float64{p.Start[i], p.Start[i]}
	}
}

// gaussianCov returns the covariance with standard deviations sigma and
// correlation rho^|i-j|.
func gaussianCov(sigma []float64, rho float64) *mat.SymDense {
	n := len(sigma)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, sigma[i]*sigma[j]*math.Pow(rho, float64(j-i)))
		}
	}
	return cov
}

// newProblem creates the target described by the configuration.
func newProblem(c *config.Target, rnd *rand.Rand) (*Problem, error) {
	var p *Problem
	switch c.Kind {
	case "gaussian":
		g, err := target.NewGaussian(c.Mean, gaussianCov(c.Sigma, c.Correlation))
		if err != nil {
			return nil, errors.Wrap(err, "creating gaussian target")
		}
		n := len(c.Mean)
		p = &Problem{
			F:      g,
			Start:  make([]float64, n),
			Bounds: make([][2]float64, n),
			Names:  make([]string, n),
		}
		for i := range p.Start {
			// one standard deviation off the mode
			p.Start[i] = c.Mean[i] + c.Sigma[i]
			p.Bounds[i] = [2]float64{math.Inf(-1), math.Inf(1)}
			p.Names[i] = "x" + strconv.Itoa(i)
		}
	case "norm":
		m := target.NewNormModel(target.GenData(rnd, c.Mean, c.Sigma, c.Samples))
		post, err := target.WithPriors(m, m.Priors(maxSD, maxMean))
		if err != nil {
			return nil, err
		}
		p = &Problem{
			F:      post,
			Start:  m.Start(),
			Bounds: make([][2]float64, m.NPar()),
			Names:  m.Names(),
		}
		for i := range p.Bounds {
			if i%2 == 0 {
				p.Bounds[i] = [2]float64{0, maxSD}
			} else {
				p.Bounds[i] = [2]float64{-maxMean, maxMean}
			}
		}
	default:
		return nil, errors.Wrapf(mcmc.ErrInvalidConfiguration, "unknown target %q", c.Kind)
	}
	p.fix(c.Fixed)
	return p, nil
}

// Prior ranges of the norm model.
const (
	maxSD   = 100
	maxMean = 100
)
