package diag

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrrlab/thetamc/dist"
	"github.com/mrrlab/thetamc/mcmc"
)

func TestBICIndependent(t *testing.T) {
	rnd := rand.New(mcmc.NewSource(2))
	z := make([]byte, 10000)
	for i := range z {
		if rnd.Float64() < 0.3 {
			z[i] = 1
		}
	}
	assert.Less(t, BIC(z, 1), 0.0)
	assert.Equal(t, 1, thinning(z))

	alpha, beta := TransitionRates(z, 1)
	assert.InDelta(t, 0.7, alpha, 0.03)
	assert.InDelta(t, 0.3, beta, 0.03)
}

func TestBICSecondOrder(t *testing.T) {
	// 0011 repeated is second order at lag 1 and alternating at lag 2
	z := make([]byte, 400)
	for i := range z {
		if i%4 >= 2 {
			z[i] = 1
		}
	}
	assert.Greater(t, BIC(z, 1), 0.0)
	assert.Less(t, BIC(z, 2), 0.0)
	assert.Equal(t, 2, thinning(z))

	alpha, beta := TransitionRates(z, 2)
	assert.Equal(t, 1.0, alpha)
	assert.Equal(t, 1.0, beta)

	assert.True(t, math.IsNaN(BIC(z[:4], 2)))
}

func TestRunLength(t *testing.T) {
	rnd := rand.New(mcmc.NewSource(3))
	z := make([]byte, 20000)
	for i := range z {
		if rnd.Float64() < 0.5 {
			z[i] = 1
		}
	}
	a := 1.959963985 / 0.01
	m, n, k := runLength(z, a, 0.001)
	assert.Equal(t, 1, k)
	// alpha = beta = 0.5: almost no burn-in, n = a^2/4
	assert.Less(t, m, 5.0)
	assert.InDelta(t, a*a/4, n, 0.1*a*a/4)

	constant := make([]byte, 100)
	m, n, _ = runLength(constant, a, 0.001)
	assert.True(t, math.IsNaN(m))
	assert.True(t, math.IsNaN(n))
}

// ar1 fills x with a stationary AR(1) chain with unit variance.
func ar1(rnd *rand.Rand, x []float64, phi float64) {
	sd := math.Sqrt(1 - phi*phi)
	prev := rnd.NormFloat64()
	for i := range x {
		prev = phi*prev + sd*rnd.NormFloat64()
		x[i] = prev
	}
}

func TestRunLengthAR1(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping repeated chains in short mode")
	}
	const (
		phi    = 0.5
		q      = 0.1
		r      = 0.0125
		s      = 0.95
		trials = 100
	)
	rnd := rand.New(mcmc.NewSource(4))
	quantile := dist.QuantileNormal(q)
	a := dist.QuantileNormal((s+1)/2) / r

	pilot := make([]float64, 50000)
	ar1(rnd, pilot, phi)
	z := make([]byte, len(pilot))
	for i, v := range pilot {
		if v <= quantile {
			z[i] = 1
		}
	}
	m, n, _ := runLength(z, a, r/10)
	assert.False(t, math.IsNaN(n))
	// a correlated chain needs more iterations than independent draws
	assert.Greater(t, n, q*(1-q)*a*a)

	// the estimated probability of the quantile is within r in most trials
	x := make([]float64, int(math.Ceil(m)+math.Ceil(n)))
	burnIn := int(math.Ceil(m))
	good := 0
	for i := 0; i < trials; i++ {
		ar1(rnd, x, phi)
		below := 0
		for _, v := range x[burnIn:] {
			if v <= quantile {
				below++
			}
		}
		if p := float64(below) / float64(len(x)-burnIn); math.Abs(p-q) <= r {
			good++
		}
	}
	assert.GreaterOrEqual(t, good, 80)
}

func TestIndicator(t *testing.T) {
	fr := mcmc.NewFullResult(2, 3)
	fr.Fill([]float64{0, 1}, 0, 2)
	fr.Fill([]float64{0, 3}, 0, 1)
	fr.Fill([]float64{0, 2}, 0, 3)
	assert.Equal(t, []byte{1, 1, 0, 1, 1, 1}, Indicator(fr, 1, 2))
}
