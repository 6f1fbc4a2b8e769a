package diag

import (
	"math"

	"github.com/mrrlab/thetamc/mcmc"
)

// Indicator returns the binary chain z_t = 1 if parameter ipar is
// <= qpar at iteration t. Weighted points are expanded.
func Indicator(fr *mcmc.FullResult, ipar int, qpar float64) []byte {
	z := make([]byte, 0, fr.Count())
	for i := 0; i < fr.CountDifferent(); i++ {
		var b byte
		if fr.Point(i)[ipar] <= qpar {
			b = 1
		}
		for j := 0; j < fr.Weight(i); j++ {
			z = append(z, b)
		}
	}
	return z
}

// BIC compares a second order Markov chain with a first order one for
// the binary chain z thinned by k. A negative value favours the first
// order chain. Empty cells do not contribute to G^2.
func BIC(z []byte, k int) float64 {
	var w [2][2][2]int
	count := len(z)
	if count <= 2*k {
		return math.NaN()
	}
	m1, m0 := z[0], z[k]
	for i := 2 * k; i < count; i += k {
		m2 := m1
		m1 = m0
		m0 = z[i]
		w[m2][m1][m0]++
	}

	g2 := 0.0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			total := w[0][j][0] + w[0][j][1] + w[1][j][0] + w[1][j][1]
			for l := 0; l < 2; l++ {
				if w[i][j][l] == 0 {
					continue
				}
				what := float64((w[0][j][l]+w[1][j][l])*(w[i][j][0]+w[i][j][1])) / float64(total)
				g2 += float64(w[i][j][l]) * math.Log(float64(w[i][j][l])/what)
			}
		}
	}
	return 2*g2 - 2*math.Log(float64(count/k-2))
}

// TransitionRates returns the transition probabilities of the binary
// chain z thinned by k: alpha from 1 to 0 and beta from 0 to 1.
func TransitionRates(z []byte, k int) (alpha, beta float64) {
	var n10, n1, n01, n0 float64
	for i := k; i < len(z); i += k {
		if z[i-k] == 1 {
			n1++
			if z[i] == 0 {
				n10++
			}
		} else {
			n0++
			if z[i] == 1 {
				n01++
			}
		}
	}
	return n10 / n1, n01 / n0
}

// thinning returns the smallest k for which the thinned chain is
// first order Markov, or 0 if there is none.
func thinning(z []byte) int {
	for k := 1; len(z)/k > 3; k++ {
		if BIC(z, k) < 0 {
			return k
		}
	}
	return 0
}

// runLength returns the burn-in m and the number of iterations n
// required for the binary chain z. a is Phi^-1((s+1)/2)/r and epsilon
// the required precision of the stationary distribution. m and n are
// NaN if no suitable thinning exists.
func runLength(z []byte, a, epsilon float64) (m, n float64, k int) {
	k = thinning(z)
	if k == 0 {
		return math.NaN(), math.NaN(), 0
	}
	alpha, beta := TransitionRates(z, k)
	if 1-alpha-beta < 1e-12 {
		m = 0
	} else {
		m = math.Log((alpha+beta)*epsilon/math.Max(alpha, beta)) / math.Log(1-alpha-beta)
	}
	n = (2 - alpha - beta) * alpha * beta / math.Pow(alpha+beta, 3) * a * a
	return m * float64(k), n * float64(k), k
}
