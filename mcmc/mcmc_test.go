package mcmc

import (
	"math"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func init() {
	logging.SetLevel(logging.WARNING, "mcmc")
}

// gauss is a product of independent normal distributions. Parameters
// with zero sigma do not enter the function.
type gauss struct {
	mu    []float64
	sigma []float64
}

func (g gauss) Eval(x []float64) (float64, error) {
	s := 0.0
	for i, m := range g.mu {
		if g.sigma[i] == 0 {
			continue
		}
		d := (x[i] - m) / g.sigma[i]
		s += 0.5 * d * d
	}
	return s, nil
}

func (g gauss) NPar() int {
	return len(g.mu)
}

var (
	errTarget = errors.New("target failed")
	inf       = math.Inf(1)
)

// failing fails on call number failAt.
type failing struct {
	gauss
	calls  int
	failAt int
}

func (f *failing) Eval(x []float64) (float64, error) {
	f.calls++
	if f.calls == f.failAt {
		return 0, errTarget
	}
	return f.gauss.Eval(x)
}

// countingSink counts calls of Fill and End.
type countingSink struct {
	npar  int
	fills int
	total int
	ends  int
}

func (c *countingSink) NPar() int { return c.npar }

func (c *countingSink) Fill(x []float64, nll float64, weight int) {
	c.fills++
	c.total += weight
}

func (c *countingSink) End() { c.ends++ }

// diagSqrt returns a diagonal square root covariance.
func diagSqrt(widths ...float64) *mat.TriDense {
	l := mat.NewTriDense(len(widths), mat.Lower, nil)
	for i, w := range widths {
		l.SetTri(i, i, w)
	}
	return l
}

func appreq(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
