package mcmc

import (
	"math/rand"

	"github.com/seehuhn/mt19937"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// NewSource returns a Mersenne twister random source.
func NewSource(seed int64) rand.Source64 {
	src := mt19937.New()
	src.Seed(seed)
	return src
}

// proposal generates a candidate point from the current one.
type proposal interface {
	propose(rnd *rand.Rand, x, xNew []float64)
}

// gaussProposal jumps by factor * L * z, where L is the lower
// triangular square root of the covariance and z is a vector of
// standard normal deviates.
type gaussProposal struct {
	l    blas64.Triangular
	free []bool
	dx   []float64
}

// newGaussProposal returns the proposal and the number of non-fixed
// parameters.
func newGaussProposal(sqrtCov mat.Triangular) (*gaussProposal, int) {
	n, _ := sqrtCov.Triangle()
	free := make([]bool, n)
	nReduced := 0
	for i := 0; i < n; i++ {
		if sqrtCov.At(i, i) != 0 {
			free[i] = true
			nReduced++
		}
	}
	if nReduced == 0 {
		return nil, 0
	}
	factor := OptimalScale(nReduced)
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			data[i*n+j] = sqrtCov.At(i, j) * factor
		}
	}
	return &gaussProposal{
		l: blas64.Triangular{
			Uplo:   blas.Lower,
			Diag:   blas.NonUnit,
			N:      n,
			Stride: n,
			Data:   data,
		},
		free: free,
		dx:   make([]float64, n),
	}, nReduced
}

func (p *gaussProposal) propose(rnd *rand.Rand, x, xNew []float64) {
	for i, f := range p.free {
		if f {
			p.dx[i] = rnd.NormFloat64()
		} else {
			p.dx[i] = 0
		}
	}
	blas64.Trmv(blas.NoTrans, p.l, blas64.Vector{N: len(p.dx), Inc: 1, Data: p.dx})
	for i := range x {
		xNew[i] = x[i] + p.dx[i]
	}
}

// orthoProposal moves one randomly chosen non-fixed parameter at a
// time.
type orthoProposal struct {
	widths []float64
	free   []int
}

// orthoFactor scales the widths of the one-dimensional jumps.
const orthoFactor = 3

func newOrthoProposal(widths []float64) *orthoProposal {
	p := &orthoProposal{widths: widths}
	for i, w := range widths {
		if w != 0 {
			p.free = append(p.free, i)
		}
	}
	return p
}

func (p *orthoProposal) propose(rnd *rand.Rand, x, xNew []float64) {
	copy(xNew, x)
	i := p.free[rnd.Intn(len(p.free))]
	xNew[i] += rnd.NormFloat64() * p.widths[i] * orthoFactor
}
