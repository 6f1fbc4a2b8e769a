package diag

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/mrrlab/thetamc/dist"
	"github.com/mrrlab/thetamc/mcmc"
)

// FindQuantile returns the q quantile of parameter ipar in the trace.
// The trace is not sorted fully. Values are split around a first guess
// assuming a normal distribution, and then only the part containing
// the quantile is partitioned further.
func FindQuantile(fr *mcmc.FullResult, ipar int, q float64) (float64, error) {
	count := fr.Count()
	if count == 0 {
		return math.NaN(), errors.WithMessage(mcmc.ErrNumerical, "quantile of an empty trace")
	}
	if ipar < 0 || ipar >= fr.NPar() {
		return math.NaN(), errors.Wrapf(mcmc.ErrDimension, "parameter %d with %d parameters", ipar, fr.NPar())
	}

	guess := fr.Means()[ipar]
	if count > 1 {
		if sigma := fr.Sigmas()[ipar]; !math.IsNaN(sigma) {
			guess += sigma * dist.QuantileNormal(q)
		}
	}

	list := make([]float64, count)
	lower, upper := 0, count-1
	minLeft, maxLeft := math.Inf(1), math.Inf(-1)
	minRight, maxRight := minLeft, maxLeft
	for i := 0; i < fr.CountDifferent(); i++ {
		v := fr.Point(i)[ipar]
		w := fr.Weight(i)
		if v > guess {
			minRight = math.Min(minRight, v)
			maxRight = math.Max(maxRight, v)
			for j := 0; j < w; j++ {
				list[upper] = v
				upper--
			}
		} else {
			minLeft = math.Min(minLeft, v)
			maxLeft = math.Max(maxLeft, v)
			for j := 0; j < w; j++ {
				list[lower] = v
				lower++
			}
		}
	}

	qIndex := int(q*float64(count) + 0.5)
	if qIndex >= count {
		qIndex = count - 1
	}
	switch {
	case lower == 0:
		return selectQuantile(list, qIndex, 0, count-1, minRight, maxRight), nil
	case lower == count:
		return selectQuantile(list, qIndex, 0, count-1, minLeft, maxLeft), nil
	case qIndex <= lower-1:
		return selectQuantile(list, qIndex, 0, lower-1, minLeft, maxLeft), nil
	default:
		return selectQuantile(list, qIndex, lower, count-1, minRight, maxRight), nil
	}
}

// selectQuantile returns the element which would be at position
// qIndex if list was sorted. The element is known to be in
// list[lower:upper+1], whose exact minimum and maximum are min and
// max. The pivot is interpolated linearly between min and max.
func selectQuantile(list []float64, qIndex, lower, upper int, min, max float64) float64 {
	for {
		if lower == upper || min == max {
			return list[lower]
		}
		if upper == lower+1 {
			if qIndex == lower {
				return min
			}
			return max
		}
		pivot := min + (max-min)/float64(upper-lower+1)*float64(qIndex-lower)

		minLeft, maxLeft := math.Inf(1), math.Inf(-1)
		minRight, maxRight := minLeft, maxLeft
		i, j := lower, upper
		for i <= j {
			switch {
			case list[i] <= pivot:
				minLeft = math.Min(minLeft, list[i])
				maxLeft = math.Max(maxLeft, list[i])
				i++
			case list[j] > pivot:
				minRight = math.Min(minRight, list[j])
				maxRight = math.Max(maxRight, list[j])
				j--
			default:
				list[i], list[j] = list[j], list[i]
			}
		}

		// list[lower:i] <= pivot < list[i:upper+1]
		if i == lower || i > upper {
			sub := list[lower : upper+1]
			sort.Float64s(sub)
			return list[qIndex]
		}
		if qIndex < i {
			upper = i - 1
			min, max = minLeft, maxLeft
		} else {
			lower = i
			min, max = minRight, maxRight
		}
	}
}
