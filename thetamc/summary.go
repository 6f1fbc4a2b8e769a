package main

import (
	"math"

	"github.com/mrrlab/thetamc/diag"
	"github.com/mrrlab/thetamc/mcmc"
)

// RunSummary is storing thetamc run summary information.
type RunSummary struct {
	// ID identifies the run; it is also stored in checkpoints.
	ID string `json:"id"`
	// Version stores thetamc version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Command is the executed command.
	Command string `json:"command"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// TotalTime is the computations time in seconds.
	TotalTime float64 `json:"time"`

	Calibration *CalibrationSummary `json:"calibration,omitempty"`
	Sampling    *SamplingSummary    `json:"sampling,omitempty"`
	Quantile    *QuantileSummary    `json:"quantile,omitempty"`
	Posterior   *PosteriorSummary   `json:"posterior,omitempty"`
}

// CalibrationSummary describes the calibration used.
type CalibrationSummary struct {
	Passes    int       `json:"passes"`
	JumpRates []float64 `json:"jumpRates"`
	NReduced  int       `json:"nReduced"`
	Start     []float64 `json:"start"`
	Converged bool      `json:"converged"`
	// FromCheckpoint is set if the calibration was loaded.
	FromCheckpoint bool `json:"fromCheckpoint,omitempty"`
}

func newCalibrationSummary(cal *mcmc.Calibration, converged, loaded bool) *CalibrationSummary {
	return &CalibrationSummary{
		Passes:         cal.Passes(),
		JumpRates:      cal.JumpRates,
		NReduced:       cal.NReduced,
		Start:          cal.Start,
		Converged:      converged,
		FromCheckpoint: loaded,
	}
}

// ParameterSummary stores the posterior moments and quantiles of one
// parameter. Values which are not finite, e.g. the sigma of a single
// point, are omitted.
type ParameterSummary struct {
	Name  string   `json:"name"`
	Mean  *float64 `json:"mean,omitempty"`
	Sigma *float64 `json:"sigma,omitempty"`
	// Quantiles follow SamplingSummary.Levels.
	Quantiles []*float64 `json:"quantiles,omitempty"`
}

// SamplingSummary stores the merged result of all chains.
type SamplingSummary struct {
	Chains     int                `json:"chains"`
	Count      int                `json:"count"`
	Different  int                `json:"different"`
	JumpRate   float64            `json:"jumpRate"`
	Levels     []float64          `json:"levels,omitempty"`
	Parameters []ParameterSummary `json:"parameters"`
	// NLAveragePosterior is -log of the average posterior density
	// over the chain.
	NLAveragePosterior *float64 `json:"nlAveragePosterior,omitempty"`
}

// newSamplingSummary collects the results of the chains. quantiles
// holds the sorted values of every parameter, or nothing if no levels
// are requested.
func newSamplingSummary(res *mcmc.Result, names []string, chains int,
	ratio *mcmc.RatioResult, quantiles []*mcmc.QuantilesResult, levels []float64) *SamplingSummary {
	means := res.Means()
	sigmas := res.Sigmas()
	s := &SamplingSummary{
		Chains:     chains,
		Count:      res.Count(),
		Different:  res.CountDifferent(),
		JumpRate:   res.JumpRate(),
		Parameters: make([]ParameterSummary, len(names)),
	}
	if ratio != nil {
		s.NLAveragePosterior = finite(ratio.NLAveragePosterior())
	}
	if len(quantiles) > 0 {
		s.Levels = levels
	}
	for i, name := range names {
		p := ParameterSummary{Name: name, Mean: finite(means[i]), Sigma: finite(sigmas[i])}
		if len(quantiles) > 0 {
			p.Quantiles = make([]*float64, len(levels))
			for k, level := range levels {
				if v, err := quantiles[i].Quantile(level); err == nil {
					p.Quantiles[k] = finite(v)
				}
			}
		}
		s.Parameters[i] = p
	}
	return s
}

// QuantileSummary stores the Raftery-Lewis result. The estimates are
// omitted if the diagnostic did not converge.
type QuantileSummary struct {
	Parameter string   `json:"parameter"`
	Q         float64  `json:"q"`
	Quantile  *float64 `json:"quantile,omitempty"`
	BurnIn    *float64 `json:"burnIn,omitempty"`
	N         *float64 `json:"n,omitempty"`
	Nmin      int      `json:"nmin"`
	Thinning  int      `json:"thinning"`
	Rounds    int      `json:"rounds"`
	Converged bool     `json:"converged"`
}

// finite returns nil for values which cannot be encoded in JSON.
func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func newQuantileSummary(rep *diag.Report, name string, q float64) *QuantileSummary {
	return &QuantileSummary{
		Parameter: name,
		Q:         q,
		Quantile:  finite(rep.Quantile),
		BurnIn:    finite(rep.M),
		N:         finite(rep.N),
		Nmin:      rep.Nmin,
		Thinning:  rep.K,
		Rounds:    rep.Rounds,
		Converged: rep.Converged,
	}
}

// PosteriorSummary describes the plotted histogram.
type PosteriorSummary struct {
	Parameter string   `json:"parameter"`
	Output    string   `json:"output"`
	Integral  float64  `json:"integral"`
	Mean      *float64 `json:"mean,omitempty"`
	Sigma     *float64 `json:"sigma,omitempty"`
}
