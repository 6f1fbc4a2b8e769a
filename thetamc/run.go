package main

import (
	"context"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/mrrlab/thetamc/checkpoint"
	"github.com/mrrlab/thetamc/config"
	"github.com/mrrlab/thetamc/diag"
	"github.com/mrrlab/thetamc/estimate"
	"github.com/mrrlab/thetamc/mcmc"
)

// Seed offsets of the random number generators used by one run.
const (
	dataSeed = iota
	calibrationSeed
	quantileSeed
	posteriorSeed
	chainSeed
)

// runner holds the state shared by the commands.
type runner struct {
	cfg       *config.Config
	id        uuid.UUID
	problem   *Problem
	accPeriod int
	summary   *RunSummary
}

func newRunner(cfg *config.Config, id uuid.UUID) (*runner, error) {
	rnd := rand.New(mcmc.NewSource(cfg.Seed + dataSeed))
	p, err := newProblem(&cfg.Target, rnd)
	if err != nil {
		return nil, err
	}
	log.Infof("Target %s with %d parameters", cfg.Target.Kind, p.F.NPar())
	return &runner{
		cfg:     cfg,
		id:      id,
		problem: p,
		summary: &RunSummary{},
	}, nil
}

func (r *runner) sampler(offset int64) *mcmc.Sampler {
	s := mcmc.NewSampler(r.cfg.Seed + offset)
	s.AccPeriod = r.accPeriod
	return s
}

// covWidths returns the square roots of the covariance diagonal.
func covWidths(cal *mcmc.Calibration) []float64 {
	widths := make([]float64, len(cal.Start))
	for i := range widths {
		widths[i] = math.Sqrt(cal.Cov.At(i, i))
	}
	return widths
}

// calibration returns a finished calibration from the checkpoint
// database, or calibrates. An unfinished checkpoint is used as the
// starting point of the calibration.
func (r *runner) calibration(ctx context.Context) (*mcmc.Calibration, error) {
	var cpt *checkpoint.CheckpointIO
	if path := r.cfg.Checkpoint.Path; path != "" {
		db, err := checkpoint.Open(path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		cpt = checkpoint.NewCheckpointIO(db, []byte(r.cfg.Checkpoint.Key), r.cfg.Checkpoint.Seconds)
	}

	f := r.problem.F
	var start []float64
	var cov mat.Symmetric
	var widths []float64
	if cpt != nil {
		data, err := cpt.Load()
		if err != nil {
			log.Error("Error loading checkpoint:", err)
		}
		if data != nil {
			cal, err := data.Calibration()
			if err != nil {
				return nil, errors.Wrap(err, "checkpoint")
			}
			if data.Final {
				r.summary.Calibration = newCalibrationSummary(cal, true, true)
				return cal, nil
			}
			log.Info("Continuing calibration from the checkpoint")
			start, cov = cal.Start, cal.Cov
		}
	}

	if start == nil {
		est, err := estimate.Estimate(f, r.problem.Start, r.problem.Bounds)
		if err != nil {
			return nil, errors.Wrap(err, "estimating start point")
		}
		log.Infof("Mode nll=%v", est.NLL)
		for i, name := range r.problem.Names {
			log.Infof("%s: mode=%v width=%v", name, est.Mode[i], est.Widths[i])
		}
		start, widths = est.Mode, est.Widths
		if est.Cov != nil {
			log.Info("Starting from the covariance at the mode")
			cov = est.Cov
		}
	}

	c := r.cfg.Calibration
	cc := mcmc.NewCalibrator(r.sampler(calibrationSeed))
	cc.MaxPasses = c.Passes
	cc.Iterations = c.Iterations
	cc.BurnIn = c.BurnIn
	cc.MinRate = c.MinRate
	cc.MaxRate = c.MaxRate
	cc.Tolerance = c.Tolerance
	if cpt != nil {
		cc.OnPass = cpt.OnPass(r.id)
	}

	converged := true
	var cal *mcmc.Calibration
	var err error
	if cov != nil {
		cal, err = cc.CalibrateCov(ctx, f, start, cov)
	} else {
		cal, err = cc.Calibrate(ctx, f, start, widths)
	}
	switch {
	case errors.Is(err, mcmc.ErrDidNotConverge):
		log.Warning("Using the last calibration:", err)
		converged = false
	case err != nil:
		return nil, err
	}
	if cpt != nil {
		// errors are logged by Save
		_ = cpt.Save(checkpoint.FromCalibration(r.id, cal, converged))
	}
	r.summary.Calibration = newCalibrationSummary(cal, converged, false)
	return cal, nil
}

// sample runs the configured number of chains and reports the
// posterior means, standard deviations, quantiles and the average
// posterior.
func (r *runner) sample(ctx context.Context) error {
	cal, err := r.calibration(ctx)
	if err != nil {
		return err
	}
	s := r.cfg.Sampling
	opts := mcmc.Options{Start: cal.Start, Iterations: s.Iterations, BurnIn: s.BurnIn}
	widths := covWidths(cal)
	f := r.problem.F
	npar := f.NPar()

	ratios := make([]*mcmc.RatioResult, s.Chains)
	quantiles := make([][]*mcmc.QuantilesResult, s.Chains)
	for c := range ratios {
		ratios[c] = mcmc.NewRatioResult(npar)
		if len(s.Quantiles) == 0 {
			continue
		}
		quantiles[c] = make([]*mcmc.QuantilesResult, npar)
		for i := range quantiles[c] {
			if quantiles[c][i], err = mcmc.NewQuantilesResult(npar, i, s.Iterations); err != nil {
				return err
			}
		}
	}

	res, err := mcmc.RunChains(ctx, s.Chains, r.cfg.Seed+chainSeed, npar,
		func(ctx context.Context, chain int, smp *mcmc.Sampler, res *mcmc.Result) error {
			smp.AccPeriod = r.accPeriod
			sinks := mcmc.Sinks{res, ratios[chain]}
			for _, q := range quantiles[chain] {
				sinks = append(sinks, q)
			}
			if s.Ortho {
				return smp.RunOrtho(ctx, f, sinks, opts, widths)
			}
			return smp.Run(ctx, f, sinks, opts, cal.SqrtCov)
		})
	if err != nil {
		return errors.Wrap(err, "sampling")
	}
	ratio, perPar, err := mergeChains(ratios, quantiles)
	if err != nil {
		return err
	}

	means, sigmas := res.Means(), res.Sigmas()
	for i, name := range r.problem.Names {
		log.Noticef("%s: mean=%v sigma=%v", name, means[i], sigmas[i])
	}
	for i, q := range perPar {
		for _, level := range s.Quantiles {
			v, err := q.Quantile(level)
			if err == nil {
				log.Infof("%s: %v quantile=%v", r.problem.Names[i], level, v)
			}
		}
	}
	log.Noticef("Jump rate: %v", res.JumpRate())
	log.Noticef("Negative log average posterior: %v", ratio.NLAveragePosterior())

	r.summary.Sampling = newSamplingSummary(res, r.problem.Names, s.Chains, ratio, perPar, s.Quantiles)
	return nil
}

// mergeChains combines the per chain results. quantiles is indexed by
// chain and parameter; the merged quantile results are sorted.
func mergeChains(ratios []*mcmc.RatioResult, quantiles [][]*mcmc.QuantilesResult) (*mcmc.RatioResult, []*mcmc.QuantilesResult, error) {
	ratio := ratios[0]
	for _, o := range ratios[1:] {
		if err := ratio.Combine(o); err != nil {
			return nil, nil, err
		}
	}
	merged := quantiles[0]
	for _, qs := range quantiles[1:] {
		for i, q := range qs {
			if err := merged[i].Combine(q); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, q := range merged {
		q.End()
	}
	return ratio, merged, nil
}

// quantile runs the Raftery-Lewis diagnostic.
func (r *runner) quantile(ctx context.Context) error {
	cal, err := r.calibration(ctx)
	if err != nil {
		return err
	}
	q := r.cfg.Quantile
	rl := diag.NewRafteryLewis(r.sampler(quantileSeed))
	rl.Epsilon = q.Epsilon
	rl.MaxRounds = q.Rounds
	rep, err := rl.Quantile(ctx, r.problem.F, q.Parameter, q.Q, q.R, q.S, cal.Start, cal.Cov)
	if err != nil {
		return errors.Wrap(err, "quantile")
	}
	name := r.problem.Names[q.Parameter]
	r.summary.Quantile = newQuantileSummary(rep, name, q.Q)
	if rep.Converged {
		log.Noticef("%s: %v quantile=%v (burn-in %.0f, iterations %.0f, thinning %d)",
			name, q.Q, rep.Quantile, rep.M, rep.N, rep.K)
	} else {
		log.Warningf("%s: run length did not converge after %d rounds", name, rep.Rounds)
	}
	return nil
}

// posterior fills the posterior histogram of one parameter and plots
// it.
func (r *runner) posterior(ctx context.Context) error {
	cal, err := r.calibration(ctx)
	if err != nil {
		return err
	}
	h := r.cfg.Histogram
	f := r.problem.F
	res, err := mcmc.NewHistoResult(f.NPar(), mcmc.HistoSpec{
		Par:   h.Parameter,
		NBins: h.Bins,
		Lower: h.Lower,
		Upper: h.Upper,
	})
	if err != nil {
		return err
	}
	s := r.cfg.Sampling
	opts := mcmc.Options{Start: cal.Start, Iterations: s.Iterations, BurnIn: s.BurnIn}
	if err := r.sampler(posteriorSeed).Run(ctx, f, res, opts, cal.SqrtCov); err != nil {
		return errors.Wrap(err, "sampling")
	}
	name := r.problem.Names[h.Parameter]
	histo := res.Histogram(0)
	if err := plotHistogram(histo, name, h.Output); err != nil {
		return err
	}
	log.Noticef("Posterior of %s written to %s", name, h.Output)
	r.summary.Posterior = &PosteriorSummary{
		Parameter: name,
		Output:    h.Output,
		Integral:  histo.Integral(),
		Mean:      finite(res.Means()[h.Parameter]),
		Sigma:     finite(res.Sigmas()[h.Parameter]),
	}
	return nil
}
