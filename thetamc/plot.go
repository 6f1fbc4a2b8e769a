package main

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mrrlab/thetamc/mcmc"
)

// histogramPlot converts h to a plot; under- and overflow are not
// shown. The histogram is normalized to unit area.
func histogramPlot(h *mcmc.Histogram, name string) (*plot.Plot, error) {
	// two empty points span the binning exactly
	edges := plotter.XYs{{X: h.Lower}, {X: h.Upper}}
	ph, err := plotter.NewHistogram(edges, h.NBins())
	if err != nil {
		return nil, errors.Wrap(err, "creating histogram plot")
	}
	total := 0.0
	for i := range ph.Bins {
		ph.Bins[i].Weight = h.Bin(i + 1)
		total += ph.Bins[i].Weight
	}
	if total > 0 {
		ph.Normalize(1)
	}

	p := plot.New()
	p.Title.Text = "Posterior of " + name
	p.X.Label.Text = name
	p.Y.Label.Text = "density"
	p.Add(ph)
	return p, nil
}

// plotHistogram saves the plot of h to fn; the format is chosen by the
// file extension.
func plotHistogram(h *mcmc.Histogram, name, fn string) error {
	p, err := histogramPlot(h, name)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fn); err != nil {
		return errors.Wrapf(err, "saving plot to %s", fn)
	}
	return nil
}
