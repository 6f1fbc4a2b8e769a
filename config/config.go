// Package config reads the run configuration of thetamc from YAML.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Target describes the distribution to sample.
type Target struct {
	// Kind is gaussian for a multivariate normal distribution or norm
	// for a normal model of simulated data.
	Kind string `yaml:"kind" validate:"oneof=gaussian norm"`
	// Mean and Sigma are the means and standard deviations of the
	// normal distributions.
	Mean  []float64 `yaml:"mean" validate:"min=1"`
	Sigma []float64 `yaml:"sigma" validate:"min=1,dive,gte=0"`
	// Correlation between consecutive parameters of a gaussian target.
	Correlation float64 `yaml:"correlation" validate:"gt=-1,lt=1"`
	// Samples is the number of simulated values per group of a norm
	// target.
	Samples int `yaml:"samples" validate:"gte=0"`
	// Fixed lists parameters which stay at their start value.
	Fixed []int `yaml:"fixed" validate:"dive,gte=0"`
}

// Calibration holds the calibrator settings.
type Calibration struct {
	Passes     int     `yaml:"passes" validate:"gt=0"`
	Iterations int     `yaml:"iterations" validate:"gt=0"`
	BurnIn     int     `yaml:"burnin" validate:"gte=0"`
	MinRate    float64 `yaml:"minRate" validate:"gt=0,lt=1"`
	MaxRate    float64 `yaml:"maxRate" validate:"gtfield=MinRate,lt=1"`
	Tolerance  float64 `yaml:"tolerance" validate:"gt=0"`
}

// Sampling holds the settings of the final chains.
type Sampling struct {
	Iterations int  `yaml:"iterations" validate:"gt=0"`
	BurnIn     int  `yaml:"burnin" validate:"gte=0"`
	Chains     int  `yaml:"chains" validate:"gt=0"`
	Ortho      bool `yaml:"ortho"`
	// Quantiles are reported for every parameter.
	Quantiles []float64 `yaml:"quantiles" validate:"dive,gt=0,lt=1"`
}

// Quantile holds the Raftery-Lewis settings.
type Quantile struct {
	Parameter int     `yaml:"parameter" validate:"gte=0"`
	Q         float64 `yaml:"q" validate:"gt=0,lt=1"`
	R         float64 `yaml:"r" validate:"gt=0"`
	S         float64 `yaml:"s" validate:"gt=0,lt=1"`
	Epsilon   float64 `yaml:"epsilon" validate:"gte=0"`
	Rounds    int     `yaml:"rounds" validate:"gt=0"`
}

// Histogram holds the posterior histogram settings.
type Histogram struct {
	Parameter int     `yaml:"parameter" validate:"gte=0"`
	Bins      int     `yaml:"bins" validate:"gt=0"`
	Lower     float64 `yaml:"lower"`
	Upper     float64 `yaml:"upper" validate:"gtfield=Lower"`
	Output    string  `yaml:"output"`
}

// Checkpoint holds the checkpoint database settings. An empty path
// disables checkpoints.
type Checkpoint struct {
	Path    string  `yaml:"path"`
	Key     string  `yaml:"key" validate:"required_with=Path"`
	Seconds float64 `yaml:"seconds" validate:"gte=0"`
}

// Config is the complete run configuration.
type Config struct {
	Seed        int64       `yaml:"seed"`
	Target      Target      `yaml:"target"`
	Calibration Calibration `yaml:"calibration"`
	Sampling    Sampling    `yaml:"sampling"`
	Quantile    Quantile    `yaml:"quantile"`
	Histogram   Histogram   `yaml:"histogram"`
	Checkpoint  Checkpoint  `yaml:"checkpoint"`
}

// Default returns the default configuration: the one-dimensional
// normal distribution with mean 3 and standard deviation 2.
func Default() *Config {
	return &Config{
		Seed: 1,
		Target: Target{
			Kind:    "gaussian",
			Mean:    []float64{3},
			Sigma:   []float64{2},
			Samples: 100,
		},
		Calibration: Calibration{
			Passes:     20,
			Iterations: 8000,
			BurnIn:     800,
			MinRate:    0.1,
			MaxRate:    0.5,
			Tolerance:  0.05,
		},
		Sampling: Sampling{
			Iterations: 50000,
			BurnIn:     5000,
			Chains:     1,
			Quantiles:  []float64{0.025, 0.5, 0.975},
		},
		Quantile: Quantile{
			Q:      0.16,
			R:      0.01,
			S:      0.95,
			Rounds: 10,
		},
		Histogram: Histogram{
			Bins:   50,
			Lower:  -5,
			Upper:  11,
			Output: "posterior.png",
		},
		Checkpoint: Checkpoint{
			Key:     "calibration",
			Seconds: 10,
		},
	}
}

var validate = validator.New()

// NPar returns the number of parameters of the target.
func (c *Config) NPar() int {
	if c.Target.Kind == "norm" {
		return 2 * len(c.Target.Mean)
	}
	return len(c.Target.Mean)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if len(c.Target.Mean) != len(c.Target.Sigma) {
		return errors.Errorf("invalid configuration: %d means and %d sigmas", len(c.Target.Mean), len(c.Target.Sigma))
	}
	npar := c.NPar()
	for _, i := range c.Target.Fixed {
		if i >= npar {
			return errors.Errorf("invalid configuration: fixed parameter %d, %d parameters", i, npar)
		}
	}
	if c.Quantile.Parameter >= npar || c.Histogram.Parameter >= npar {
		return errors.Errorf("invalid configuration: parameter index out of range, %d parameters", npar)
	}
	return nil
}

// Load reads path on top of the default configuration. An empty path
// returns the default configuration.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading configuration %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "parsing configuration %s", path)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
