package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	path := filepath.Join(t.TempDir(), "thetamc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func TestDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 1, c.NPar())
	assert.Equal(t, 20, c.Calibration.Passes)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
seed: 7
target:
  kind: norm
  mean: [10, -5]
  sigma: [2, 1]
  samples: 400
  fixed: [3]
sampling:
  chains: 4
  ortho: true
  quantiles: [0.1, 0.9]
quantile:
  parameter: 1
  q: 0.025
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Seed)
	assert.Equal(t, 4, c.NPar())
	assert.Equal(t, []int{3}, c.Target.Fixed)
	assert.Equal(t, 4, c.Sampling.Chains)
	assert.True(t, c.Sampling.Ortho)
	assert.Equal(t, []float64{0.1, 0.9}, c.Sampling.Quantiles)
	assert.Equal(t, 0.025, c.Quantile.Q)
	// unset values keep their defaults
	assert.Equal(t, 8000, c.Calibration.Iterations)
	assert.Equal(t, 0.95, c.Quantile.S)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "target: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"kind", func(c *Config) { c.Target.Kind = "cauchy" }},
		{"empty mean", func(c *Config) { c.Target.Mean = nil }},
		{"sigma length", func(c *Config) { c.Target.Sigma = []float64{1, 2} }},
		{"negative sigma", func(c *Config) { c.Target.Sigma = []float64{-1} }},
		{"correlation", func(c *Config) { c.Target.Correlation = 1 }},
		{"fixed index", func(c *Config) { c.Target.Fixed = []int{1} }},
		{"rate band", func(c *Config) { c.Calibration.MaxRate = 0.05 }},
		{"iterations", func(c *Config) { c.Sampling.Iterations = 0 }},
		{"chains", func(c *Config) { c.Sampling.Chains = 0 }},
		{"sampling quantiles", func(c *Config) { c.Sampling.Quantiles = []float64{0.5, 1} }},
		{"quantile", func(c *Config) { c.Quantile.Q = 1 }},
		{"quantile parameter", func(c *Config) { c.Quantile.Parameter = 2 }},
		{"histogram range", func(c *Config) { c.Histogram.Upper = c.Histogram.Lower }},
		{"checkpoint key", func(c *Config) { c.Checkpoint.Path = "x.db"; c.Checkpoint.Key = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}
