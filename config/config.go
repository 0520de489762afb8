// Package config loads and validates the experiment configuration from a
// single YAML document.
package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// Config is the full experiment surface. Zero values are replaced with
// defaults by Load; Validate rejects what defaults cannot repair.
type Config struct {
	Data struct {
		Path     string `yaml:"path"`
		LabelCol string `yaml:"label_column"`
	} `yaml:"data"`

	Split struct {
		TrainFraction float64 `yaml:"train_fraction"`
		Folds         int     `yaml:"folds"`
		Seed          int64   `yaml:"seed"`
	} `yaml:"split"`

	Preprocess struct {
		Downsample bool `yaml:"downsample"`
	} `yaml:"preprocess"`

	Tuning struct {
		GridSize     int     `yaml:"grid_size"`
		RefineBudget int     `yaml:"refine_budget"`
		StallLimit   int     `yaml:"stall_limit"`
		Cooling      float64 `yaml:"cooling"`
		Workers      int     `yaml:"workers"`
	} `yaml:"tuning"`

	// Spaces overrides per-family hyperparameter search bounds, keyed by
	// family name then dimension name. Omitted dimensions keep the family's
	// declared defaults.
	Spaces map[string]map[string]DimOverride `yaml:"spaces"`

	Report struct {
		Threshold float64 `yaml:"threshold"`
		OutputDir string  `yaml:"output_dir"`
		TopN      int     `yaml:"top_features"`
	} `yaml:"report"`

	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`
}

// DimOverride replaces one search dimension's bounds: min/max for a
// continuous range, levels for a discrete set.
type DimOverride struct {
	Min    *float64  `yaml:"min"`
	Max    *float64  `yaml:"max"`
	Levels []float64 `yaml:"levels"`
}

// Default returns a configuration with every tunable at its documented
// default. Data path and label column have no default and must be set.
func Default() Config {
	var c Config
	c.Split.TrainFraction = 0.75
	c.Split.Folds = 8
	c.Split.Seed = 42
	c.Preprocess.Downsample = true
	c.Tuning.GridSize = 25
	c.Tuning.RefineBudget = 40
	c.Tuning.StallLimit = 10
	c.Tuning.Cooling = 0.1
	c.Tuning.Workers = runtime.NumCPU()
	c.Report.Threshold = 0.5
	c.Report.OutputDir = "out"
	c.Report.TopN = 15
	c.Log.Level = "info"
	c.Log.Console = true
	return c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "parse config %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks every field the experiment depends on.
func (c Config) Validate() error {
	if c.Data.Path == "" {
		return errors.NewValidationError("data.path", "must be set", c.Data.Path)
	}
	if c.Data.LabelCol == "" {
		return errors.NewValidationError("data.label_column", "must be set", c.Data.LabelCol)
	}
	if c.Split.TrainFraction <= 0 || c.Split.TrainFraction >= 1 {
		return errors.NewValidationError("split.train_fraction", "must be in (0, 1)", c.Split.TrainFraction)
	}
	if c.Split.Folds < 2 {
		return errors.NewValidationError("split.folds", "must be at least 2", c.Split.Folds)
	}
	if c.Tuning.GridSize < 1 {
		return errors.NewValidationError("tuning.grid_size", "must be at least 1", c.Tuning.GridSize)
	}
	if c.Tuning.RefineBudget < 1 {
		return errors.NewValidationError("tuning.refine_budget", "must be at least 1", c.Tuning.RefineBudget)
	}
	if c.Tuning.StallLimit < 1 {
		return errors.NewValidationError("tuning.stall_limit", "must be at least 1", c.Tuning.StallLimit)
	}
	if c.Tuning.Cooling <= 0 {
		return errors.NewValidationError("tuning.cooling", "must be positive", c.Tuning.Cooling)
	}
	if c.Report.Threshold <= 0 || c.Report.Threshold >= 1 {
		return errors.NewValidationError("report.threshold", "must be in (0, 1)", c.Report.Threshold)
	}
	if c.Report.OutputDir == "" {
		return errors.NewValidationError("report.output_dir", "must be set", c.Report.OutputDir)
	}
	for famName, dims := range c.Spaces {
		for dimName, o := range dims {
			if o.Min == nil && o.Max == nil && len(o.Levels) == 0 {
				return errors.NewValidationError("spaces."+famName+"."+dimName, "override sets nothing", nil)
			}
			if len(o.Levels) > 0 && (o.Min != nil || o.Max != nil) {
				return errors.NewValidationError("spaces."+famName+"."+dimName, "levels and a range are mutually exclusive", nil)
			}
		}
	}
	return nil
}
