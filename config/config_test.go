package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riskbench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
data:
  path: data/claims.csv
  label_column: defaulted
split:
  train_fraction: 0.8
  folds: 5
  seed: 7
tuning:
  grid_size: 10
  workers: 2
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Data.Path != "data/claims.csv" || cfg.Data.LabelCol != "defaulted" {
		t.Errorf("data section = %+v, want claims.csv/defaulted", cfg.Data)
	}
	if cfg.Split.TrainFraction != 0.8 || cfg.Split.Folds != 5 || cfg.Split.Seed != 7 {
		t.Errorf("split section = %+v, want overridden values", cfg.Split)
	}
	if cfg.Tuning.GridSize != 10 || cfg.Tuning.Workers != 2 {
		t.Errorf("tuning section = %+v, want overridden values", cfg.Tuning)
	}

	// Unset fields keep their defaults.
	if cfg.Tuning.RefineBudget != 40 || cfg.Tuning.StallLimit != 10 || cfg.Tuning.Cooling != 0.1 {
		t.Errorf("refinement defaults = %+v, want 40/10/0.1", cfg.Tuning)
	}
	if cfg.Report.Threshold != 0.5 {
		t.Errorf("threshold = %v, want 0.5", cfg.Report.Threshold)
	}
	if !cfg.Preprocess.Downsample {
		t.Errorf("downsample default = false, want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadSpaces(t *testing.T) {
	path := writeConfig(t, `
data:
  path: data/claims.csv
  label_column: defaulted
spaces:
  logreg:
    c:
      min: 0.01
      max: 10
  tree:
    max_depth:
      levels: [3, 5, 7]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	c, ok := cfg.Spaces["logreg"]["c"]
	if !ok {
		t.Fatal("spaces.logreg.c missing after load")
	}
	if c.Min == nil || *c.Min != 0.01 || c.Max == nil || *c.Max != 10 {
		t.Errorf("spaces.logreg.c = %+v, want min 0.01 max 10", c)
	}
	depth := cfg.Spaces["tree"]["max_depth"]
	if len(depth.Levels) != 3 || depth.Levels[1] != 5 {
		t.Errorf("spaces.tree.max_depth.levels = %v, want [3 5 7]", depth.Levels)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load() error = nil for missing file, want error")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "data: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Errorf("Load() error = nil for malformed YAML, want error")
	}
}

func TestDefaultWorkers(t *testing.T) {
	if got := Default().Tuning.Workers; got != runtime.NumCPU() {
		t.Errorf("default workers = %d, want %d", got, runtime.NumCPU())
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Data.Path = "x.csv"
	valid.Data.LabelCol = "y"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing path", func(c *Config) { c.Data.Path = "" }},
		{"missing label", func(c *Config) { c.Data.LabelCol = "" }},
		{"train fraction at 1", func(c *Config) { c.Split.TrainFraction = 1 }},
		{"train fraction negative", func(c *Config) { c.Split.TrainFraction = -0.2 }},
		{"single fold", func(c *Config) { c.Split.Folds = 1 }},
		{"zero grid", func(c *Config) { c.Tuning.GridSize = 0 }},
		{"zero budget", func(c *Config) { c.Tuning.RefineBudget = 0 }},
		{"zero stall limit", func(c *Config) { c.Tuning.StallLimit = 0 }},
		{"non-positive cooling", func(c *Config) { c.Tuning.Cooling = 0 }},
		{"threshold at 0", func(c *Config) { c.Report.Threshold = 0 }},
		{"empty output dir", func(c *Config) { c.Report.OutputDir = "" }},
		{"empty space override", func(c *Config) {
			c.Spaces = map[string]map[string]DimOverride{"logreg": {"c": {}}}
		}},
		{"levels and range together", func(c *Config) {
			min := 0.1
			c.Spaces = map[string]map[string]DimOverride{"logreg": {"c": {Min: &min, Levels: []float64{1}}}}
		}},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid config error = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("Validate() error = nil, want error")
			}
		})
	}
}
