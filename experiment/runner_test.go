package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aokisawa/riskbench/config"
	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/log"
)

// writeSyntheticCSV emits a linearly separable claims file with one numeric,
// one categorical and one noisy column.
func writeSyntheticCSV(t *testing.T, n int, seed int64) string {
	t.Helper()
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	var b strings.Builder
	b.WriteString("amount,channel,noise,flagged\n")
	for i := 0; i < n; i++ {
		label := "no"
		shift := -2.0
		channel := "web"
		if i%2 == 1 {
			label = "yes"
			shift = 2.0
			channel = "phone"
		}
		fmt.Fprintf(&b, "%.4f,%s,%.4f,%s\n", shift+r.NormFloat64(), channel, r.NormFloat64(), label)
	}

	path := filepath.Join(t.TempDir(), "claims.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(t *testing.T, dataPath string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Path = dataPath
	cfg.Data.LabelCol = "flagged"
	cfg.Split.Folds = 4
	cfg.Tuning.GridSize = 3
	cfg.Tuning.RefineBudget = 4
	cfg.Tuning.StallLimit = 4
	cfg.Tuning.Workers = 2
	cfg.Report.OutputDir = filepath.Join(t.TempDir(), "out")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunnerEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full experiment run")
	}

	dataPath := writeSyntheticCSV(t, 240, 17)
	cfg := testConfig(t, dataPath)

	runner := NewRunner(cfg, log.Default())
	res, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Selection)
	require.NotNil(t, res.Refinement)
	require.NotNil(t, res.Holdout)

	// The clusters are wide apart, so the winner must rank nearly perfectly.
	require.Greater(t, res.Holdout.AUC, 0.95)

	// Refinement never loses ground against the grid winner.
	require.GreaterOrEqual(t, res.Refinement.BestScore, res.Selection.Mean)

	require.NotEmpty(t, res.Importance)

	// Interpretation runs against the features the model was fitted on.
	require.NotNil(t, res.Holdout.XTrain)
	trainRows, _ := res.Holdout.XTrain.Dims()
	require.Equal(t, trainRows, res.Holdout.YTrain.Len())

	// Every artifact lands in the output directory.
	require.NotEmpty(t, res.Artifacts)
	for _, a := range res.Artifacts {
		info, err := os.Stat(a)
		require.NoError(t, err, "artifact %s missing", a)
		require.Greater(t, info.Size(), int64(0))
	}

	summary, err := os.ReadFile(filepath.Join(cfg.Report.OutputDir, "summary.txt"))
	require.NoError(t, err)
	for _, want := range []string{"final model", "holdout AUC", "amount", "rank"} {
		require.Contains(t, string(summary), want)
	}
}

func TestRunnerDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("full experiment run")
	}

	dataPath := writeSyntheticCSV(t, 160, 23)

	run := func() float64 {
		cfg := testConfig(t, dataPath)
		res, err := NewRunner(cfg, log.Default()).Run(context.Background())
		require.NoError(t, err)
		return res.Holdout.AUC
	}

	require.Equal(t, run(), run(), "identical configs must reproduce the holdout AUC")
}

func TestSpaceOverridesReachRegistry(t *testing.T) {
	min, max := 0.5, 2.0
	spaces := map[string]map[string]config.DimOverride{
		"logreg": {"c": {Min: &min, Max: &max}},
	}

	registry, err := models.NewRegistry(1, spaceOverrides(spaces))
	require.NoError(t, err)

	fam, err := models.FindFamily(registry, "logreg")
	require.NoError(t, err)
	c, ok := fam.Space().Dim("c")
	require.True(t, ok)
	require.Equal(t, min, c.Lo)
	require.Equal(t, max, c.Hi)

	require.Nil(t, spaceOverrides(nil))

	// A configured bound outside a dimension's valid form is a fatal
	// configuration error, not a silent fallback.
	bad := map[string]map[string]config.DimOverride{
		"logreg": {"c": {Levels: []float64{1, 2}}},
	}
	_, err = models.NewRegistry(1, spaceOverrides(bad))
	require.Error(t, err)
}

func TestRunnerBadData(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Path = filepath.Join(t.TempDir(), "missing.csv")
	cfg.Data.LabelCol = "flagged"

	_, err := NewRunner(cfg, log.Default()).Run(context.Background())
	require.Error(t, err)
}
