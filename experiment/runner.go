// Package experiment drives the full comparison study: split, per-family
// grid search, winner refinement, final holdout assessment, interpretation
// and report rendering.
package experiment

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aokisawa/riskbench/config"
	"github.com/aokisawa/riskbench/dataset"
	"github.com/aokisawa/riskbench/evaluate"
	"github.com/aokisawa/riskbench/interpret"
	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
	"github.com/aokisawa/riskbench/preprocessing"
	"github.com/aokisawa/riskbench/report"
	"github.com/aokisawa/riskbench/tuning"
)

// Runner executes one experiment from a validated configuration.
type Runner struct {
	cfg    config.Config
	logger zerolog.Logger
}

// Result collects what the run produced, for callers that inspect the
// outcome beyond the written artifacts.
type Result struct {
	Selection       *tuning.Selection
	Refinement      *tuning.AnnealResult
	Holdout         *evaluate.Result
	Importance      []interpret.Importance
	ModelImportance []interpret.Importance
	Artifacts       []string
}

func NewRunner(cfg config.Config, logger zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run executes the whole study. Fatal errors are configuration or data
// problems; individual candidate failures are absorbed into the comparison
// as excluded candidates.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.cfg

	ds, err := dataset.FromCSVFile(cfg.Data.Path, cfg.Data.LabelCol)
	if err != nil {
		return nil, err
	}
	counts := ds.ClassCounts()
	r.logger.Info().
		Int("records", ds.NRows()).
		Int("features", ds.NCols()).
		Ints("class_counts", counts[:]).
		Msg("dataset loaded")

	train, test, err := dataset.TrainTestSplit(ds, cfg.Split.TrainFraction, cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	folds, err := dataset.StratifiedKFold(train, cfg.Split.Folds, cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Int("train", train.NRows()).
		Int("test", test.NRows()).
		Int("folds", len(folds)).
		Msg("data partitioned")

	factory := r.pipelineFactory()
	orch := tuning.NewOrchestrator(cfg.Tuning.Workers, cfg.Split.Seed, r.logger, factory)
	registry, err := models.NewRegistry(cfg.Split.Seed, spaceOverrides(cfg.Spaces))
	if err != nil {
		return nil, err
	}

	// Phase 1: space-filling grid search per family.
	var all []tuning.Aggregate
	for _, fam := range registry {
		points, err := tuning.GridDesign(fam.Space(), cfg.Tuning.GridSize, cfg.Split.Seed)
		if err != nil {
			return nil, errors.Wrapf(err, "grid design for %s", fam.Name())
		}
		r.logger.Info().
			Str("family", fam.Name()).
			Int("candidates", len(points)).
			Msg("grid search")
		aggs, err := orch.Evaluate(ctx, train, folds, fam, points)
		if err != nil {
			return nil, err
		}
		all = append(all, aggs...)
	}

	sel, err := tuning.Select(all)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Str("family", sel.Family).
		Str("point", sel.Point.Key()).
		Float64("mean_auc", sel.Mean).
		Msg("grid winner")

	// Phase 2: refine the winner by simulated annealing.
	fam, err := models.FindFamily(registry, sel.Family)
	if err != nil {
		return nil, err
	}
	annealCfg := tuning.DefaultAnnealConfig(cfg.Split.Seed)
	annealCfg.Budget = cfg.Tuning.RefineBudget
	annealCfg.StallLimit = cfg.Tuning.StallLimit
	annealCfg.Cooling = cfg.Tuning.Cooling
	refined, err := tuning.Anneal(ctx, fam.Space(), sel.Point, sel.Mean, r.evalFunc(orch, train, folds, fam), annealCfg, r.logger)
	if err != nil {
		return nil, err
	}

	finalPoint := refined.Best
	r.logger.Info().
		Str("point", finalPoint.Key()).
		Float64("mean_auc", refined.BestScore).
		Msg("refined winner")

	// Phase 3: single holdout assessment.
	holdout, err := evaluate.Holdout(train, test, fam, finalPoint, factory(cfg.Split.Seed), cfg.Report.Threshold)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Float64("holdout_auc", holdout.AUC).
		Msg("holdout evaluation")

	// Phase 4: interpretation against the baked training features.
	imps, err := interpret.PermutationImportance(holdout.Model, holdout.XTrain, holdout.YTrain, holdout.Features, 5, cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	modelImps, hasModelImps := interpret.ModelImportances(holdout.Model, holdout.Features)
	if hasModelImps {
		r.logger.Info().Str("family", holdout.Family).Msg("model reports intrinsic importances")
	}

	res := &Result{
		Selection:       sel,
		Refinement:      refined,
		Holdout:         holdout,
		Importance:      imps,
		ModelImportance: modelImps,
	}
	if err := r.render(ds, all, res); err != nil {
		return nil, err
	}
	return res, nil
}

// spaceOverrides converts the configured spaces section into the registry's
// override form.
func spaceOverrides(spaces map[string]map[string]config.DimOverride) models.SpaceOverrides {
	if len(spaces) == 0 {
		return nil
	}
	out := make(models.SpaceOverrides, len(spaces))
	for famName, dims := range spaces {
		fam := make(map[string]models.Override, len(dims))
		for dimName, o := range dims {
			fam[dimName] = models.Override{Lo: o.Min, Hi: o.Max, Levels: o.Levels}
		}
		out[famName] = fam
	}
	return out
}

func (r *Runner) pipelineFactory() tuning.PipelineFactory {
	downsample := r.cfg.Preprocess.Downsample
	return func(seed int64) *preprocessing.Pipeline {
		return preprocessing.NewPipeline(
			preprocessing.WithSeed(seed),
			preprocessing.WithDownsample(downsample),
		)
	}
}

// evalFunc adapts the orchestrator to the sequential refinement loop: one
// point, all folds, mean AUC. An incomplete candidate is an evaluation error
// so the loop treats it as a rejected proposal.
func (r *Runner) evalFunc(orch *tuning.Orchestrator, train *dataset.Dataset, folds []dataset.Fold, fam models.Family) tuning.EvalFunc {
	return func(ctx context.Context, p models.Point) (float64, error) {
		aggs, err := orch.Evaluate(ctx, train, folds, fam, []models.Point{p})
		if err != nil {
			return 0, err
		}
		if aggs[0].Incomplete {
			return 0, errors.NewIncompleteCandidateError(fam.Name(), p.Key(), aggs[0].Failures)
		}
		return aggs[0].Mean, nil
	}
}

// render writes every plot and table under the configured output directory.
func (r *Runner) render(ds *dataset.Dataset, all []tuning.Aggregate, res *Result) error {
	dir := r.cfg.Report.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output dir %s", dir)
	}

	pl := report.NewPlotter(dir)
	artifacts := make([]string, 0, 8)

	path, err := pl.ROC(res.Holdout.ROC, res.Holdout.AUC, "roc.png")
	if err != nil {
		return err
	}
	artifacts = append(artifacts, path)

	path, err = pl.Refinement(res.Refinement.Trace, "refinement.png")
	if err != nil {
		return err
	}
	artifacts = append(artifacts, path)

	path, err = pl.Importances(res.Importance, r.cfg.Report.TopN, "importance.png")
	if err != nil {
		return err
	}
	artifacts = append(artifacts, path)

	// Partial dependence for the strongest features.
	pdCount := 3
	if pdCount > len(res.Importance) {
		pdCount = len(res.Importance)
	}
	for i := 0; i < pdCount; i++ {
		feat := res.Importance[i].Feature
		col := featureIndex(res.Holdout.Features, feat)
		if col < 0 {
			continue
		}
		curve, err := interpret.PartialDependence(res.Holdout.Model, res.Holdout.XTrain, col, 20)
		if err != nil {
			return err
		}
		path, err = pl.PartialDependence(feat, curve, "pd_"+sanitize(feat)+".png")
		if err != nil {
			return err
		}
		artifacts = append(artifacts, path)
	}

	summary := filepath.Join(dir, "summary.txt")
	f, err := os.Create(summary)
	if err != nil {
		return errors.Wrapf(err, "create %s", summary)
	}
	defer f.Close()

	if err := report.WriteDescription(f, ds); err != nil {
		return err
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	if err := report.WriteComparison(f, all); err != nil {
		return err
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	if err := report.WriteHoldout(f, res.Holdout, ds.ClassNames()); err != nil {
		return err
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	if err := report.WriteImportances(f, res.Importance, r.cfg.Report.TopN); err != nil {
		return err
	}
	if len(res.ModelImportance) > 0 {
		if _, err := f.WriteString("\nmodel-reported importances\n"); err != nil {
			return err
		}
		if err := report.WriteModelImportances(f, res.ModelImportance, r.cfg.Report.TopN); err != nil {
			return err
		}
	}
	artifacts = append(artifacts, summary)

	res.Artifacts = artifacts
	r.logger.Info().Strs("artifacts", artifacts).Msg("report written")
	return nil
}

func featureIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
