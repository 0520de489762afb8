// Package tuning implements the experiment core: cross-validated evaluation of
// hyperparameter candidates on a worker pool, space-filling grid search,
// simulated-annealing refinement and the final selector.
package tuning

import (
	"context"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aokisawa/riskbench/core/parallel"
	"github.com/aokisawa/riskbench/dataset"
	"github.com/aokisawa/riskbench/metrics"
	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
	"github.com/aokisawa/riskbench/preprocessing"
)

// PipelineFactory builds a fresh feature pipeline for one fit/score task.
// Each task gets its own pipeline so no statistics leak between folds.
type PipelineFactory func(seed int64) *preprocessing.Pipeline

// ScoreRecord is the outcome of one (candidate, fold) fit/score task.
type ScoreRecord struct {
	Family string
	Point  models.Point
	Fold   int
	AUC    float64
	Err    error
}

// Aggregate is a candidate's cross-fold summary. A candidate with any failed
// fold is Incomplete and carries the failure reasons; incomplete candidates
// are excluded from selection.
type Aggregate struct {
	Family     string
	Point      models.Point
	FoldScores []float64
	Mean       float64
	Std        float64
	Incomplete bool
	Failures   []string
}

// Variance returns the cross-fold sample variance of the metric.
func (a Aggregate) Variance() float64 {
	return a.Std * a.Std
}

// Orchestrator runs (fold, candidate) fit/score tasks in parallel and merges
// their scores. It is the explicit execution context for a tuning phase:
// worker pool, base seed and logger travel with it rather than through any
// process-wide state.
type Orchestrator struct {
	pool        *parallel.Pool
	seed        int64
	logger      zerolog.Logger
	newPipeline PipelineFactory
}

// NewOrchestrator creates an orchestrator with the given worker count (<1
// selects the logical core count), base seed and pipeline factory.
func NewOrchestrator(workers int, seed int64, logger zerolog.Logger, factory PipelineFactory) *Orchestrator {
	if factory == nil {
		factory = func(seed int64) *preprocessing.Pipeline {
			return preprocessing.NewPipeline(preprocessing.WithSeed(seed))
		}
	}
	return &Orchestrator{
		pool:        parallel.NewPool(workers),
		seed:        seed,
		logger:      logger,
		newPipeline: factory,
	}
}

// Evaluate scores every candidate point on every fold and aggregates by
// candidate. Individual fit failures are recorded against their candidate and
// never abort sibling tasks; the error return covers invalid inputs only.
func (o *Orchestrator) Evaluate(ctx context.Context, ds *dataset.Dataset, folds []dataset.Fold, fam models.Family, points []models.Point) ([]Aggregate, error) {
	if len(folds) == 0 {
		return nil, errors.NewValidationError("folds", "must not be empty", len(folds))
	}
	if len(points) == 0 {
		return nil, errors.NewValidationError("points", "must not be empty", len(points))
	}

	nFolds := len(folds)
	records := make([]ScoreRecord, len(points)*nFolds)

	taskErrs := o.pool.Run(ctx, len(records), func(t int) error {
		pi, fi := t/nFolds, t%nFolds
		auc, err := o.evalTask(ds, folds[fi], fam, points[pi], o.seed+int64(t))
		records[t] = ScoreRecord{
			Family: fam.Name(),
			Point:  points[pi],
			Fold:   fi,
			AUC:    auc,
		}
		return err
	})
	for t, err := range taskErrs {
		if err != nil {
			records[t].Err = err
		}
	}

	aggs := make([]Aggregate, len(points))
	for pi, point := range points {
		agg := Aggregate{
			Family:     fam.Name(),
			Point:      point,
			FoldScores: make([]float64, 0, nFolds),
		}
		for fi := 0; fi < nFolds; fi++ {
			rec := records[pi*nFolds+fi]
			if rec.Err != nil {
				agg.Incomplete = true
				agg.Failures = append(agg.Failures, rec.Err.Error())
				continue
			}
			agg.FoldScores = append(agg.FoldScores, rec.AUC)
		}
		if !agg.Incomplete {
			agg.Mean = stat.Mean(agg.FoldScores, nil)
			agg.Std = stat.StdDev(agg.FoldScores, nil)
		}
		o.logger.Debug().
			Str("family", agg.Family).
			Str("point", point.Key()).
			Float64("mean_auc", agg.Mean).
			Bool("incomplete", agg.Incomplete).
			Msg("candidate evaluated")
		aggs[pi] = agg
	}

	excluded := 0
	for _, agg := range aggs {
		if agg.Incomplete {
			excluded++
		}
	}
	o.logger.Info().
		Str("family", fam.Name()).
		Int("candidates", len(points)).
		Int("folds", nFolds).
		Int("excluded", excluded).
		Msg("evaluation phase complete")

	return aggs, nil
}

// evalTask runs one fold of one candidate: pipeline fitted on the fold's
// training portion only, model fitted on the transformed (and down-sampled)
// training data, AUC scored on the transformed validation portion.
func (o *Orchestrator) evalTask(ds *dataset.Dataset, fold dataset.Fold, fam models.Family, point models.Point, seed int64) (float64, error) {
	trainDS := ds.Subset(fold.Train)
	valDS := ds.Subset(fold.Val)

	pipe := o.newPipeline(seed)
	X, y, err := pipe.FitTransform(trainDS)
	if err != nil {
		return 0, errors.Wrap(err, "pipeline fit")
	}

	clf, err := fam.New(point)
	if err != nil {
		return 0, err
	}
	if err := clf.Fit(X, y); err != nil {
		return 0, errors.Wrap(err, "model fit")
	}

	Xv, yv, err := pipe.Transform(valDS)
	if err != nil {
		return 0, errors.Wrap(err, "pipeline transform")
	}
	proba, err := clf.PredictProba(Xv)
	if err != nil {
		return 0, errors.Wrap(err, "predict")
	}
	return metrics.AUC(yv, proba)
}
