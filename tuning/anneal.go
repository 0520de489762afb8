package tuning

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// AnnealConfig controls the simulated-annealing refinement phase.
type AnnealConfig struct {
	// Budget is the maximum number of proposal iterations.
	Budget int
	// StallLimit terminates the search after this many consecutive
	// non-improving, non-accepted iterations.
	StallLimit int
	// Cooling is the cooling coefficient: T(i) = InitTemp / (1 + Cooling*i).
	Cooling float64
	// InitTemp is the starting temperature on the metric scale.
	InitTemp float64
	// Radius is the base perturbation radius in normalized parameter space;
	// the effective radius shrinks as the temperature cools.
	Radius float64
	// Seed drives proposal and acceptance draws.
	Seed int64
}

// DefaultAnnealConfig mirrors the documented defaults: 40 iterations, stall
// limit 10, cooling coefficient 0.1.
func DefaultAnnealConfig(seed int64) AnnealConfig {
	return AnnealConfig{
		Budget:     40,
		StallLimit: 10,
		Cooling:    0.1,
		InitTemp:   0.05,
		Radius:     0.2,
		Seed:       seed,
	}
}

// EvalFunc scores one candidate point across all folds and returns its
// aggregate metric. The refinement loop is sequential; implementations
// parallelize internally across folds.
type EvalFunc func(ctx context.Context, p models.Point) (float64, error)

// IterationRecord is one refinement iteration, for the
// performance-vs-iteration artifact.
type IterationRecord struct {
	Iter     int
	Point    models.Point
	Score    float64
	Accepted bool
	Best     float64
	Failure  string
}

// AnnealResult is the outcome of a refinement run.
type AnnealResult struct {
	Best       models.Point
	BestScore  float64
	Trace      []IterationRecord
	Iterations int
	Stalled    bool
}

// Anneal refines a starting point by bounded local search with
// simulated-annealing acceptance: better neighbors are always accepted, worse
// ones with probability exp(-(current-neighbor)/T). It returns the best point
// ever observed, which is non-decreasing in the number of iterations run.
func Anneal(ctx context.Context, space models.Space, start models.Point, startScore float64, eval EvalFunc, cfg AnnealConfig, logger zerolog.Logger) (*AnnealResult, error) {
	if err := space.Validate(start); err != nil {
		return nil, err
	}
	if cfg.Budget < 1 {
		return nil, errors.NewValidationError("refine_budget", "must be at least 1", cfg.Budget)
	}
	if cfg.StallLimit < 1 {
		return nil, errors.NewValidationError("stall_limit", "must be at least 1", cfg.StallLimit)
	}
	if cfg.InitTemp <= 0 {
		cfg.InitTemp = 0.05
	}
	if cfg.Radius <= 0 {
		cfg.Radius = 0.2
	}

	r := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)+1))
	result := &AnnealResult{
		Best:      start.Clone(),
		BestScore: startScore,
	}
	current := start.Clone()
	currentScore := startScore
	stall := 0

	for iter := 0; iter < cfg.Budget; iter++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Iterations = iter + 1

		temp := cfg.InitTemp / (1 + cfg.Cooling*float64(iter))
		neighbor := propose(space, current, cfg.Radius, temp/cfg.InitTemp, r)

		rec := IterationRecord{Iter: iter, Point: neighbor}
		score, err := eval(ctx, neighbor)
		if err != nil {
			// Failed evaluation counts as a rejected proposal.
			rec.Failure = err.Error()
			rec.Best = result.BestScore
			result.Trace = append(result.Trace, rec)
			stall++
			if stall >= cfg.StallLimit {
				result.Stalled = true
				break
			}
			continue
		}
		rec.Score = score

		if score > result.BestScore {
			result.BestScore = score
			result.Best = neighbor.Clone()
		}

		switch {
		case score > currentScore:
			current = neighbor
			currentScore = score
			rec.Accepted = true
			stall = 0
		case r.Float64() < math.Exp(-(currentScore-score)/temp):
			current = neighbor
			currentScore = score
			rec.Accepted = true
			stall++
		default:
			stall++
		}

		rec.Best = result.BestScore
		result.Trace = append(result.Trace, rec)

		logger.Debug().
			Int("iter", iter).
			Str("point", neighbor.Key()).
			Float64("score", score).
			Bool("accepted", rec.Accepted).
			Float64("best", result.BestScore).
			Msg("refinement iteration")

		if stall >= cfg.StallLimit {
			result.Stalled = true
			break
		}
	}

	logger.Info().
		Int("iterations", result.Iterations).
		Bool("stalled", result.Stalled).
		Float64("best_score", result.BestScore).
		Str("best_point", result.Best.Key()).
		Msg("refinement complete")

	return result, nil
}

// propose perturbs at least one dimension of p with a Gaussian step in
// normalized space, its width scaled by the base radius and the cooling
// fraction.
func propose(space models.Space, p models.Point, radius, coolFrac float64, r *rand.Rand) models.Point {
	effRadius := radius * (0.25 + 0.75*coolFrac)
	neighbor := p.Clone()
	changed := false
	for _, dim := range space.Dims {
		if r.Float64() >= 0.5 {
			continue
		}
		perturb(dim, neighbor, effRadius, r)
		changed = true
	}
	if !changed {
		dim := space.Dims[r.IntN(len(space.Dims))]
		perturb(dim, neighbor, effRadius, r)
	}
	return neighbor
}

func perturb(dim models.Dimension, p models.Point, effRadius float64, r *rand.Rand) {
	u := dim.ToUnit(p[dim.Name]) + r.NormFloat64()*effRadius
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	p[dim.Name] = dim.FromUnit(u)
}
