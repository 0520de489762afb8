package models

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// GradientBoosting is a gradient-boosted ensemble of shallow regression trees
// on the logistic loss. Each round fits a tree to the gradient with
// Newton-step leaf values, regularized by a fixed L2 term.
type GradientBoosting struct {
	model.BaseEstimator

	nRounds      int
	learningRate float64
	maxDepth     int
	seed         int64

	baseScore   float64
	trees       []*regNode
	nFeatures   int
	importances []float64
}

const (
	gbtLambda     = 1.0 // L2 on leaf values
	gbtMinSamples = 5   // minimum rows per leaf
)

type regNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *regNode
	right     *regNode
}

// GradientBoostingOption configures a GradientBoosting.
type GradientBoostingOption func(*GradientBoosting)

// WithGBTRounds sets the number of boosting rounds.
func WithGBTRounds(n int) GradientBoostingOption {
	return func(g *GradientBoosting) { g.nRounds = n }
}

// WithGBTLearningRate sets the shrinkage applied to each tree.
func WithGBTLearningRate(lr float64) GradientBoostingOption {
	return func(g *GradientBoosting) { g.learningRate = lr }
}

// WithGBTMaxDepth sets the per-tree depth limit.
func WithGBTMaxDepth(depth int) GradientBoostingOption {
	return func(g *GradientBoosting) { g.maxDepth = depth }
}

// WithGBTSeed sets the seed. Present for registry symmetry; training itself
// is deterministic.
func WithGBTSeed(seed int64) GradientBoostingOption {
	return func(g *GradientBoosting) { g.seed = seed }
}

// NewGradientBoosting creates an ensemble with 100 rounds, learning rate 0.1
// and depth-3 trees.
func NewGradientBoosting(opts ...GradientBoostingOption) *GradientBoosting {
	g := &GradientBoosting{nRounds: 100, learningRate: 0.1, maxDepth: 3}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fit trains the ensemble on X and binary labels y.
func (g *GradientBoosting) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GradientBoosting.Fit")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("GradientBoosting.Fit", nSamples, y.Len(), 0)
	}

	g.nFeatures = nFeatures
	g.importances = make([]float64, nFeatures)
	g.trees = g.trees[:0]

	// Base score is the training log-odds, clipped away from the degenerate
	// single-class case.
	pos := 0.0
	for i := 0; i < nSamples; i++ {
		pos += y.AtVec(i)
	}
	p := pos / float64(nSamples)
	if p < 1e-6 {
		p = 1e-6
	}
	if p > 1-1e-6 {
		p = 1 - 1e-6
	}
	g.baseScore = math.Log(p / (1 - p))

	scores := make([]float64, nSamples)
	for i := range scores {
		scores[i] = g.baseScore
	}

	grad := make([]float64, nSamples)
	hess := make([]float64, nSamples)
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	for round := 0; round < g.nRounds; round++ {
		for i := 0; i < nSamples; i++ {
			pi := sigmoid(scores[i])
			grad[i] = pi - y.AtVec(i)
			hess[i] = pi * (1 - pi)
		}

		tree := g.buildTree(X, grad, hess, indices, 0)
		g.trees = append(g.trees, tree)

		for i := 0; i < nSamples; i++ {
			scores[i] += g.learningRate * predictTree(tree, X, i)
		}
		if err := errors.CheckNumericalStability("GradientBoosting.Fit", scores[:min(nSamples, 16)], round); err != nil {
			return err
		}
	}

	g.SetFitted()
	return nil
}

// buildTree grows one regression tree on the current gradient and hessian,
// using the Newton gain criterion for splits and Newton-step leaf values.
func (g *GradientBoosting) buildTree(X mat.Matrix, grad, hess []float64, indices []int, depth int) *regNode {
	var sumG, sumH float64
	for _, i := range indices {
		sumG += grad[i]
		sumH += hess[i]
	}
	node := &regNode{value: -sumG / (sumH + gbtLambda)}

	if depth >= g.maxDepth || len(indices) < 2*gbtMinSamples {
		node.leaf = true
		return node
	}

	feature, threshold, gain := g.bestSplit(X, grad, hess, indices, sumG, sumH)
	if gain <= 0 {
		node.leaf = true
		return node
	}

	var left, right []int
	for _, i := range indices {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < gbtMinSamples || len(right) < gbtMinSamples {
		node.leaf = true
		return node
	}

	node.feature = feature
	node.threshold = threshold
	g.importances[feature] += gain
	node.left = g.buildTree(X, grad, hess, left, depth+1)
	node.right = g.buildTree(X, grad, hess, right, depth+1)
	return node
}

func (g *GradientBoosting) bestSplit(X mat.Matrix, grad, hess []float64, indices []int, sumG, sumH float64) (int, float64, float64) {
	n := len(indices)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	parentScore := sumG * sumG / (sumH + gbtLambda)

	type sample struct {
		value float64
		g, h  float64
	}
	samples := make([]sample, n)

	for feature := 0; feature < g.nFeatures; feature++ {
		for k, i := range indices {
			samples[k] = sample{value: X.At(i, feature), g: grad[i], h: hess[i]}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].value < samples[b].value })

		var gl, hl float64
		for k := 0; k < n-1; k++ {
			gl += samples[k].g
			hl += samples[k].h
			if samples[k].value == samples[k+1].value {
				continue
			}
			if k+1 < gbtMinSamples || n-k-1 < gbtMinSamples {
				continue
			}
			gr := sumG - gl
			hr := sumH - hl
			gain := gl*gl/(hl+gbtLambda) + gr*gr/(hr+gbtLambda) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (samples[k].value + samples[k+1].value) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func predictTree(node *regNode, X mat.Matrix, row int) float64 {
	for !node.leaf {
		if X.At(row, node.feature) <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

// PredictProba returns the positive-class probability for each row of X.
func (g *GradientBoosting) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoosting", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != g.nFeatures {
		return nil, errors.NewDimensionError("GradientBoosting.PredictProba", g.nFeatures, nFeatures, 1)
	}

	proba := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		score := g.baseScore
		for _, tree := range g.trees {
			score += g.learningRate * predictTree(tree, X, i)
		}
		proba.SetVec(i, sigmoid(score))
	}
	return proba, nil
}

// FeatureImportances reports normalized split gain per feature.
func (g *GradientBoosting) FeatureImportances() []float64 {
	out := make([]float64, len(g.importances))
	total := 0.0
	for _, v := range g.importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for j, v := range g.importances {
		out[j] = v / total
	}
	return out
}

// gbtFamily adapts GradientBoosting to the Family interface.
type gbtFamily struct {
	seed  int64
	space Space
}

func defaultGBTSpace() Space {
	return Space{Dims: []Dimension{
		{Name: "n_rounds", Kind: Discrete, Levels: []float64{25, 50, 100, 200}},
		{Name: "learning_rate", Kind: Continuous, Lo: 0.01, Hi: 0.3, Log: true},
		{Name: "max_depth", Kind: Discrete, Levels: []float64{1, 2, 3, 4}},
	}}
}

func (f gbtFamily) Name() string { return "gbt" }

func (f gbtFamily) Space() Space { return f.space }

func (f gbtFamily) New(p Point) (Classifier, error) {
	if err := f.Space().Validate(p); err != nil {
		return nil, err
	}
	return NewGradientBoosting(
		WithGBTRounds(int(p["n_rounds"])),
		WithGBTLearningRate(p["learning_rate"]),
		WithGBTMaxDepth(int(p["max_depth"])),
		WithGBTSeed(f.seed),
	), nil
}
