package models

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// DecisionTree is a CART binary classification tree split on Gini impurity.
// Leaves predict the positive-class fraction of their training rows.
type DecisionTree struct {
	model.BaseEstimator

	maxDepth        int
	minSamplesSplit int

	root        *treeNode
	nFeatures   int
	importances []float64
}

type treeNode struct {
	leaf      bool
	proba     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// DecisionTreeOption configures a DecisionTree.
type DecisionTreeOption func(*DecisionTree)

// WithTreeMaxDepth sets the maximum tree depth.
func WithTreeMaxDepth(depth int) DecisionTreeOption {
	return func(t *DecisionTree) { t.maxDepth = depth }
}

// WithTreeMinSamplesSplit sets the minimum rows required to split a node.
func WithTreeMinSamplesSplit(n int) DecisionTreeOption {
	return func(t *DecisionTree) { t.minSamplesSplit = n }
}

// NewDecisionTree creates a tree with depth 6 and minimum split size 2.
func NewDecisionTree(opts ...DecisionTreeOption) *DecisionTree {
	t := &DecisionTree{maxDepth: 6, minSamplesSplit: 2}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit grows the tree on X and binary labels y.
func (t *DecisionTree) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTree.Fit")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("DecisionTree.Fit", nSamples, y.Len(), 0)
	}

	t.nFeatures = nFeatures
	t.importances = make([]float64, nFeatures)
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	t.root = t.build(X, y, indices, 0, nSamples)

	t.SetFitted()
	return nil
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func (t *DecisionTree) build(X mat.Matrix, y *mat.VecDense, indices []int, depth, nTotal int) *treeNode {
	pos := 0
	for _, i := range indices {
		pos += int(y.AtVec(i))
	}
	node := &treeNode{proba: float64(pos) / float64(len(indices))}

	impurity := gini(pos, len(indices))
	if depth >= t.maxDepth || len(indices) < t.minSamplesSplit || pos == 0 || pos == len(indices) {
		node.leaf = true
		return node
	}

	feature, threshold, decrease := t.bestSplit(X, y, indices, impurity)
	if decrease <= 0 {
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
	if len(left) == 0 || len(right) == 0 {
		node.leaf = true
		return node
	}

	node.feature = feature
	node.threshold = threshold
	t.importances[feature] += float64(len(indices)) / float64(nTotal) * decrease
	node.left = t.build(X, y, left, depth+1, nTotal)
	node.right = t.build(X, y, right, depth+1, nTotal)
	return node
}

// bestSplit scans every feature's sorted values for the threshold with the
// greatest weighted Gini decrease.
func (t *DecisionTree) bestSplit(X mat.Matrix, y *mat.VecDense, indices []int, parentImpurity float64) (int, float64, float64) {
	n := len(indices)
	bestFeature, bestThreshold, bestDecrease := -1, 0.0, 0.0

	type sample struct {
		value float64
		label int
	}
	samples := make([]sample, n)

	for feature := 0; feature < t.nFeatures; feature++ {
		for k, i := range indices {
			samples[k] = sample{value: X.At(i, feature), label: int(y.AtVec(i))}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].value < samples[b].value })

		posLeft, posTotal := 0, 0
		for _, s := range samples {
			posTotal += s.label
		}
		for k := 0; k < n-1; k++ {
			posLeft += samples[k].label
			if samples[k].value == samples[k+1].value {
				continue
			}
			nLeft := k + 1
			nRight := n - nLeft
			weighted := float64(nLeft)/float64(n)*gini(posLeft, nLeft) +
				float64(nRight)/float64(n)*gini(posTotal-posLeft, nRight)
			decrease := parentImpurity - weighted
			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = (samples[k].value + samples[k+1].value) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestDecrease
}

// PredictProba returns the leaf positive-class fraction for each row of X.
func (t *DecisionTree) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTree", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != t.nFeatures {
		return nil, errors.NewDimensionError("DecisionTree.PredictProba", t.nFeatures, nFeatures, 1)
	}

	proba := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		node := t.root
		for !node.leaf {
			if X.At(i, node.feature) <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		proba.SetVec(i, node.proba)
	}
	return proba, nil
}

// FeatureImportances reports normalized impurity decrease per feature.
func (t *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, len(t.importances))
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for j, v := range t.importances {
		out[j] = v / total
	}
	return out
}

// treeFamily adapts DecisionTree to the Family interface.
type treeFamily struct {
	space Space
}

func defaultTreeSpace() Space {
	return Space{Dims: []Dimension{
		{Name: "max_depth", Kind: Discrete, Levels: []float64{2, 3, 4, 6, 8, 10}},
		{Name: "min_samples_split", Kind: Discrete, Levels: []float64{2, 5, 10, 20}},
	}}
}

func (f treeFamily) Name() string { return "tree" }

func (f treeFamily) Space() Space { return f.space }

func (f treeFamily) New(p Point) (Classifier, error) {
	if err := f.Space().Validate(p); err != nil {
		return nil, err
	}
	return NewDecisionTree(
		WithTreeMaxDepth(int(p["max_depth"])),
		WithTreeMinSamplesSplit(int(p["min_samples_split"])),
	), nil
}
