package model

import "gonum.org/v1/gonum/mat"

// Transformer is a feature transformation that learns its statistics from
// training data in Fit and applies them unchanged in Transform.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// Fitter is any component trainable from a feature matrix and a label vector.
type Fitter interface {
	Fit(X mat.Matrix, y *mat.VecDense) error
}

// ProbaPredictor produces positive-class probabilities for binary
// classification, one per input row.
type ProbaPredictor interface {
	PredictProba(X mat.Matrix) (*mat.VecDense, error)
}

// Importancer exposes a per-feature global importance score from a fitted
// model. Families without a native notion of importance omit it; callers fall
// back to permutation importance.
type Importancer interface {
	FeatureImportances() []float64
}
