package models

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// LogisticRegression is a binary logistic regression classifier fitted by
// full-batch gradient descent with L2 regularization.
type LogisticRegression struct {
	model.BaseEstimator

	c       float64 // inverse regularization strength
	maxIter int
	tol     float64
	seed    int64

	coef      []float64
	intercept float64
	nFeatures int
}

// LogisticRegressionOption configures a LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.c = c }
}

// WithLRMaxIter sets the gradient descent iteration limit.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithLRTol sets the gradient-norm stopping tolerance.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRSeed sets the weight initialization seed.
func WithLRSeed(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.seed = seed }
}

// NewLogisticRegression creates a classifier with C=1, 200 iterations and
// tolerance 1e-4.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		c:       1.0,
		maxIter: 200,
		tol:     1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit trains the model on X and binary labels y.
func (lr *LogisticRegression) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LogisticRegression.Fit")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, y.Len(), 0)
	}

	lr.nFeatures = nFeatures
	lr.coef = make([]float64, nFeatures)
	lr.intercept = 0
	r := rand.New(rand.NewPCG(uint64(lr.seed), uint64(lr.seed)+1))
	for j := range lr.coef {
		lr.coef[j] = r.NormFloat64() * 0.01
	}

	lambda := 1.0 / lr.c
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		gradW := make([]float64, nFeatures)
		gradB := 0.0
		for i := 0; i < nSamples; i++ {
			z := lr.intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * lr.coef[j]
			}
			residual := sigmoid(z) - y.AtVec(i)
			gradB += residual
			for j := 0; j < nFeatures; j++ {
				gradW[j] += residual * X.At(i, j)
			}
		}
		for j := range gradW {
			gradW[j] = gradW[j]/float64(nSamples) + lambda*lr.coef[j]/float64(nSamples)
		}
		gradB /= float64(nSamples)

		learningRate := 1.0 / (1.0 + 0.1*float64(iter))
		for j := range lr.coef {
			lr.coef[j] -= learningRate * gradW[j]
		}
		lr.intercept -= learningRate * gradB

		if err := errors.CheckNumericalStability("LogisticRegression.Fit", lr.coef, iter); err != nil {
			return err
		}
		if err := errors.CheckScalar("LogisticRegression.Fit", lr.intercept, iter); err != nil {
			return err
		}

		maxGrad := math.Abs(gradB)
		for _, g := range gradW {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter))
	}

	lr.SetFitted()
	return nil
}

// PredictProba returns the positive-class probability for each row of X.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", lr.nFeatures, nFeatures, 1)
	}

	proba := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		z := lr.intercept
		for j := 0; j < nFeatures; j++ {
			z += X.At(i, j) * lr.coef[j]
		}
		proba.SetVec(i, sigmoid(z))
	}
	return proba, nil
}

// Coef returns the fitted weights.
func (lr *LogisticRegression) Coef() []float64 {
	return lr.coef
}

// FeatureImportances reports normalized absolute weights.
func (lr *LogisticRegression) FeatureImportances() []float64 {
	out := make([]float64, len(lr.coef))
	total := 0.0
	for _, w := range lr.coef {
		total += math.Abs(w)
	}
	if total == 0 {
		return out
	}
	for j, w := range lr.coef {
		out[j] = math.Abs(w) / total
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// logregFamily adapts LogisticRegression to the Family interface.
type logregFamily struct {
	seed  int64
	space Space
}

func defaultLogregSpace() Space {
	return Space{Dims: []Dimension{
		{Name: "c", Kind: Continuous, Lo: 1e-3, Hi: 1e2, Log: true},
		{Name: "max_iter", Kind: Discrete, Levels: []float64{100, 200, 400}},
	}}
}

func (f logregFamily) Name() string { return "logreg" }

func (f logregFamily) Space() Space { return f.space }

func (f logregFamily) New(p Point) (Classifier, error) {
	if err := f.Space().Validate(p); err != nil {
		return nil, err
	}
	return NewLogisticRegression(
		WithLRC(p["c"]),
		WithLRMaxIter(int(p["max_iter"])),
		WithLRSeed(f.seed),
	), nil
}
