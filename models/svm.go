package models

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// LinearSVM is a linear support-vector classifier fitted by stochastic
// sub-gradient descent on the hinge loss (Pegasos-style schedule). Margins
// are squashed through a logistic link so PredictProba yields a ranking-
// preserving probability.
type LinearSVM struct {
	model.BaseEstimator

	c      float64
	epochs int
	seed   int64

	coef      []float64
	intercept float64
	nFeatures int
}

// LinearSVMOption configures a LinearSVM.
type LinearSVMOption func(*LinearSVM)

// WithSVMC sets the inverse regularization strength.
func WithSVMC(c float64) LinearSVMOption {
	return func(s *LinearSVM) { s.c = c }
}

// WithSVMEpochs sets the number of passes over the training data.
func WithSVMEpochs(epochs int) LinearSVMOption {
	return func(s *LinearSVM) { s.epochs = epochs }
}

// WithSVMSeed sets the shuffle seed.
func WithSVMSeed(seed int64) LinearSVMOption {
	return func(s *LinearSVM) { s.seed = seed }
}

// NewLinearSVM creates a classifier with C=1 and 10 epochs.
func NewLinearSVM(opts ...LinearSVMOption) *LinearSVM {
	s := &LinearSVM{c: 1.0, epochs: 10}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit trains the model on X and binary labels y.
func (s *LinearSVM) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LinearSVM.Fit")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("LinearSVM.Fit", nSamples, y.Len(), 0)
	}

	s.nFeatures = nFeatures
	s.coef = make([]float64, nFeatures)
	s.intercept = 0

	lambda := 1.0 / (s.c * float64(nSamples))
	r := rand.New(rand.NewPCG(uint64(s.seed), uint64(s.seed)+1))
	order := make([]int, nSamples)
	for i := range order {
		order[i] = i
	}

	t := 0
	for epoch := 0; epoch < s.epochs; epoch++ {
		r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			t++
			eta := 1.0 / (lambda * float64(t))

			// Labels in {-1, +1} for the hinge.
			label := 2*y.AtVec(i) - 1
			margin := s.intercept
			for j := 0; j < nFeatures; j++ {
				margin += X.At(i, j) * s.coef[j]
			}

			for j := range s.coef {
				s.coef[j] *= 1 - eta*lambda
			}
			if label*margin < 1 {
				for j := 0; j < nFeatures; j++ {
					s.coef[j] += eta * label * X.At(i, j) / float64(nSamples)
				}
				s.intercept += eta * label / float64(nSamples)
			}
		}
		if err := errors.CheckNumericalStability("LinearSVM.Fit", s.coef, epoch); err != nil {
			return err
		}
	}

	s.SetFitted()
	return nil
}

// PredictProba returns a logistic squashing of the signed margin per row.
func (s *LinearSVM) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("LinearSVM", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != s.nFeatures {
		return nil, errors.NewDimensionError("LinearSVM.PredictProba", s.nFeatures, nFeatures, 1)
	}

	proba := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		margin := s.intercept
		for j := 0; j < nFeatures; j++ {
			margin += X.At(i, j) * s.coef[j]
		}
		proba.SetVec(i, sigmoid(2*margin))
	}
	return proba, nil
}

// svmFamily adapts LinearSVM to the Family interface.
type svmFamily struct {
	seed  int64
	space Space
}

func defaultSVMSpace() Space {
	return Space{Dims: []Dimension{
		{Name: "c", Kind: Continuous, Lo: 1e-3, Hi: 1e2, Log: true},
		{Name: "epochs", Kind: Discrete, Levels: []float64{5, 10, 20, 40}},
	}}
}

func (f svmFamily) Name() string { return "svm_linear" }

func (f svmFamily) Space() Space { return f.space }

func (f svmFamily) New(p Point) (Classifier, error) {
	if err := f.Space().Validate(p); err != nil {
		return nil, err
	}
	return NewLinearSVM(
		WithSVMC(p["c"]),
		WithSVMEpochs(int(p["epochs"])),
		WithSVMSeed(f.seed),
	), nil
}
