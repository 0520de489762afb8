package models

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// GaussianNB is a Gaussian naive Bayes classifier. All likelihood work is done
// in log space; per-class variances are smoothed by varSmoothing times the
// largest feature variance.
type GaussianNB struct {
	model.BaseEstimator

	varSmoothing float64

	logPrior  [2]float64
	means     [2][]float64
	vars      [2][]float64
	nFeatures int
}

// NewGaussianNB creates a classifier with the given variance smoothing
// factor; values at or below zero fall back to 1e-9.
func NewGaussianNB(varSmoothing float64) *GaussianNB {
	if varSmoothing <= 0 {
		varSmoothing = 1e-9
	}
	return &GaussianNB{varSmoothing: varSmoothing}
}

// Fit estimates class priors and per-class feature means and variances.
func (nb *GaussianNB) Fit(X mat.Matrix, y *mat.VecDense) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GaussianNB.Fit")
	}
	if y.Len() != nSamples {
		return errors.NewDimensionError("GaussianNB.Fit", nSamples, y.Len(), 0)
	}

	nb.nFeatures = nFeatures
	var counts [2]int
	for i := 0; i < nSamples; i++ {
		counts[int(y.AtVec(i))]++
	}
	for c := 0; c < 2; c++ {
		if counts[c] == 0 {
			return errors.NewValueError("GaussianNB.Fit", "a class has no samples")
		}
		nb.logPrior[c] = math.Log(float64(counts[c]) / float64(nSamples))
		nb.means[c] = make([]float64, nFeatures)
		nb.vars[c] = make([]float64, nFeatures)
	}

	for i := 0; i < nSamples; i++ {
		c := int(y.AtVec(i))
		for j := 0; j < nFeatures; j++ {
			nb.means[c][j] += X.At(i, j)
		}
	}
	for c := 0; c < 2; c++ {
		for j := 0; j < nFeatures; j++ {
			nb.means[c][j] /= float64(counts[c])
		}
	}
	for i := 0; i < nSamples; i++ {
		c := int(y.AtVec(i))
		for j := 0; j < nFeatures; j++ {
			d := X.At(i, j) - nb.means[c][j]
			nb.vars[c][j] += d * d
		}
	}

	// Smooth with a fraction of the largest overall variance so no feature
	// collapses to a zero-variance likelihood.
	maxVar := 0.0
	for c := 0; c < 2; c++ {
		for j := 0; j < nFeatures; j++ {
			nb.vars[c][j] /= float64(counts[c])
			if nb.vars[c][j] > maxVar {
				maxVar = nb.vars[c][j]
			}
		}
	}
	eps := nb.varSmoothing * maxVar
	if eps <= 0 {
		eps = nb.varSmoothing
	}
	for c := 0; c < 2; c++ {
		for j := 0; j < nFeatures; j++ {
			nb.vars[c][j] += eps
		}
	}

	nb.SetFitted()
	return nil
}

// PredictProba returns the posterior probability of the positive class.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !nb.IsFitted() {
		return nil, errors.NewNotFittedError("GaussianNB", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != nb.nFeatures {
		return nil, errors.NewDimensionError("GaussianNB.PredictProba", nb.nFeatures, nFeatures, 1)
	}

	proba := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		var logJoint [2]float64
		for c := 0; c < 2; c++ {
			lj := nb.logPrior[c]
			for j := 0; j < nFeatures; j++ {
				d := X.At(i, j) - nb.means[c][j]
				lj += -0.5*math.Log(2*math.Pi*nb.vars[c][j]) - d*d/(2*nb.vars[c][j])
			}
			logJoint[c] = lj
		}
		// Normalize in log space.
		m := math.Max(logJoint[0], logJoint[1])
		p0 := math.Exp(logJoint[0] - m)
		p1 := math.Exp(logJoint[1] - m)
		proba.SetVec(i, p1/(p0+p1))
	}
	return proba, nil
}

// bayesFamily adapts GaussianNB to the Family interface.
type bayesFamily struct {
	space Space
}

func defaultBayesSpace() Space {
	return Space{Dims: []Dimension{
		{Name: "var_smoothing", Kind: Continuous, Lo: 1e-12, Hi: 1e-3, Log: true},
	}}
}

func (f bayesFamily) Name() string { return "naive_bayes" }

func (f bayesFamily) Space() Space { return f.space }

func (f bayesFamily) New(p Point) (Classifier, error) {
	if err := f.Space().Validate(p); err != nil {
		return nil, err
	}
	return NewGaussianNB(p["var_smoothing"]), nil
}
