// Package preprocessing implements the feature pipeline: standardization of
// numeric columns, one-hot encoding of categorical columns, zero-variance
// column removal and majority-class down-sampling. Every step fits its
// statistics on training data only and applies them unchanged elsewhere.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// StandardScaler centers numeric features to mean 0 and scales them to unit
// standard deviation. Missing cells (NaN) are skipped when fitting and map to
// 0 after transformation, so they contribute nothing once centered.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-feature mean over non-missing training cells.
	Mean []float64

	// Scale holds the per-feature standard deviation.
	Scale []float64

	// NFeatures is the column count seen at fit time.
	NFeatures int
}

var _ model.Transformer = (*StandardScaler)(nil)

// NewStandardScaler creates an unfitted StandardScaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and standard deviation from X, ignoring NaN
// cells.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		n := 0
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			s.Mean[j] = sum / float64(n)
		}

		sumSquares := 0.0
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			diff := v - s.Mean[j]
			sumSquares += diff * diff
		}
		if n > 0 {
			s.Scale[j] = math.Sqrt(sumSquares / float64(n))
		}
		// Guard against division by zero on constant columns.
		if math.Abs(s.Scale[j]) < 1e-8 {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X with the fitted statistics. NaN cells become 0.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				result.Set(i, j, 0)
				continue
			}
			result.Set(i, j, (v-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits on X and returns the transformed X.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
