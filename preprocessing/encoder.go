package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// OneHotEncoder expands categorical columns (given as level-index matrices)
// into indicator columns. Only levels observed in the fitting data get a
// column; unseen levels at transform time map to an all-zero block rather
// than an error, since validation folds may contain levels the training
// portion never saw.
type OneHotEncoder struct {
	model.BaseEstimator

	// levels[j] holds the sorted level indices observed in column j at fit time.
	levels [][]int

	// offsets[j] is the first output column of input column j's block.
	offsets []int

	nIn  int
	nOut int
}

var _ model.Transformer = (*OneHotEncoder)(nil)

// NewOneHotEncoder creates an unfitted OneHotEncoder.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit records the level indices present in each column of X.
func (e *OneHotEncoder) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OneHotEncoder.Fit")
	}

	e.nIn = c
	e.levels = make([][]int, c)
	e.offsets = make([]int, c)
	e.nOut = 0
	for j := 0; j < c; j++ {
		seen := map[int]bool{}
		for i := 0; i < r; i++ {
			seen[int(X.At(i, j))] = true
		}
		lv := make([]int, 0, len(seen))
		for l := range seen {
			lv = append(lv, l)
		}
		sort.Ints(lv)
		e.levels[j] = lv
		e.offsets[j] = e.nOut
		e.nOut += len(lv)
	}

	e.SetFitted()
	return nil
}

// Transform one-hot encodes X using the fitted level sets.
func (e *OneHotEncoder) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	r, c := X.Dims()
	if c != e.nIn {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", e.nIn, c, 1)
	}

	out := mat.NewDense(r, e.nOut, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			level := int(X.At(i, j))
			for k, l := range e.levels[j] {
				if l == level {
					out.Set(i, e.offsets[j]+k, 1)
					break
				}
			}
		}
	}
	return out, nil
}

// Levels returns the observed level indices for input column j.
func (e *OneHotEncoder) Levels(j int) []int {
	return e.levels[j]
}

// Width returns the number of output columns.
func (e *OneHotEncoder) Width() int {
	return e.nOut
}

// VarianceThreshold removes columns whose variance on the fitting data is
// zero. One-hot encoding routinely produces such columns when a level is
// constant within a fold's training portion.
type VarianceThreshold struct {
	model.BaseEstimator

	// Keep holds the retained column indices, ascending.
	Keep []int

	nIn int
}

var _ model.Transformer = (*VarianceThreshold)(nil)

// NewVarianceThreshold creates an unfitted VarianceThreshold.
func NewVarianceThreshold() *VarianceThreshold {
	return &VarianceThreshold{}
}

// Fit determines which columns of X have non-zero variance.
func (v *VarianceThreshold) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "VarianceThreshold.Fit")
	}

	v.nIn = c
	v.Keep = v.Keep[:0]
	for j := 0; j < c; j++ {
		mean := 0.0
		for i := 0; i < r; i++ {
			mean += X.At(i, j)
		}
		mean /= float64(r)

		variance := 0.0
		for i := 0; i < r; i++ {
			d := X.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(r)

		if variance > 1e-12 {
			v.Keep = append(v.Keep, j)
		}
	}
	if len(v.Keep) == 0 {
		return errors.NewValueError("VarianceThreshold.Fit", "all columns have zero variance")
	}

	v.SetFitted()
	return nil
}

// Transform selects the retained columns of X.
func (v *VarianceThreshold) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("VarianceThreshold", "Transform")
	}
	r, c := X.Dims()
	if c != v.nIn {
		return nil, errors.NewDimensionError("VarianceThreshold.Transform", v.nIn, c, 1)
	}

	out := mat.NewDense(r, len(v.Keep), nil)
	for i := 0; i < r; i++ {
		for k, j := range v.Keep {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out, nil
}
