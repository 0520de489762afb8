package interpret

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// PDPoint is one evaluation of a dependence curve: the substituted feature
// value and the mean predicted probability across all rows.
type PDPoint struct {
	Value float64
	Mean  float64
}

// PartialDependence sweeps feature column j across a grid of its observed
// value range, substituting each grid value into every row and averaging the
// model's predicted probability. A feature that is constant in X yields a
// single-point, flat curve.
func PartialDependence(clf models.Classifier, X *mat.Dense, j, gridSize int) ([]PDPoint, error) {
	n, cols := X.Dims()
	if j < 0 || j >= cols {
		return nil, errors.NewValidationError("feature", "index out of range", j)
	}
	if gridSize < 2 {
		return nil, errors.NewValidationError("grid_size", "must be at least 2", gridSize)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		v := X.At(i, j)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	var grid []float64
	if lo == hi {
		grid = []float64{lo}
	} else {
		grid = make([]float64, gridSize)
		step := (hi - lo) / float64(gridSize-1)
		for g := range grid {
			grid[g] = lo + float64(g)*step
		}
	}

	work := mat.DenseCopyOf(X)
	out := make([]PDPoint, len(grid))
	for g, v := range grid {
		for i := 0; i < n; i++ {
			work.Set(i, j, v)
		}
		mean, err := meanProba(clf, work)
		if err != nil {
			return nil, errors.Wrapf(err, "partial dependence at value %g", v)
		}
		out[g] = PDPoint{Value: v, Mean: mean}
	}
	return out, nil
}

// LevelDependence is the categorical counterpart of PartialDependence: for
// each level of a one-hot encoded group it forces all rows onto that level
// and averages the prediction.
type LevelDependence struct {
	Level string
	Mean  float64
}

// CategoricalDependence evaluates a one-hot group by column index. groupCols
// maps level names to their columns in X; every evaluation zeroes the whole
// group and sets exactly one level column to 1.
func CategoricalDependence(clf models.Classifier, X *mat.Dense, groupCols map[string]int) ([]LevelDependence, error) {
	n, cols := X.Dims()
	if len(groupCols) == 0 {
		return nil, errors.NewValidationError("group", "has no levels", nil)
	}
	levels := make([]string, 0, len(groupCols))
	for lvl, j := range groupCols {
		if j < 0 || j >= cols {
			return nil, errors.NewValidationError("group", "column index out of range", j)
		}
		levels = append(levels, lvl)
	}
	sort.Strings(levels)

	work := mat.DenseCopyOf(X)
	out := make([]LevelDependence, 0, len(levels))
	for _, lvl := range levels {
		for i := 0; i < n; i++ {
			for _, j := range groupCols {
				work.Set(i, j, 0)
			}
			work.Set(i, groupCols[lvl], 1)
		}
		mean, err := meanProba(clf, work)
		if err != nil {
			return nil, errors.Wrapf(err, "categorical dependence at level %s", lvl)
		}
		out = append(out, LevelDependence{Level: lvl, Mean: mean})
	}
	return out, nil
}

func meanProba(clf models.Classifier, X *mat.Dense) (float64, error) {
	scores, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for i := 0; i < scores.Len(); i++ {
		sum += scores.AtVec(i)
	}
	return sum / float64(scores.Len()), nil
}
