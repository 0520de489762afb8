// Package interpret explains a fitted classifier through permutation
// importance and partial dependence, both computed on already-transformed
// feature matrices.
package interpret

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/metrics"
	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// Importance is one feature's permutation result: the mean drop in the
// ranking metric across repeats when the feature column is shuffled.
type Importance struct {
	Feature string
	Drop    float64
	Std     float64
}

// PermutationImportance shuffles each feature column in turn and measures the
// resulting AUC drop against the unshuffled baseline, averaged over repeats.
// A feature the model ignores scores near zero; negative drops are kept as-is
// since they carry the same "no signal" message.
func PermutationImportance(clf models.Classifier, X *mat.Dense, y *mat.VecDense, names []string, repeats int, seed int64) ([]Importance, error) {
	n, cols := X.Dims()
	if len(names) != cols {
		return nil, errors.NewDimensionError("PermutationImportance", cols, len(names), 1)
	}
	if repeats < 1 {
		return nil, errors.NewValidationError("repeats", "must be at least 1", repeats)
	}

	base, err := scoreAUC(clf, X, y)
	if err != nil {
		return nil, errors.Wrap(err, "permutation importance baseline")
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	work := mat.DenseCopyOf(X)
	perm := make([]int, n)
	saved := make([]float64, n)
	drops := make([]float64, repeats)

	out := make([]Importance, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < n; i++ {
			saved[i] = work.At(i, j)
		}
		for rep := 0; rep < repeats; rep++ {
			for i := range perm {
				perm[i] = i
			}
			r.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			for i := 0; i < n; i++ {
				work.Set(i, j, saved[perm[i]])
			}
			shuffled, err := scoreAUC(clf, work, y)
			if err != nil {
				return nil, errors.Wrapf(err, "permutation importance for %s", names[j])
			}
			drops[rep] = base - shuffled
		}
		for i := 0; i < n; i++ {
			work.Set(i, j, saved[i])
		}
		out[j] = Importance{
			Feature: names[j],
			Drop:    stat.Mean(drops, nil),
		}
		if repeats > 1 {
			out[j].Std = stat.StdDev(drops, nil)
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Drop > out[b].Drop })
	return out, nil
}

// ModelImportances returns the classifier's intrinsic importances when it
// exposes them, paired with feature names and sorted descending. The second
// return is false for models without an intrinsic notion of importance.
func ModelImportances(clf models.Classifier, names []string) ([]Importance, bool) {
	imp, ok := clf.(model.Importancer)
	if !ok {
		return nil, false
	}
	vals := imp.FeatureImportances()
	if len(vals) != len(names) {
		return nil, false
	}
	out := make([]Importance, len(vals))
	for j, v := range vals {
		out[j] = Importance{Feature: names[j], Drop: v}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Drop > out[b].Drop })
	return out, true
}

func scoreAUC(clf models.Classifier, X *mat.Dense, y *mat.VecDense) (float64, error) {
	scores, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}
	return metrics.AUC(y, scores)
}
