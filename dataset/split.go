package dataset

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// Fold is one cross-validation split: indices into the dataset it was derived
// from. Train and Val never overlap, and across a k-fold set every record
// appears in exactly one Val.
type Fold struct {
	Train []int
	Val   []int
}

// classIndices groups row indices by label, shuffled per class with a seeded
// generator so splits are deterministic.
func classIndices(ds *Dataset, seed int64) [2][]int {
	var byClass [2][]int
	for i := 0; i < ds.NRows(); i++ {
		l := ds.Label(i)
		byClass[l] = append(byClass[l], i)
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for c := range byClass {
		idx := byClass[c]
		r.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
	}
	return byClass
}

// TrainTestSplit partitions ds into train and test sets, splitting each label
// class independently in proportion p so class balance matches the source.
// Deterministic for a given seed.
func TrainTestSplit(ds *Dataset, p float64, seed int64) (train, test *Dataset, err error) {
	if p <= 0 || p >= 1 {
		return nil, nil, errors.NewValidationError("split_proportion", "must be in (0, 1)", p)
	}

	byClass := classIndices(ds, seed)
	var trainIdx, testIdx []int
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, errors.NewStratificationError("TrainTestSplit", ds.ClassNames()[c], len(idx), 2)
		}
		nTrain := int(math.Round(p * float64(len(idx))))
		if nTrain == 0 {
			nTrain = 1
		}
		if nTrain == len(idx) {
			nTrain = len(idx) - 1
		}
		trainIdx = append(trainIdx, idx[:nTrain]...)
		testIdx = append(testIdx, idx[nTrain:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	return ds.Subset(trainIdx), ds.Subset(testIdx), nil
}

// StratifiedKFold derives k cross-validation folds from ds. Each class's
// records are dealt round-robin across folds, so every record lands in exactly
// one validation fold and per-fold class balance tracks the source.
func StratifiedKFold(ds *Dataset, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, errors.NewValidationError("folds", "must be at least 2", k)
	}

	byClass := classIndices(ds, seed)
	for c, idx := range byClass {
		if len(idx) < k {
			return nil, errors.NewStratificationError("StratifiedKFold", ds.ClassNames()[c], len(idx), k)
		}
	}

	val := make([][]int, k)
	for _, idx := range byClass {
		for i, row := range idx {
			f := i % k
			val[f] = append(val[f], row)
		}
	}

	folds := make([]Fold, k)
	for f := 0; f < k; f++ {
		inVal := make(map[int]bool, len(val[f]))
		for _, row := range val[f] {
			inVal[row] = true
		}
		train := make([]int, 0, ds.NRows()-len(val[f]))
		for i := 0; i < ds.NRows(); i++ {
			if !inVal[i] {
				train = append(train, i)
			}
		}
		sort.Ints(val[f])
		folds[f] = Fold{Train: train, Val: val[f]}
	}
	return folds, nil
}
