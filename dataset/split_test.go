package dataset

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// syntheticDataset builds nPos positive and nNeg negative rows with a single
// feature equal to the row index, so identity survives subsetting.
func syntheticDataset(t *testing.T, nPos, nNeg int) *Dataset {
	t.Helper()
	n := nPos + nNeg
	X := mat.NewDense(n, 1, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i < nPos {
			labels[i] = 1
		}
	}
	ds, err := FromMatrix(X, labels)
	if err != nil {
		t.Fatalf("FromMatrix() error = %v", err)
	}
	return ds
}

func TestTrainTestSplit(t *testing.T) {
	ds := syntheticDataset(t, 40, 60)

	train, test, err := TrainTestSplit(ds, 0.75, 7)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	if got := train.NRows() + test.NRows(); got != ds.NRows() {
		t.Errorf("split sizes sum to %v, want %v", got, ds.NRows())
	}

	// Stratification: each class splits in the same proportion.
	trainCounts := train.ClassCounts()
	testCounts := test.ClassCounts()
	if trainCounts[1] != 30 || testCounts[1] != 10 {
		t.Errorf("positive split = %d/%d, want 30/10", trainCounts[1], testCounts[1])
	}
	if trainCounts[0] != 45 || testCounts[0] != 15 {
		t.Errorf("negative split = %d/%d, want 45/15", trainCounts[0], testCounts[0])
	}

	// Disjointness via the identity feature.
	seen := make(map[float64]bool, train.NRows())
	for i := 0; i < train.NRows(); i++ {
		seen[train.At(i, 0)] = true
	}
	for i := 0; i < test.NRows(); i++ {
		if seen[test.At(i, 0)] {
			t.Fatalf("row %v appears in both train and test", test.At(i, 0))
		}
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	ds := syntheticDataset(t, 20, 30)

	a1, b1, err := TrainTestSplit(ds, 0.6, 99)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	a2, b2, err := TrainTestSplit(ds, 0.6, 99)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	for i := 0; i < a1.NRows(); i++ {
		if a1.At(i, 0) != a2.At(i, 0) {
			t.Fatalf("train differs at row %d for identical seeds", i)
		}
	}
	for i := 0; i < b1.NRows(); i++ {
		if b1.At(i, 0) != b2.At(i, 0) {
			t.Fatalf("test differs at row %d for identical seeds", i)
		}
	}
}

func TestTrainTestSplitErrors(t *testing.T) {
	ds := syntheticDataset(t, 10, 10)

	tests := []struct {
		name string
		p    float64
	}{
		{"zero proportion", 0},
		{"negative proportion", -0.5},
		{"full proportion", 1},
		{"above one", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := TrainTestSplit(ds, tt.p, 1); err == nil {
				t.Errorf("TrainTestSplit(p=%v) error = nil, want error", tt.p)
			}
		})
	}

	// A class with a single record cannot be split.
	tiny := syntheticDataset(t, 1, 10)
	if _, _, err := TrainTestSplit(tiny, 0.5, 1); err == nil {
		t.Errorf("TrainTestSplit() on single-record class error = nil, want error")
	}
}

func TestStratifiedKFold(t *testing.T) {
	ds := syntheticDataset(t, 25, 75)
	k := 5

	folds, err := StratifiedKFold(ds, k, 3)
	if err != nil {
		t.Fatalf("StratifiedKFold() error = %v", err)
	}
	if len(folds) != k {
		t.Fatalf("StratifiedKFold() returned %d folds, want %d", len(folds), k)
	}

	// Every record appears in exactly one validation fold.
	valCount := make(map[int]int)
	for _, f := range folds {
		for _, i := range f.Val {
			valCount[i]++
		}
	}
	if len(valCount) != ds.NRows() {
		t.Errorf("validation folds cover %d records, want %d", len(valCount), ds.NRows())
	}
	for i, c := range valCount {
		if c != 1 {
			t.Errorf("record %d appears in %d validation folds, want 1", i, c)
		}
	}

	for fi, f := range folds {
		// Train and Val partition the dataset.
		if len(f.Train)+len(f.Val) != ds.NRows() {
			t.Errorf("fold %d sizes sum to %d, want %d", fi, len(f.Train)+len(f.Val), ds.NRows())
		}
		inVal := make(map[int]bool)
		for _, i := range f.Val {
			inVal[i] = true
		}
		for _, i := range f.Train {
			if inVal[i] {
				t.Errorf("fold %d: record %d in both train and val", fi, i)
			}
		}

		// Per-fold class balance tracks the 1:3 source ratio.
		pos := 0
		for _, i := range f.Val {
			if ds.Label(i) == 1 {
				pos++
			}
		}
		ratio := float64(pos) / float64(len(f.Val))
		if math.Abs(ratio-0.25) > 0.05 {
			t.Errorf("fold %d positive ratio = %v, want ~0.25", fi, ratio)
		}
	}
}

func TestStratifiedKFoldErrors(t *testing.T) {
	ds := syntheticDataset(t, 3, 20)

	if _, err := StratifiedKFold(ds, 1, 1); err == nil {
		t.Errorf("StratifiedKFold(k=1) error = nil, want error")
	}
	// Positive class has fewer records than folds.
	if _, err := StratifiedKFold(ds, 5, 1); err == nil {
		t.Errorf("StratifiedKFold() with class < k error = nil, want error")
	}
}
