// Package metrics provides the binary classification metrics used for
// candidate scoring and held-out evaluation: ROC/AUC and the thresholded
// confusion matrix.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// AUC computes the area under the ROC curve from binary labels and
// positive-class scores, using the rank statistic with tie-averaged ranks.
// When only one class is present the metric is undefined and 0.5 is returned.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUC", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty vector")
	}
	if yScore.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yScore.Len(), 0)
	}

	nPos := 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
		default:
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b])
	})

	// Average ranks across tied scores, then sum positive-class ranks.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yScore.AtVec(idx[j]) == yScore.AtVec(idx[i]) {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	sumPos := 0.0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			sumPos += ranks[i]
		}
	}
	return (sumPos - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg)), nil
}

// ROCPoint is one point on a ROC curve.
type ROCPoint struct {
	FPR       float64
	TPR       float64
	Threshold float64
}

// ROCCurve returns the ROC curve points from (0,0) to (1,1), one per distinct
// score value, ordered by increasing false positive rate.
func ROCCurve(yTrue, yScore *mat.VecDense) ([]ROCPoint, error) {
	if yTrue == nil || yScore == nil {
		return nil, errors.NewValueError("ROCCurve", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("ROCCurve", "empty vector")
	}
	if yScore.Len() != n {
		return nil, errors.NewDimensionError("ROCCurve", n, yScore.Len(), 0)
	}

	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return nil, errors.NewValueError("ROCCurve", "labels must be 0 or 1")
		}
	}
	if nPos == 0 || nNeg == 0 {
		return nil, errors.NewValueError("ROCCurve", "need both classes present")
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) > yScore.AtVec(idx[b])
	})

	points := []ROCPoint{{FPR: 0, TPR: 0, Threshold: yScore.AtVec(idx[0]) + 1}}
	tp, fp := 0, 0
	for i := 0; i < n; {
		threshold := yScore.AtVec(idx[i])
		for i < n && yScore.AtVec(idx[i]) == threshold {
			if yTrue.AtVec(idx[i]) == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		points = append(points, ROCPoint{
			FPR:       float64(fp) / float64(nNeg),
			TPR:       float64(tp) / float64(nPos),
			Threshold: threshold,
		})
	}
	return points, nil
}

// ConfusionMatrix counts test outcomes at a fixed decision threshold.
type ConfusionMatrix struct {
	TP, FP, TN, FN int
}

// Confusion thresholds yScore at threshold and counts outcomes against yTrue.
func Confusion(yTrue, yScore *mat.VecDense, threshold float64) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if yTrue == nil || yScore == nil {
		return cm, errors.NewValueError("Confusion", "nil input vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return cm, errors.NewValueError("Confusion", "empty vector")
	}
	if yScore.Len() != n {
		return cm, errors.NewDimensionError("Confusion", n, yScore.Len(), 0)
	}

	for i := 0; i < n; i++ {
		predicted := yScore.AtVec(i) >= threshold
		actual := yTrue.AtVec(i) == 1
		switch {
		case predicted && actual:
			cm.TP++
		case predicted && !actual:
			cm.FP++
		case !predicted && !actual:
			cm.TN++
		default:
			cm.FN++
		}
	}
	return cm, nil
}

// Total returns the number of scored records.
func (cm ConfusionMatrix) Total() int {
	return cm.TP + cm.FP + cm.TN + cm.FN
}

// Accuracy returns the fraction of correct predictions.
func (cm ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return float64(cm.TP+cm.TN) / float64(total)
}

// Precision returns TP / (TP + FP), or 0 when nothing was predicted positive.
func (cm ConfusionMatrix) Precision() float64 {
	if cm.TP+cm.FP == 0 {
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FP)
}

// Recall returns TP / (TP + FN), or 0 when no positives exist.
func (cm ConfusionMatrix) Recall() float64 {
	if cm.TP+cm.FN == 0 {
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FN)
}

// F1 returns the harmonic mean of precision and recall.
func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
