// Package evaluate performs the final, one-shot assessment of the selected
// model on held-out data.
package evaluate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/dataset"
	"github.com/aokisawa/riskbench/metrics"
	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
	"github.com/aokisawa/riskbench/preprocessing"
)

// Result is the holdout assessment of one finalized candidate. It retains the
// fitted pipeline and model plus the baked training features and the
// transformed test set, so downstream interpretation runs against the data
// the model was fitted on without refitting anything.
type Result struct {
	Family    string
	Point     models.Point
	AUC       float64
	ROC       []metrics.ROCPoint
	Confusion metrics.ConfusionMatrix
	Threshold float64

	Pipeline *preprocessing.Pipeline
	Model    models.Classifier
	XTrain   *mat.Dense
	YTrain   *mat.VecDense
	XTest    *mat.Dense
	YTest    *mat.VecDense
	Scores   *mat.VecDense
	Features []string
}

// Holdout fits the candidate's pipeline and model once on the full training
// split, scores the test split exactly once, and computes the final metrics.
// The threshold applies to the confusion matrix only; AUC and the ROC curve
// are threshold-free.
func Holdout(train, test *dataset.Dataset, fam models.Family, point models.Point, pipe *preprocessing.Pipeline, threshold float64) (*Result, error) {
	if train == nil || test == nil {
		return nil, errors.New("holdout: nil dataset")
	}
	if pipe == nil {
		pipe = preprocessing.NewPipeline()
	}

	XTrain, yTrain, err := pipe.FitTransform(train)
	if err != nil {
		return nil, errors.Wrap(err, "holdout: fit pipeline")
	}
	clf, err := fam.New(point)
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(XTrain, yTrain); err != nil {
		return nil, errors.Wrapf(err, "holdout: fit %s", fam.Name())
	}

	XTest, yTest, err := pipe.Transform(test)
	if err != nil {
		return nil, errors.Wrap(err, "holdout: transform test split")
	}
	scores, err := clf.PredictProba(XTest)
	if err != nil {
		return nil, errors.Wrap(err, "holdout: score test split")
	}

	auc, err := metrics.AUC(yTest, scores)
	if err != nil {
		return nil, err
	}
	roc, err := metrics.ROCCurve(yTest, scores)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.Confusion(yTest, scores, threshold)
	if err != nil {
		return nil, err
	}

	return &Result{
		Family:    fam.Name(),
		Point:     point.Clone(),
		AUC:       auc,
		ROC:       roc,
		Confusion: cm,
		Threshold: threshold,
		Pipeline:  pipe,
		Model:     clf,
		XTrain:    XTrain,
		YTrain:    yTrain,
		XTest:     XTest,
		YTest:     yTest,
		Scores:    scores,
		Features:  pipe.FeatureNames(),
	}, nil
}
