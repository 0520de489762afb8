package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/aokisawa/riskbench/dataset"
	"github.com/aokisawa/riskbench/evaluate"
	"github.com/aokisawa/riskbench/interpret"
	"github.com/aokisawa/riskbench/tuning"
)

// WriteDescription renders per-column descriptive statistics.
func WriteDescription(w io.Writer, ds *dataset.Dataset) error {
	counts := ds.ClassCounts()
	names := ds.ClassNames()
	fmt.Fprintf(w, "records: %d  features: %d  %s: %d  %s: %d\n\n",
		ds.NRows(), ds.NCols(), names[0], counts[0], names[1], counts[1])

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "column\tkind\tcount\tmissing\tmean\tstd\tmin\tmax")
	for _, s := range ds.Describe() {
		if s.Kind == dataset.Numeric {
			fmt.Fprintf(tw, "%s\tnumeric\t%d\t%d\t%.4g\t%.4g\t%.4g\t%.4g\n",
				s.Name, s.Count, s.Missing, s.Mean, s.Std, s.Min, s.Max)
		} else {
			fmt.Fprintf(tw, "%s\tcategorical\t%d\t%d\t%d levels\t\t\t\n",
				s.Name, s.Count, s.Missing, len(s.LevelCounts))
		}
	}
	return tw.Flush()
}

// WriteComparison renders the ranked candidate table followed by any
// candidates excluded for failed folds.
func WriteComparison(w io.Writer, aggs []tuning.Aggregate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\tfamily\tparams\tmean AUC\tstd\tfolds")
	for i, a := range tuning.Rank(aggs) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.4f\t%d\n",
			i+1, a.Family, a.Point.Key(), a.Mean, a.Std, len(a.FoldScores))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	excluded := tuning.Excluded(aggs)
	if len(excluded) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nexcluded (failed folds):\n")
	for _, a := range excluded {
		fmt.Fprintf(w, "  %s %s: %v\n", a.Family, a.Point.Key(), a.Failures)
	}
	return nil
}

// WriteHoldout renders the final assessment: AUC and a labeled confusion
// matrix at the reporting threshold.
func WriteHoldout(w io.Writer, res *evaluate.Result, classNames [2]string) error {
	fmt.Fprintf(w, "final model: %s %s\n", res.Family, res.Point.Key())
	fmt.Fprintf(w, "holdout AUC: %.4f\n", res.AUC)
	fmt.Fprintf(w, "threshold:   %.2f\n\n", res.Threshold)

	cm := res.Confusion
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\tpredicted %s\tpredicted %s\n", classNames[0], classNames[1])
	fmt.Fprintf(tw, "actual %s\t%d\t%d\n", classNames[0], cm.TN, cm.FP)
	fmt.Fprintf(tw, "actual %s\t%d\t%d\n", classNames[1], cm.FN, cm.TP)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\naccuracy: %.4f  precision: %.4f  recall: %.4f  f1: %.4f\n",
		cm.Accuracy(), cm.Precision(), cm.Recall(), cm.F1())
	return nil
}

// WriteImportances renders a ranked importance table.
func WriteImportances(w io.Writer, imps []interpret.Importance, topN int) error {
	if topN > 0 && topN < len(imps) {
		imps = imps[:topN]
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "feature\tAUC drop\tstd")
	for _, imp := range imps {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\n", imp.Feature, imp.Drop, imp.Std)
	}
	return tw.Flush()
}

// WriteModelImportances renders the classifier's intrinsic importance table.
func WriteModelImportances(w io.Writer, imps []interpret.Importance, topN int) error {
	if topN > 0 && topN < len(imps) {
		imps = imps[:topN]
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "feature\timportance")
	for _, imp := range imps {
		fmt.Fprintf(tw, "%s\t%.4f\n", imp.Feature, imp.Drop)
	}
	return tw.Flush()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
