// Package report renders the comparison study's artifacts: plots as PNG
// files and summary tables as plain text.
package report

import (
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/aokisawa/riskbench/interpret"
	"github.com/aokisawa/riskbench/metrics"
	"github.com/aokisawa/riskbench/pkg/errors"
	"github.com/aokisawa/riskbench/tuning"
)

var (
	lineBlue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	lineOrange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	lineGray   = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// Plotter writes plot files into a single output directory.
type Plotter struct {
	dir string
}

func NewPlotter(dir string) *Plotter {
	return &Plotter{dir: dir}
}

// ROC draws the receiver operating characteristic with a chance diagonal.
func (pl *Plotter) ROC(curve []metrics.ROCPoint, auc float64, name string) (string, error) {
	p := plot.New()
	p.Title.Text = "ROC Curve (AUC = " + formatFloat(auc, 3) + ")"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(curve))
	for i, c := range curve {
		pts[i].X = c.FPR
		pts[i].Y = c.TPR
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return "", errors.Wrap(err, "roc plot")
	}
	l.Color = lineBlue
	l.LineStyle.Width = vg.Points(2)
	p.Add(l)

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return "", errors.Wrap(err, "roc plot")
	}
	diag.Color = lineGray
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)

	return pl.save(p, name, 5, 5)
}

// Refinement draws per-iteration candidate scores against the running best.
func (pl *Plotter) Refinement(trace []tuning.IterationRecord, name string) (string, error) {
	p := plot.New()
	p.Title.Text = "Refinement Progress"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Mean AUC"

	scored := make(plotter.XYs, 0, len(trace))
	best := make(plotter.XYs, 0, len(trace))
	for _, rec := range trace {
		if rec.Failure == "" {
			scored = append(scored, plotter.XY{X: float64(rec.Iter), Y: rec.Score})
		}
		best = append(best, plotter.XY{X: float64(rec.Iter), Y: rec.Best})
	}

	s, err := plotter.NewScatter(scored)
	if err != nil {
		return "", errors.Wrap(err, "refinement plot")
	}
	s.Color = lineOrange
	p.Add(s)

	l, err := plotter.NewLine(best)
	if err != nil {
		return "", errors.Wrap(err, "refinement plot")
	}
	l.Color = lineBlue
	l.LineStyle.Width = vg.Points(2)
	p.Add(l)
	p.Legend.Add("candidate", s)
	p.Legend.Add("best so far", l)
	p.Legend.Top = false

	return pl.save(p, name, 6, 4)
}

// Importances draws a horizontal bar chart of permutation importances,
// largest at the top. topN <= 0 keeps all features.
func (pl *Plotter) Importances(imps []interpret.Importance, topN int, name string) (string, error) {
	if topN > 0 && topN < len(imps) {
		imps = imps[:topN]
	}
	vals := make(plotter.Values, len(imps))
	labels := make([]string, len(imps))
	// Reverse so the largest bar renders at the top.
	for i, imp := range imps {
		k := len(imps) - 1 - i
		vals[k] = imp.Drop
		labels[k] = imp.Feature
	}

	p := plot.New()
	p.Title.Text = "Permutation Importance (AUC drop)"
	bars, err := plotter.NewBarChart(vals, vg.Points(12))
	if err != nil {
		return "", errors.Wrap(err, "importance plot")
	}
	bars.Horizontal = true
	bars.Color = lineBlue
	p.Add(bars)
	p.NominalY(labels...)

	return pl.save(p, name, 6, 5)
}

// PartialDependence draws one dependence curve.
func (pl *Plotter) PartialDependence(feature string, curve []interpret.PDPoint, name string) (string, error) {
	p := plot.New()
	p.Title.Text = "Partial Dependence: " + feature
	p.X.Label.Text = feature + " (standardized)"
	p.Y.Label.Text = "Mean predicted probability"

	pts := make(plotter.XYs, len(curve))
	for i, c := range curve {
		pts[i].X = c.Value
		pts[i].Y = c.Mean
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return "", errors.Wrap(err, "partial dependence plot")
	}
	l.Color = lineBlue
	l.LineStyle.Width = vg.Points(2)
	p.Add(l)

	return pl.save(p, name, 5, 4)
}

func (pl *Plotter) save(p *plot.Plot, name string, w, h float64) (string, error) {
	path := filepath.Join(pl.dir, name)
	if err := p.Save(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, path); err != nil {
		return "", errors.Wrapf(err, "save plot %s", name)
	}
	return path, nil
}
