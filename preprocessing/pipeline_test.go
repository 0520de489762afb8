package preprocessing

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/dataset"
)

func pipelineDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	csvData := `amount,channel,flagged
10,web,no
20,web,no
30,branch,no
40,branch,yes
50,web,yes
60,phone,yes
`
	ds, err := dataset.FromCSV(strings.NewReader(csvData), "flagged")
	if err != nil {
		t.Fatalf("FromCSV() error = %v", err)
	}
	return ds
}

func TestPipelineFeatureNames(t *testing.T) {
	ds := pipelineDataset(t)

	p := NewPipeline(WithDownsample(false))
	if err := p.Fit(ds); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	names := p.FeatureNames()
	want := []string{"amount", "channel=web", "channel=branch", "channel=phone"}
	if len(names) != len(want) {
		t.Fatalf("FeatureNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("FeatureNames()[%d] = %v, want %v", i, names[i], want[i])
		}
	}
}

func TestPipelineTrainingStatisticsApplyToTest(t *testing.T) {
	train := pipelineDataset(t)

	p := NewPipeline(WithDownsample(false))
	XTrain, _, err := p.FitTransform(train)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	// Transform on a subset must use the statistics learned on the full
	// training data, so subset rows match their training rows exactly.
	sub := train.Subset([]int{1, 4})
	XSub, ySub, err := p.Transform(sub)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	for j := 0; j < 4; j++ {
		if got, want := XSub.At(0, j), XTrain.At(1, j); got != want {
			t.Errorf("subset row 0 col %d = %v, want %v", j, got, want)
		}
		if got, want := XSub.At(1, j), XTrain.At(4, j); got != want {
			t.Errorf("subset row 1 col %d = %v, want %v", j, got, want)
		}
	}
	if ySub.Len() != 2 {
		t.Errorf("Transform() labels length = %d, want 2", ySub.Len())
	}
}

func TestPipelineFitIgnoresValidationData(t *testing.T) {
	csvData := `amount,channel,flagged
10,web,no
20,web,no
30,branch,no
40,branch,yes
50,web,yes
60,phone,yes
1000000,mail,no
-999999,mail,yes
`
	full, err := dataset.FromCSV(strings.NewReader(csvData), "flagged")
	if err != nil {
		t.Fatalf("FromCSV() error = %v", err)
	}
	train := full.Subset([]int{0, 1, 2, 3, 4, 5})
	val := full.Subset([]int{6, 7})

	p := NewPipeline(WithDownsample(false))
	if err := p.Fit(train); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	mean := append([]float64{}, p.scaler.Mean...)
	scale := append([]float64{}, p.scaler.Scale...)
	levels := append([]int{}, p.encoder.levels[0]...)
	keep := append([]int{}, p.vt.Keep...)

	// Pushing wild validation rows through Transform must leave every
	// fitted statistic untouched.
	if _, _, err := p.Transform(val); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	assertStatsEqual(t, p, mean, scale, levels, keep)

	// A second pipeline fitted on the same training rows lands on the same
	// statistics regardless of what the validation rows contain.
	p2 := NewPipeline(WithDownsample(false))
	if err := p2.Fit(train); err != nil {
		t.Fatalf("refit error = %v", err)
	}
	assertStatsEqual(t, p2, mean, scale, levels, keep)

	// The outlier amounts never entered the mean, so it stays at the
	// training-row average.
	if got := mean[0]; got != 35 {
		t.Errorf("fitted mean = %v, want 35", got)
	}
}

func assertStatsEqual(t *testing.T, p *Pipeline, mean, scale []float64, levels, keep []int) {
	t.Helper()
	for j := range mean {
		if p.scaler.Mean[j] != mean[j] || p.scaler.Scale[j] != scale[j] {
			t.Errorf("scaler stats col %d = (%v, %v), want (%v, %v)",
				j, p.scaler.Mean[j], p.scaler.Scale[j], mean[j], scale[j])
		}
	}
	if len(p.encoder.levels[0]) != len(levels) {
		t.Fatalf("encoder levels = %v, want %v", p.encoder.levels[0], levels)
	}
	for i := range levels {
		if p.encoder.levels[0][i] != levels[i] {
			t.Errorf("encoder level %d = %d, want %d", i, p.encoder.levels[0][i], levels[i])
		}
	}
	if len(p.vt.Keep) != len(keep) {
		t.Fatalf("variance threshold keep = %v, want %v", p.vt.Keep, keep)
	}
	for i := range keep {
		if p.vt.Keep[i] != keep[i] {
			t.Errorf("keep[%d] = %d, want %d", i, p.vt.Keep[i], keep[i])
		}
	}
}

func TestPipelineTransformNeverDownsamples(t *testing.T) {
	// 2 positives, 4 negatives.
	csvData := `x,y
1,no
2,no
3,no
4,no
5,yes
6,yes
`
	ds, err := dataset.FromCSV(strings.NewReader(csvData), "y")
	if err != nil {
		t.Fatalf("FromCSV() error = %v", err)
	}

	p := NewPipeline(WithSeed(1))
	XFit, yFit, err := p.FitTransform(ds)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	rFit, _ := XFit.Dims()
	if rFit != 4 || yFit.Len() != 4 {
		t.Errorf("FitTransform() rows = %d, want 4 after down-sampling", rFit)
	}
	pos := 0
	for i := 0; i < yFit.Len(); i++ {
		if yFit.AtVec(i) == 1 {
			pos++
		}
	}
	if pos != 2 {
		t.Errorf("FitTransform() positives = %d, want 2", pos)
	}

	// Transform keeps every row.
	XAll, yAll, err := p.Transform(ds)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	rAll, _ := XAll.Dims()
	if rAll != 6 || yAll.Len() != 6 {
		t.Errorf("Transform() rows = %d, want 6", rAll)
	}
}

func TestPipelineNotFitted(t *testing.T) {
	ds := pipelineDataset(t)
	p := NewPipeline()
	if _, _, err := p.Transform(ds); err == nil {
		t.Errorf("Transform() before Fit error = nil, want error")
	}
}

func TestDownsampleMajority(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	y := mat.NewVecDense(5, []float64{0, 0, 0, 1, 1})

	outX, outY, err := DownsampleMajority(X, y, 11)
	if err != nil {
		t.Fatalf("DownsampleMajority() error = %v", err)
	}

	if outY.Len() != 4 {
		t.Fatalf("DownsampleMajority() rows = %d, want 4", outY.Len())
	}
	counts := [2]int{}
	for i := 0; i < outY.Len(); i++ {
		counts[int(outY.AtVec(i))]++
	}
	if counts[0] != 2 || counts[1] != 2 {
		t.Errorf("class counts = %v, want [2 2]", counts)
	}

	// Surviving rows keep ascending original order via the identity feature.
	for i := 1; i < outY.Len(); i++ {
		if outX.At(i, 0) <= outX.At(i-1, 0) {
			t.Errorf("row order not preserved: %v after %v", outX.At(i, 0), outX.At(i-1, 0))
		}
	}
}

func TestDownsampleMajorityBalanced(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{0, 1, 0, 1})

	outX, outY, err := DownsampleMajority(X, y, 1)
	if err != nil {
		t.Fatalf("DownsampleMajority() error = %v", err)
	}
	if outX != X || outY != y {
		t.Errorf("balanced input should pass through unchanged")
	}
}

func TestPipelineMissingNumeric(t *testing.T) {
	csvData := `x,y
1,no
NA,no
3,yes
5,yes
`
	ds, err := dataset.FromCSV(strings.NewReader(csvData), "y")
	if err != nil {
		t.Fatalf("FromCSV() error = %v", err)
	}

	p := NewPipeline(WithDownsample(false))
	X, _, err := p.FitTransform(ds)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if v := X.At(1, 0); v != 0 {
		t.Errorf("missing cell = %v, want 0", v)
	}
	for i := 0; i < 4; i++ {
		if math.IsNaN(X.At(i, 0)) {
			t.Errorf("row %d still NaN after transform", i)
		}
	}
}
