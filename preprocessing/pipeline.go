package preprocessing

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/dataset"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// Pipeline applies the full feature transformation to a dataset: standardize
// numeric columns, one-hot encode categorical columns, then drop columns with
// zero variance on the fitting data. Fit must only ever see the training
// portion of a split or fold; Transform applies the fitted statistics to any
// portion. Down-sampling of the majority class happens in FitTransform only,
// never on validation or test data.
type Pipeline struct {
	model.BaseEstimator

	downsample bool
	seed       int64

	numericIdx []int
	catIdx     []int
	cols       []dataset.Column

	scaler  *StandardScaler
	encoder *OneHotEncoder
	vt      *VarianceThreshold

	names []string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDownsample enables or disables majority-class down-sampling in
// FitTransform.
func WithDownsample(enabled bool) Option {
	return func(p *Pipeline) { p.downsample = enabled }
}

// WithSeed sets the seed for the down-sampling draw.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) { p.seed = seed }
}

// NewPipeline creates a pipeline with down-sampling enabled by default.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{downsample: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit learns scaler statistics, categorical levels and the zero-variance mask
// from ds.
func (p *Pipeline) Fit(ds *dataset.Dataset) error {
	if ds.NRows() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "Pipeline.Fit")
	}

	p.cols = ds.Columns()
	p.numericIdx = p.numericIdx[:0]
	p.catIdx = p.catIdx[:0]
	for j, col := range p.cols {
		if col.Kind == dataset.Numeric {
			p.numericIdx = append(p.numericIdx, j)
		} else {
			p.catIdx = append(p.catIdx, j)
		}
	}

	if len(p.numericIdx) > 0 {
		p.scaler = NewStandardScaler()
		if err := p.scaler.Fit(p.gather(ds, p.numericIdx)); err != nil {
			return err
		}
	}
	if len(p.catIdx) > 0 {
		p.encoder = NewOneHotEncoder()
		if err := p.encoder.Fit(p.gather(ds, p.catIdx)); err != nil {
			return err
		}
	}

	assembled, names, err := p.assemble(ds)
	if err != nil {
		return err
	}
	p.vt = NewVarianceThreshold()
	if err := p.vt.Fit(assembled); err != nil {
		return err
	}
	p.names = make([]string, 0, len(p.vt.Keep))
	for _, j := range p.vt.Keep {
		p.names = append(p.names, names[j])
	}

	p.SetFitted()
	return nil
}

// Transform applies the fitted pipeline to ds and returns the feature matrix
// and label vector.
func (p *Pipeline) Transform(ds *dataset.Dataset) (*mat.Dense, *mat.VecDense, error) {
	if !p.IsFitted() {
		return nil, nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	if ds.NCols() != len(p.cols) {
		return nil, nil, errors.NewDimensionError("Pipeline.Transform", len(p.cols), ds.NCols(), 1)
	}

	assembled, _, err := p.assemble(ds)
	if err != nil {
		return nil, nil, err
	}
	X, err := p.vt.Transform(assembled)
	if err != nil {
		return nil, nil, err
	}
	return X, ds.LabelVec(), nil
}

// FitTransform fits on ds, transforms it and, when enabled, down-samples the
// majority class to the minority class count. Use it for the data a model
// will be fitted on; use Transform for anything that will be scored.
func (p *Pipeline) FitTransform(ds *dataset.Dataset) (*mat.Dense, *mat.VecDense, error) {
	if err := p.Fit(ds); err != nil {
		return nil, nil, err
	}
	X, y, err := p.Transform(ds)
	if err != nil {
		return nil, nil, err
	}
	if !p.downsample {
		return X, y, nil
	}
	return DownsampleMajority(X, y, p.seed)
}

// FeatureNames returns the names of the output columns, in order.
func (p *Pipeline) FeatureNames() []string {
	return p.names
}

// gather copies the selected columns of ds into a dense matrix.
func (p *Pipeline) gather(ds *dataset.Dataset, idx []int) *mat.Dense {
	out := mat.NewDense(ds.NRows(), len(idx), nil)
	for i := 0; i < ds.NRows(); i++ {
		for k, j := range idx {
			out.Set(i, k, ds.At(i, j))
		}
	}
	return out
}

// assemble builds the pre-threshold feature matrix: scaled numerics first,
// then one-hot blocks, with matching column names.
func (p *Pipeline) assemble(ds *dataset.Dataset) (*mat.Dense, []string, error) {
	var parts []*mat.Dense
	var names []string

	if p.scaler != nil {
		scaled, err := p.scaler.Transform(p.gather(ds, p.numericIdx))
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, scaled)
		for _, j := range p.numericIdx {
			names = append(names, p.cols[j].Name)
		}
	}
	if p.encoder != nil {
		encoded, err := p.encoder.Transform(p.gather(ds, p.catIdx))
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, encoded)
		for k, j := range p.catIdx {
			col := p.cols[j]
			for _, level := range p.encoder.Levels(k) {
				name := col.Name + "="
				if level >= 0 && level < len(col.Levels) {
					name += col.Levels[level]
				}
				names = append(names, name)
			}
		}
	}
	if len(parts) == 0 {
		return nil, nil, errors.NewValueError("Pipeline", "dataset has no feature columns")
	}

	total := 0
	for _, part := range parts {
		_, c := part.Dims()
		total += c
	}
	out := mat.NewDense(ds.NRows(), total, nil)
	offset := 0
	for _, part := range parts {
		r, c := part.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, part.At(i, j))
			}
		}
		offset += c
	}
	return out, names, nil
}

// DownsampleMajority draws, without replacement, as many majority-class rows
// as there are minority-class rows, keeping original row order. With balanced
// classes it returns the inputs unchanged.
func DownsampleMajority(X *mat.Dense, y *mat.VecDense, seed int64) (*mat.Dense, *mat.VecDense, error) {
	n, c := X.Dims()
	if y.Len() != n {
		return nil, nil, errors.NewDimensionError("DownsampleMajority", n, y.Len(), 0)
	}

	var byClass [2][]int
	for i := 0; i < n; i++ {
		byClass[int(y.AtVec(i))] = append(byClass[int(y.AtVec(i))], i)
	}
	if len(byClass[0]) == len(byClass[1]) {
		return X, y, nil
	}

	minority, majority := 0, 1
	if len(byClass[0]) > len(byClass[1]) {
		minority, majority = 1, 0
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	maj := make([]int, len(byClass[majority]))
	copy(maj, byClass[majority])
	r.Shuffle(len(maj), func(i, j int) { maj[i], maj[j] = maj[j], maj[i] })
	keep := append([]int{}, byClass[minority]...)
	keep = append(keep, maj[:len(byClass[minority])]...)
	sort.Ints(keep)

	outX := mat.NewDense(len(keep), c, nil)
	outY := mat.NewVecDense(len(keep), nil)
	for i, idx := range keep {
		outX.SetRow(i, mat.Row(nil, idx, X))
		outY.SetVec(i, y.AtVec(idx))
	}
	return outX, outY, nil
}
