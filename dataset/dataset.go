// Package dataset holds the immutable tabular dataset, its CSV loader and the
// stratified partitioning used for train/test splits and cross-validation.
package dataset

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// Kind distinguishes numeric feature columns from categorical ones.
type Kind int

const (
	// Numeric columns hold float values; missing cells are NaN.
	Numeric Kind = iota
	// Categorical columns hold level indices into Column.Levels.
	Categorical
)

// Column describes one feature column of a dataset.
type Column struct {
	Name   string
	Kind   Kind
	Levels []string // level names for categorical columns, first-seen order
}

// Dataset is an ordered, immutable collection of labeled records. Subsets
// copy row storage and share the column schema, so no partition can mutate
// another.
type Dataset struct {
	cols       []Column
	data       []float64 // row-major nRows x nCols
	labels     []int     // 0 or 1 per row
	labelName  string
	classNames [2]string
	nRows      int
	nCols      int
}

// New builds a dataset from explicit rows. Each row must have one value per
// column; labels must be 0 or 1.
func New(labelName string, classNames [2]string, cols []Column, rows [][]float64, labels []int) (*Dataset, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	if len(labels) != len(rows) {
		return nil, errors.NewDimensionError("dataset.New", len(rows), len(labels), 0)
	}
	ds := &Dataset{
		cols:       cols,
		data:       make([]float64, 0, len(rows)*len(cols)),
		labels:     make([]int, len(rows)),
		labelName:  labelName,
		classNames: classNames,
		nRows:      len(rows),
		nCols:      len(cols),
	}
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, errors.NewDimensionError("dataset.New", len(cols), len(row), 1)
		}
		if labels[i] != 0 && labels[i] != 1 {
			return nil, errors.NewValueError("dataset.New", "label must be 0 or 1")
		}
		ds.data = append(ds.data, row...)
		ds.labels[i] = labels[i]
	}
	return ds, nil
}

// FromMatrix builds an all-numeric dataset from a feature matrix and labels,
// naming columns x0..xn. Intended for synthetic data in tests and examples.
func FromMatrix(X *mat.Dense, labels []int) (*Dataset, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.FromMatrix")
	}
	cols := make([]Column, c)
	for j := range cols {
		cols[j] = Column{Name: "x" + itoa(j), Kind: Numeric}
	}
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = mat.Row(nil, i, X)
	}
	return New("label", [2]string{"0", "1"}, cols, rows, labels)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// NRows returns the number of records.
func (ds *Dataset) NRows() int { return ds.nRows }

// NCols returns the number of feature columns.
func (ds *Dataset) NCols() int { return ds.nCols }

// Columns returns the column schema. Callers must not modify it.
func (ds *Dataset) Columns() []Column { return ds.cols }

// LabelName returns the name of the label column.
func (ds *Dataset) LabelName() string { return ds.labelName }

// ClassNames returns the original names of classes 0 and 1.
func (ds *Dataset) ClassNames() [2]string { return ds.classNames }

// At returns the cell value at row i, column j. Missing numeric cells are NaN;
// categorical cells are level indices.
func (ds *Dataset) At(i, j int) float64 {
	return ds.data[i*ds.nCols+j]
}

// Label returns the binary label for row i.
func (ds *Dataset) Label(i int) int { return ds.labels[i] }

// Labels returns a copy of all labels.
func (ds *Dataset) Labels() []int {
	out := make([]int, ds.nRows)
	copy(out, ds.labels)
	return out
}

// LabelVec returns the labels as a column vector.
func (ds *Dataset) LabelVec() *mat.VecDense {
	v := mat.NewVecDense(ds.nRows, nil)
	for i, l := range ds.labels {
		v.SetVec(i, float64(l))
	}
	return v
}

// ClassCounts returns the number of records per class.
func (ds *Dataset) ClassCounts() [2]int {
	var counts [2]int
	for _, l := range ds.labels {
		counts[l]++
	}
	return counts
}

// Subset returns a new dataset containing the given rows, in order. Row
// storage is copied; the schema is shared.
func (ds *Dataset) Subset(indices []int) *Dataset {
	sub := &Dataset{
		cols:       ds.cols,
		data:       make([]float64, 0, len(indices)*ds.nCols),
		labels:     make([]int, len(indices)),
		labelName:  ds.labelName,
		classNames: ds.classNames,
		nRows:      len(indices),
		nCols:      ds.nCols,
	}
	for i, idx := range indices {
		sub.data = append(sub.data, ds.data[idx*ds.nCols:(idx+1)*ds.nCols]...)
		sub.labels[i] = ds.labels[idx]
	}
	return sub
}

// ColumnSummary is one row of the descriptive-statistics table.
type ColumnSummary struct {
	Name        string
	Kind        Kind
	Count       int // non-missing cells
	Missing     int
	Mean        float64 // numeric only
	Std         float64
	Min         float64
	Max         float64
	LevelCounts map[string]int // categorical only
}

// Describe computes per-column descriptive statistics over non-missing cells.
func (ds *Dataset) Describe() []ColumnSummary {
	out := make([]ColumnSummary, ds.nCols)
	for j, col := range ds.cols {
		s := ColumnSummary{Name: col.Name, Kind: col.Kind}
		switch col.Kind {
		case Numeric:
			vals := make([]float64, 0, ds.nRows)
			s.Min = math.Inf(1)
			s.Max = math.Inf(-1)
			for i := 0; i < ds.nRows; i++ {
				v := ds.At(i, j)
				if math.IsNaN(v) {
					s.Missing++
					continue
				}
				vals = append(vals, v)
				if v < s.Min {
					s.Min = v
				}
				if v > s.Max {
					s.Max = v
				}
			}
			s.Count = len(vals)
			if len(vals) > 0 {
				s.Mean = stat.Mean(vals, nil)
				s.Std = stat.StdDev(vals, nil)
			}
		case Categorical:
			s.LevelCounts = make(map[string]int, len(col.Levels))
			for i := 0; i < ds.nRows; i++ {
				idx := int(ds.At(i, j))
				if idx >= 0 && idx < len(col.Levels) {
					s.LevelCounts[col.Levels[idx]]++
					s.Count++
				} else {
					s.Missing++
				}
			}
		}
		out[j] = s
	}
	return out
}
