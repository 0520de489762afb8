package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/aokisawa/riskbench/pkg/errors"
)

// missingTokens are cell values treated as a missing numeric observation.
var missingTokens = map[string]bool{"": true, "NA": true, "N/A": true, "?": true}

// FromCSV reads a headered CSV stream into a Dataset. labelCol names the
// label column, which must contain exactly two distinct values; the two class
// names are mapped to 0 and 1 in lexical order. A column whose every
// non-missing cell parses as a float is numeric, anything else categorical.
func FromCSV(r io.Reader, labelCol string) (*Dataset, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset.FromCSV: read")
	}
	if len(records) < 2 {
		return nil, errors.NewValueError("dataset.FromCSV", "need a header row and at least one record")
	}

	header := records[0]
	body := records[1:]
	labelIdx := -1
	for j, name := range header {
		if name == labelCol {
			labelIdx = j
			break
		}
	}
	if labelIdx < 0 {
		return nil, errors.NewValidationError("label_column", "not found in header", labelCol)
	}

	// Map label values to classes 0/1 in lexical order.
	seen := map[string]bool{}
	for i, rec := range body {
		if len(rec) != len(header) {
			return nil, errors.Newf("dataset.FromCSV: record %d has %d fields, header has %d", i+1, len(rec), len(header))
		}
		v := rec[labelIdx]
		if missingTokens[v] {
			return nil, errors.Newf("dataset.FromCSV: record %d has a missing label", i+1)
		}
		seen[v] = true
	}
	if len(seen) != 2 {
		return nil, errors.NewValidationError("label_column", "must have exactly two distinct values", len(seen))
	}
	classNames := make([]string, 0, 2)
	for v := range seen {
		classNames = append(classNames, v)
	}
	sort.Strings(classNames)

	// Infer column kinds over the full file.
	featureIdx := make([]int, 0, len(header)-1)
	for j := range header {
		if j != labelIdx {
			featureIdx = append(featureIdx, j)
		}
	}
	cols := make([]Column, len(featureIdx))
	for c, j := range featureIdx {
		numeric := true
		for _, rec := range body {
			cell := rec[j]
			if missingTokens[cell] {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}
		kind := Numeric
		if !numeric {
			kind = Categorical
		}
		cols[c] = Column{Name: header[j], Kind: kind}
	}

	rows := make([][]float64, len(body))
	labels := make([]int, len(body))
	levelIdx := make([]map[string]int, len(cols))
	for c := range cols {
		if cols[c].Kind == Categorical {
			levelIdx[c] = map[string]int{}
		}
	}
	for i, rec := range body {
		row := make([]float64, len(cols))
		for c, j := range featureIdx {
			cell := rec[j]
			switch cols[c].Kind {
			case Numeric:
				if missingTokens[cell] {
					row[c] = math.NaN()
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "dataset.FromCSV: record %d column %s", i+1, cols[c].Name)
				}
				row[c] = v
			case Categorical:
				// Missing categorical cells become their own level.
				idx, ok := levelIdx[c][cell]
				if !ok {
					idx = len(cols[c].Levels)
					cols[c].Levels = append(cols[c].Levels, cell)
					levelIdx[c][cell] = idx
				}
				row[c] = float64(idx)
			}
		}
		rows[i] = row
		if rec[labelIdx] == classNames[1] {
			labels[i] = 1
		}
	}

	return New(labelCol, [2]string{classNames[0], classNames[1]}, cols, rows, labels)
}

// FromCSVFile opens path and loads it via FromCSV.
func FromCSVFile(path, labelCol string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataset.FromCSVFile")
	}
	defer f.Close()
	return FromCSV(f, labelCol)
}
