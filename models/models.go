// Package models implements the closed set of model families compared by
// riskbench, each exposing a fit/predict-probability capability and a declared
// hyperparameter search space.
package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aokisawa/riskbench/core/model"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// Classifier is a binary classifier trainable from a feature matrix.
type Classifier interface {
	model.Fitter
	model.ProbaPredictor
}

// Point is one concrete hyperparameter assignment. Identity is value
// equality; Key gives a canonical rendering usable as a map key.
type Point map[string]float64

// Clone returns an independent copy of p.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether p and q assign the same values to the same parameters.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for k, v := range p {
		if qv, ok := q[k]; !ok || qv != v {
			return false
		}
	}
	return true
}

// Key renders p canonically with sorted parameter names.
func (p Point) Key() string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%g", k, p[k])
	}
	return b.String()
}

func (p Point) String() string { return p.Key() }

// DimKind distinguishes continuous ranges from discrete level sets.
type DimKind int

const (
	// Continuous dimensions take any value in [Lo, Hi].
	Continuous DimKind = iota
	// Discrete dimensions take one of a fixed set of levels.
	Discrete
)

// Dimension is one tunable axis of a search space.
type Dimension struct {
	Name   string
	Kind   DimKind
	Lo, Hi float64   // continuous bounds
	Log    bool      // continuous dimensions sampled on a log scale
	Levels []float64 // discrete levels, ascending
}

// FromUnit maps u in [0,1] into the dimension's value range, respecting log
// scaling and snapping discrete dimensions to a level.
func (d Dimension) FromUnit(u float64) float64 {
	if u < 0 {
		u = 0
	}
	if u > 1 {
		u = 1
	}
	if d.Kind == Discrete {
		i := int(u * float64(len(d.Levels)))
		if i >= len(d.Levels) {
			i = len(d.Levels) - 1
		}
		return d.Levels[i]
	}
	if d.Log {
		return math.Exp(math.Log(d.Lo) + u*(math.Log(d.Hi)-math.Log(d.Lo)))
	}
	return d.Lo + u*(d.Hi-d.Lo)
}

// ToUnit maps a value back into [0,1]; the inverse of FromUnit up to discrete
// snapping. Used for distance computations in normalized parameter space.
func (d Dimension) ToUnit(v float64) float64 {
	if d.Kind == Discrete {
		for i, l := range d.Levels {
			if l == v {
				if len(d.Levels) == 1 {
					return 0
				}
				return float64(i) / float64(len(d.Levels)-1)
			}
		}
		return 0
	}
	if d.Hi == d.Lo {
		return 0
	}
	if d.Log {
		return (math.Log(v) - math.Log(d.Lo)) / (math.Log(d.Hi) - math.Log(d.Lo))
	}
	return (v - d.Lo) / (d.Hi - d.Lo)
}

// Clamp forces v into the dimension's bounds, snapping discrete dimensions to
// the nearest level.
func (d Dimension) Clamp(v float64) float64 {
	if d.Kind == Discrete {
		best := d.Levels[0]
		for _, l := range d.Levels[1:] {
			if math.Abs(l-v) < math.Abs(best-v) {
				best = l
			}
		}
		return best
	}
	if v < d.Lo {
		return d.Lo
	}
	if v > d.Hi {
		return d.Hi
	}
	return v
}

// Contains reports whether v is a valid value for the dimension.
func (d Dimension) Contains(v float64) bool {
	if d.Kind == Discrete {
		for _, l := range d.Levels {
			if l == v {
				return true
			}
		}
		return false
	}
	return v >= d.Lo && v <= d.Hi
}

// Space is the declared search space of one model family.
type Space struct {
	Dims []Dimension
}

// Dim looks up a dimension by name.
func (s Space) Dim(name string) (Dimension, bool) {
	for _, d := range s.Dims {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// Validate checks that p assigns exactly the space's dimensions, each within
// bounds.
func (s Space) Validate(p Point) error {
	if len(s.Dims) == 0 {
		return errors.NewValidationError("space", "has no dimensions", nil)
	}
	if len(p) != len(s.Dims) {
		return errors.NewValidationError("point", "wrong number of parameters", p.Key())
	}
	for _, d := range s.Dims {
		v, ok := p[d.Name]
		if !ok {
			return errors.NewValidationError(d.Name, "missing from point", p.Key())
		}
		if !d.Contains(v) {
			return errors.NewValidationError(d.Name, "out of bounds", v)
		}
	}
	return nil
}

// Family is one named model family: an opaque trainable-predictor capability
// paired with its hyperparameter search space.
type Family interface {
	Name() string
	Space() Space
	New(p Point) (Classifier, error)
}

// Override replaces parts of one dimension's declared range or level set.
// Nil range endpoints keep the default; Levels fully replaces a discrete
// dimension's level set.
type Override struct {
	Lo     *float64
	Hi     *float64
	Levels []float64
}

// SpaceOverrides maps family name, then dimension name, to an Override.
type SpaceOverrides map[string]map[string]Override

// DefaultRegistry returns the fixed, ordered set of compared families with
// their declared search spaces. The order is the deterministic tie-break
// order during selection.
func DefaultRegistry(seed int64) []Family {
	reg, _ := NewRegistry(seed, nil)
	return reg
}

// NewRegistry builds the registry with configured search-space overrides
// applied on top of each family's default space. Unknown family or dimension
// names and overrides incompatible with a dimension's kind are errors.
func NewRegistry(seed int64, ov SpaceOverrides) ([]Family, error) {
	spaces := map[string]Space{
		"logreg":      defaultLogregSpace(),
		"svm_linear":  defaultSVMSpace(),
		"gbt":         defaultGBTSpace(),
		"naive_bayes": defaultBayesSpace(),
		"tree":        defaultTreeSpace(),
	}
	for famName, dims := range ov {
		space, ok := spaces[famName]
		if !ok {
			return nil, errors.NewValidationError("spaces", "unknown model family", famName)
		}
		for dimName, o := range dims {
			applied := false
			for i, d := range space.Dims {
				if d.Name != dimName {
					continue
				}
				merged, err := applyOverride(famName, d, o)
				if err != nil {
					return nil, err
				}
				space.Dims[i] = merged
				applied = true
			}
			if !applied {
				return nil, errors.NewValidationError("spaces."+famName, "unknown dimension", dimName)
			}
		}
		spaces[famName] = space
	}
	return []Family{
		logregFamily{seed: seed, space: spaces["logreg"]},
		svmFamily{seed: seed, space: spaces["svm_linear"]},
		gbtFamily{seed: seed, space: spaces["gbt"]},
		bayesFamily{space: spaces["naive_bayes"]},
		treeFamily{space: spaces["tree"]},
	}, nil
}

func applyOverride(famName string, d Dimension, o Override) (Dimension, error) {
	field := "spaces." + famName + "." + d.Name
	if d.Kind == Discrete {
		if o.Lo != nil || o.Hi != nil {
			return d, errors.NewValidationError(field, "discrete dimension takes levels, not a range", nil)
		}
		if len(o.Levels) == 0 {
			return d, errors.NewValidationError(field, "levels must not be empty", nil)
		}
		levels := append([]float64{}, o.Levels...)
		sort.Float64s(levels)
		d.Levels = levels
		return d, nil
	}
	if len(o.Levels) > 0 {
		return d, errors.NewValidationError(field, "continuous dimension takes a range, not levels", nil)
	}
	if o.Lo != nil {
		d.Lo = *o.Lo
	}
	if o.Hi != nil {
		d.Hi = *o.Hi
	}
	if d.Lo >= d.Hi {
		return d, errors.NewValidationError(field, "range is empty", nil)
	}
	if d.Log && d.Lo <= 0 {
		return d, errors.NewValidationError(field, "log-scale range must be positive", d.Lo)
	}
	return d, nil
}

// FindFamily returns the registered family with the given name.
func FindFamily(registry []Family, name string) (Family, error) {
	for _, f := range registry {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, errors.Newf("unknown model family %q", name)
}
