package tuning

import (
	"testing"

	"github.com/aokisawa/riskbench/models"
)

func continuousSpace() models.Space {
	return models.Space{Dims: []models.Dimension{
		{Name: "c", Kind: models.Continuous, Lo: 1e-3, Hi: 1e2, Log: true},
		{Name: "lr", Kind: models.Continuous, Lo: 0.01, Hi: 0.3},
	}}
}

func TestGridDesign(t *testing.T) {
	space := continuousSpace()

	points, err := GridDesign(space, 25, 42)
	if err != nil {
		t.Fatalf("GridDesign() error = %v", err)
	}
	if len(points) != 25 {
		t.Fatalf("GridDesign() returned %d points, want 25", len(points))
	}

	seen := map[string]bool{}
	for _, p := range points {
		if err := space.Validate(p); err != nil {
			t.Errorf("point %s invalid: %v", p.Key(), err)
		}
		if seen[p.Key()] {
			t.Errorf("duplicate point %s", p.Key())
		}
		seen[p.Key()] = true
	}
}

func TestGridDesignDeterministic(t *testing.T) {
	space := continuousSpace()

	a, err := GridDesign(space, 10, 7)
	if err != nil {
		t.Fatalf("GridDesign() error = %v", err)
	}
	b, err := GridDesign(space, 10, 7)
	if err != nil {
		t.Fatalf("GridDesign() error = %v", err)
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("point %d differs for identical seeds: %s vs %s", i, a[i].Key(), b[i].Key())
		}
	}

	c, err := GridDesign(space, 10, 8)
	if err != nil {
		t.Fatalf("GridDesign() error = %v", err)
	}
	same := true
	for i := range a {
		if !a[i].Equal(c[i]) {
			same = false
			break
		}
	}
	if same {
		t.Errorf("different seeds produced identical designs")
	}
}

func TestGridDesignSmallDiscreteSpace(t *testing.T) {
	space := models.Space{Dims: []models.Dimension{
		{Name: "k", Kind: models.Discrete, Levels: []float64{1, 2}},
		{Name: "m", Kind: models.Discrete, Levels: []float64{5, 10}},
	}}

	// Asking for more points than the space holds returns every combination
	// once, not an error.
	points, err := GridDesign(space, 25, 3)
	if err != nil {
		t.Fatalf("GridDesign() error = %v", err)
	}
	if len(points) > 4 {
		t.Errorf("GridDesign() returned %d points from a 4-point space", len(points))
	}
	seen := map[string]bool{}
	for _, p := range points {
		if seen[p.Key()] {
			t.Errorf("duplicate point %s", p.Key())
		}
		seen[p.Key()] = true
	}
}

func TestGridDesignErrors(t *testing.T) {
	if _, err := GridDesign(models.Space{}, 5, 1); err == nil {
		t.Errorf("GridDesign() with empty space error = nil, want error")
	}
	if _, err := GridDesign(continuousSpace(), 0, 1); err == nil {
		t.Errorf("GridDesign(n=0) error = nil, want error")
	}
}
