package tuning

import (
	"math"
	"math/rand/v2"

	"github.com/aokisawa/riskbench/models"
	"github.com/aokisawa/riskbench/pkg/errors"
)

// gridCandidates is how many random unit-cube candidates compete for each
// design slot; the one farthest from the already-chosen points wins.
const gridCandidates = 64

// GridDesign generates up to n candidate points spread through the search
// space by a sequential maxmin criterion: each new point maximizes its
// minimum distance to every previous point in normalized (unit-cube)
// parameter space. The design depends only on the space, n and the seed, not
// on any evaluation feedback. Snapping discrete dimensions can collapse unit
// points onto each other, so fewer than n points may come back for small
// discrete spaces.
func GridDesign(space models.Space, n int, seed int64) ([]models.Point, error) {
	if len(space.Dims) == 0 {
		return nil, errors.NewValidationError("space", "has no dimensions", nil)
	}
	if n < 1 {
		return nil, errors.NewValidationError("grid_size", "must be at least 1", n)
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	dims := len(space.Dims)

	var chosen [][]float64
	points := make([]models.Point, 0, n)
	seen := map[string]bool{}

	for len(points) < n {
		var best []float64
		bestDist := -1.0
		for c := 0; c < gridCandidates; c++ {
			cand := make([]float64, dims)
			for d := range cand {
				cand[d] = r.Float64()
			}
			dist := minDistance(cand, chosen)
			if dist > bestDist {
				bestDist = dist
				best = cand
			}
		}

		point := make(models.Point, dims)
		for d, dim := range space.Dims {
			point[dim.Name] = dim.FromUnit(best[d])
		}
		key := point.Key()
		if seen[key] {
			// Discrete snapping produced a duplicate; with every slot
			// taken there is nothing left to place.
			if len(chosen) >= totalLevels(space) && allDiscrete(space) {
				break
			}
			chosen = append(chosen, best)
			continue
		}
		seen[key] = true
		chosen = append(chosen, best)
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, errors.NewValueError("GridDesign", "no candidate points generated")
	}
	return points, nil
}

func minDistance(cand []float64, chosen [][]float64) float64 {
	if len(chosen) == 0 {
		return math.Inf(1)
	}
	minD := math.Inf(1)
	for _, p := range chosen {
		sum := 0.0
		for d := range cand {
			diff := cand[d] - p[d]
			sum += diff * diff
		}
		if sum < minD {
			minD = sum
		}
	}
	return minD
}

func allDiscrete(space models.Space) bool {
	for _, d := range space.Dims {
		if d.Kind != models.Discrete {
			return false
		}
	}
	return true
}

func totalLevels(space models.Space) int {
	total := 1
	for _, d := range space.Dims {
		if d.Kind == models.Discrete {
			total *= len(d.Levels)
		}
	}
	return total
}
