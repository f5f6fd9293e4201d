package geo

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

const earthRadiusKm = 6371.0

// NearestNeighborOptimizer builds a tour with a greedy nearest-neighbor
// walk from the origin over a haversine distance matrix and improves it
// with 2-opt passes. It is the in-process default when no external
// routing provider is configured.
type NearestNeighborOptimizer struct {
	// MaxImprovementRounds bounds the 2-opt passes. Zero means a
	// single pass.
	MaxImprovementRounds int
}

// Optimize implements RouteOptimizer.
func (o NearestNeighborOptimizer) Optimize(_ context.Context, origin model.Coordinate, waypoints []Waypoint) ([]int, error) {
	n := len(waypoints)
	if n == 0 {
		return nil, nil
	}

	// Row/col 0 is the origin; waypoint i maps to index i+1.
	dist := mat.NewDense(n+1, n+1, nil)
	points := make([]model.Coordinate, n+1)
	points[0] = origin
	for i, w := range waypoints {
		points[i+1] = w.Location
	}
	for i := 0; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			d := haversineKm(points[i], points[j])
			dist.Set(i, j, d)
			dist.Set(j, i, d)
		}
	}

	perm := o.greedyTour(dist, n)
	rounds := o.MaxImprovementRounds
	if rounds <= 0 {
		rounds = 1
	}
	for r := 0; r < rounds; r++ {
		if !improveTour(dist, perm) {
			break
		}
	}
	return perm, nil
}

// greedyTour walks from the origin to the closest unvisited waypoint.
func (o NearestNeighborOptimizer) greedyTour(dist *mat.Dense, n int) []int {
	visited := make([]bool, n)
	perm := make([]int, 0, n)
	current := 0
	for len(perm) < n {
		best := -1
		bestDist := math.Inf(1)
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if d := dist.At(current, i+1); d < bestDist {
				best = i
				bestDist = d
			}
		}
		visited[best] = true
		perm = append(perm, best)
		current = best + 1
	}
	return perm
}

// improveTour applies one 2-opt pass reversing segments that shorten
// the tour. It reports whether any improvement was made.
func improveTour(dist *mat.Dense, perm []int) bool {
	improved := false
	n := len(perm)
	at := func(i int) int {
		if i < 0 {
			return 0 // origin
		}
		return perm[i] + 1
	}
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			// Cost of edges (i-1,i) and (j,j+1) against the reversed
			// alternative (i-1,j) and (i,j+1). The tour is open-ended,
			// so a missing j+1 contributes nothing.
			removed := dist.At(at(i-1), at(i))
			added := dist.At(at(i-1), at(j))
			if j+1 < n {
				removed += dist.At(at(j), at(j+1))
				added += dist.At(at(i), at(j+1))
			}
			if added < removed-1e-9 {
				for l, r := i, j; l < r; l, r = l+1, r-1 {
					perm[l], perm[r] = perm[r], perm[l]
				}
				improved = true
			}
		}
	}
	return improved
}

// haversineKm computes the great-circle distance between two points.
func haversineKm(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
