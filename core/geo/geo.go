package geo

import (
	"context"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// Waypoint is a single pickup or dropoff point passed to the route
// optimizer.
type Waypoint struct {
	RequestID string
	Address   string
	Location  model.Coordinate
}

// Geocoder resolves a free-text address to coordinates. Implementations
// may fail; callers recover with a configured fallback coordinate and
// never abort a batch over a geocoding error.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (model.Coordinate, error)
}

// RouteOptimizer orders waypoints into a driving sequence. Optimize
// returns a permutation of the waypoint indices; on failure callers
// fall back to the identity order.
type RouteOptimizer interface {
	Optimize(ctx context.Context, origin model.Coordinate, waypoints []Waypoint) ([]int, error)
}

// ValidPermutation reports whether perm is a permutation of [0, n).
func ValidPermutation(perm []int, n int) bool {
	if len(perm) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range perm {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

// Identity returns the identity permutation of length n.
func Identity(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}
