package geo

import (
	"context"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// IdentityOptimizer returns waypoints in their original order. It is
// the fallback when no routing provider is configured or reachable.
type IdentityOptimizer struct{}

// Optimize implements RouteOptimizer.
func (IdentityOptimizer) Optimize(_ context.Context, _ model.Coordinate, waypoints []Waypoint) ([]int, error) {
	return Identity(len(waypoints)), nil
}

// StaticGeocoder resolves every address to a fixed coordinate. It is
// used in tests and as the degraded mode when no geocoding provider is
// configured.
type StaticGeocoder struct {
	Coordinate model.Coordinate
}

// Resolve implements Geocoder.
func (g StaticGeocoder) Resolve(context.Context, string) (model.Coordinate, error) {
	return g.Coordinate, nil
}
