package dispatch

import "github.com/ngochaukiet2005/shuttle-dispatch/core/model"

// resolveLegAddresses returns the boarding and alighting addresses for
// one request. The passenger-supplied fields already encode the leg;
// the direction decides which side is the station endpoint, so an
// empty station-side field falls back to the configured station
// address.
func resolveLegAddresses(r model.ShuttleRequest, station string) (pickup, dropoff string) {
	pickup, dropoff = r.Pickup, r.Dropoff
	switch r.Direction {
	case model.HomeToStation:
		if dropoff == "" {
			dropoff = station
		}
	case model.StationToHome:
		if pickup == "" {
			pickup = station
		}
	}
	return pickup, dropoff
}
