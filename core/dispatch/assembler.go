package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/geo"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// TripAssembler converts one (driver, batch) pair into an ordered trip.
// Geocoding failures degrade to the fallback coordinate and optimizer
// failures degrade to the identity stop order; neither aborts the
// batch.
type TripAssembler struct {
	geocoder    geo.Geocoder
	optimizer   geo.RouteOptimizer
	station     model.Coordinate
	stationAddr string
	fallback    model.Coordinate
	log         logger.Logger
}

// NewTripAssembler creates an assembler. The station coordinate is the
// optimizer origin; fallback substitutes for waypoints that could not
// be geocoded.
func NewTripAssembler(geocoder geo.Geocoder, optimizer geo.RouteOptimizer, cfg Config, log logger.Logger) (*TripAssembler, error) {
	if geocoder == nil || optimizer == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewTripAssembler")
	}
	return &TripAssembler{
		geocoder:    geocoder,
		optimizer:   optimizer,
		station:     cfg.Station(),
		stationAddr: cfg.StationAddress,
		fallback:    cfg.Fallback(),
		log:         log,
	}, nil
}

// Assemble builds the trip for one batch: two stops per request,
// geocoded concurrently, ordered by the optimizer's permutation and
// post-processed so every pickup precedes its dropoff.
func (a *TripAssembler) Assemble(ctx context.Context, driver model.Driver, batch []model.ShuttleRequest, tripID string) (*model.Trip, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("dispatch: empty batch for driver %s", driver.ID)
	}
	if len(batch) > driver.Capacity {
		return nil, fmt.Errorf("dispatch: batch of %d exceeds capacity %d of driver %s", len(batch), driver.Capacity, driver.ID)
	}

	stops := make([]model.Stop, 0, 2*len(batch))
	for _, r := range batch {
		pickup, dropoff := resolveLegAddresses(r, a.stationAddr)
		stops = append(stops,
			model.Stop{RequestID: r.ID, Address: pickup, Type: model.StopPickup, Status: model.StopPending},
			model.Stop{RequestID: r.ID, Address: dropoff, Type: model.StopDropoff, Status: model.StopPending},
		)
	}

	a.geocodeStops(ctx, stops)

	waypoints := make([]geo.Waypoint, len(stops))
	for i, s := range stops {
		waypoints[i] = geo.Waypoint{RequestID: s.RequestID, Address: s.Address, Location: s.Location}
	}
	perm, err := a.optimizer.Optimize(ctx, a.station, waypoints)
	if err != nil || !geo.ValidPermutation(perm, len(waypoints)) {
		optimizeFallbacks.Inc()
		if err != nil {
			a.log.Warnf("route optimization failed for trip %s, keeping original order: %v", tripID, err)
		} else {
			a.log.Warnf("route optimizer returned an invalid permutation for trip %s, keeping original order", tripID)
		}
		perm = geo.Identity(len(waypoints))
	}

	route := make([]model.Stop, len(stops))
	for pos, idx := range perm {
		route[pos] = stops[idx]
	}
	enforcePickupBeforeDropoff(route)
	for i := range route {
		route[i].Order = i + 1
	}

	trip := &model.Trip{
		ID:        tripID,
		VehicleID: driver.VehicleID,
		DriverID:  driver.ID,
		TimeSlot:  batch[0].TimeSlot,
		Route:     route,
		Status:    model.TripReady,
		CreatedAt: time.Now(),
	}
	if err := trip.Validate(driver.Capacity); err != nil {
		return nil, fmt.Errorf("dispatch: assembled route is invalid: %w", err)
	}
	return trip, nil
}

// geocodeStops resolves every stop address concurrently. Each goroutine
// writes only its own index.
func (a *TripAssembler) geocodeStops(ctx context.Context, stops []model.Stop) {
	var wg sync.WaitGroup
	for i := range stops {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := a.geocoder.Resolve(ctx, stops[i].Address)
			if err != nil || c.Validate() != nil {
				geocodeFallbacks.Inc()
				a.log.Warnf("geocoding %q failed, using fallback coordinate: %v", stops[i].Address, err)
				c = a.fallback
			}
			stops[i].Location = c
		}(i)
	}
	wg.Wait()
}

// enforcePickupBeforeDropoff swaps stop positions so that every
// request's pickup precedes its dropoff. The optimizer's permutation
// is not required to respect this domain invariant.
func enforcePickupBeforeDropoff(route []model.Stop) {
	pickupAt := make(map[string]int, len(route)/2)
	for i, s := range route {
		if s.Type == model.StopPickup {
			pickupAt[s.RequestID] = i
		}
	}
	for i, s := range route {
		if s.Type != model.StopDropoff {
			continue
		}
		if p, ok := pickupAt[s.RequestID]; ok && p > i {
			route[i], route[p] = route[p], route[i]
			pickupAt[s.RequestID] = i
		}
	}
}
