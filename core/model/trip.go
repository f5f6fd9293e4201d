package model

import (
	"fmt"
	"time"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripReady     TripStatus = "ready"
	TripRunning   TripStatus = "running"
	TripCompleted TripStatus = "completed"
)

// StopType distinguishes boarding from alighting stops.
type StopType string

const (
	StopPickup  StopType = "pickup"
	StopDropoff StopType = "dropoff"
)

// StopStatus is the execution state of a single stop.
type StopStatus string

const (
	StopPending    StopStatus = "pending"
	StopPickedUp   StopStatus = "picked_up"
	StopDroppedOff StopStatus = "dropped_off"
	StopNoShow     StopStatus = "no_show"
)

// Stop is one waypoint of a trip route. Order is the 1-based position
// in the driving sequence and is unique within a trip.
type Stop struct {
	RequestID string     `json:"request_id"`
	Address   string     `json:"address"`
	Location  Coordinate `json:"location"`
	Type      StopType   `json:"type"`
	Order     int        `json:"order"`
	Status    StopStatus `json:"status"`
}

// Trip is one vehicle's assignment for a time slot. The route
// composition is immutable after creation: stops only change status,
// never membership or order.
type Trip struct {
	ID        string     `json:"id"`
	VehicleID string     `json:"vehicle_id"`
	DriverID  string     `json:"driver_id"`
	TimeSlot  time.Time  `json:"time_slot"`
	Route     []Stop     `json:"route"`
	Status    TripStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// RequestIDs returns the distinct request ids referenced by the route,
// in first-appearance order.
func (t Trip) RequestIDs() []string {
	seen := make(map[string]bool, len(t.Route)/2)
	var ids []string
	for _, s := range t.Route {
		if !seen[s.RequestID] {
			seen[s.RequestID] = true
			ids = append(ids, s.RequestID)
		}
	}
	return ids
}

// Validate checks the route invariants: every referenced request has
// exactly one pickup and one dropoff, the pickup precedes the dropoff,
// orders are unique and 1-based, and the passenger count does not
// exceed the given seat capacity.
func (t Trip) Validate(capacity int) error {
	type legs struct {
		pickup, dropoff int
	}
	byRequest := make(map[string]*legs)
	orders := make(map[int]bool, len(t.Route))
	for _, s := range t.Route {
		if s.Order < 1 || s.Order > len(t.Route) {
			return fmt.Errorf("trip %s: stop order %d out of range", t.ID, s.Order)
		}
		if orders[s.Order] {
			return fmt.Errorf("trip %s: duplicate stop order %d", t.ID, s.Order)
		}
		orders[s.Order] = true
		l := byRequest[s.RequestID]
		if l == nil {
			l = &legs{}
			byRequest[s.RequestID] = l
		}
		switch s.Type {
		case StopPickup:
			if l.pickup != 0 {
				return fmt.Errorf("trip %s: request %s has two pickups", t.ID, s.RequestID)
			}
			l.pickup = s.Order
		case StopDropoff:
			if l.dropoff != 0 {
				return fmt.Errorf("trip %s: request %s has two dropoffs", t.ID, s.RequestID)
			}
			l.dropoff = s.Order
		default:
			return fmt.Errorf("trip %s: unknown stop type %q", t.ID, s.Type)
		}
	}
	for id, l := range byRequest {
		if l.pickup == 0 || l.dropoff == 0 {
			return fmt.Errorf("trip %s: request %s is missing a leg", t.ID, id)
		}
		if l.pickup >= l.dropoff {
			return fmt.Errorf("trip %s: request %s dropoff before pickup", t.ID, id)
		}
	}
	if capacity > 0 && len(byRequest) > capacity {
		return fmt.Errorf("trip %s: %d passengers exceed capacity %d", t.ID, len(byRequest), capacity)
	}
	return nil
}
