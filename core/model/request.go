package model

import (
	"fmt"
	"time"
)

// Direction defines which way a shuttle request travels relative to the
// station.
type Direction int

const (
	HomeToStation Direction = iota
	StationToHome
)

// String returns a human-readable representation of the direction.
func (d Direction) String() string {
	switch d {
	case HomeToStation:
		return "home_to_station"
	case StationToHome:
		return "station_to_home"
	default:
		return "unknown"
	}
}

// DirectionFromString parses a direction name. The boolean reports
// whether the name was recognised.
func DirectionFromString(s string) (Direction, bool) {
	switch s {
	case "home_to_station":
		return HomeToStation, true
	case "station_to_home":
		return StationToHome, true
	default:
		return 0, false
	}
}

// RequestStatus is the lifecycle state of a shuttle request.
type RequestStatus string

const (
	RequestWaiting   RequestStatus = "waiting"
	RequestAssigned  RequestStatus = "assigned"
	RequestRunning   RequestStatus = "running"
	RequestCompleted RequestStatus = "completed"
	RequestNoShow    RequestStatus = "no_show"
	RequestCancelled RequestStatus = "cancelled"
)

// ShuttleRequest is one passenger's single-direction trip need bound to
// a time slot. TripID is set exactly when the request has been assigned
// to a trip (status assigned, running, completed or no_show).
type ShuttleRequest struct {
	ID          string        `json:"id"`
	PassengerID string        `json:"passenger_id"`
	TicketCode  string        `json:"ticket_code"`
	Direction   Direction     `json:"direction"`
	Pickup      string        `json:"pickup_location"`
	Dropoff     string        `json:"dropoff_location"`
	TimeSlot    time.Time     `json:"time_slot"`
	Status      RequestStatus `json:"status"`
	TripID      string        `json:"trip_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Validate checks the request invariants, in particular that TripID is
// set iff the request has reached an assigned-or-later state.
func (r ShuttleRequest) Validate() error {
	if r.PassengerID == "" {
		return fmt.Errorf("passenger id is required")
	}
	if r.TimeSlot.IsZero() {
		return fmt.Errorf("time slot is required")
	}
	linked := r.Status == RequestAssigned || r.Status == RequestRunning ||
		r.Status == RequestCompleted || r.Status == RequestNoShow
	if linked && r.TripID == "" {
		return fmt.Errorf("request %s is %s but has no trip", r.ID, r.Status)
	}
	if !linked && r.TripID != "" {
		return fmt.Errorf("request %s is %s but references trip %s", r.ID, r.Status, r.TripID)
	}
	return nil
}
