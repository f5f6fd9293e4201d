package events

import "time"

// TripEvent is published for each trip committed by a dispatch run.
type TripEvent struct {
	TripID     string
	DriverID   string
	Slot       time.Time
	Passengers int
	Stops      int
}

// BatchFailureEvent is emitted when one driver's batch could not be
// assembled. Other batches of the same run proceed.
type BatchFailureEvent struct {
	DriverID string
	Slot     time.Time
	Err      error
}
