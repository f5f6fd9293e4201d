package dispatch

import (
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// Trigger identifies what started a dispatch run.
const (
	TriggerAdmin     = "admin"
	TriggerEager     = "eager"
	TriggerScheduled = "scheduled"
)

// Batch is the subset of waiting requests allocated to one driver in
// one dispatch run.
type Batch struct {
	Driver   model.Driver
	Requests []model.ShuttleRequest
}

// Result contains the outcome of a dispatch run for one time slot.
type Result struct {
	Success bool         `json:"success"`
	Trips   []model.Trip `json:"trips"`
	Message string       `json:"message,omitempty"`

	Slot       time.Time        `json:"time_slot"`
	Assigned   int              `json:"assigned"`
	Unassigned int              `json:"unassigned"`
	Errors     map[string]error `json:"-"` // per driver id
}

// TripAssignment is the notification payload sent to a driver when a
// trip is committed.
type TripAssignment struct {
	TripID   string       `json:"trip_id"`
	TimeSlot time.Time    `json:"time_slot"`
	Stops    []model.Stop `json:"stops"`
}
