package notify

import (
	"errors"
	"time"
)

// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Event names published to drivers.
const (
	EventTripAssigned = "trip_assigned"
)

// Notifier pushes events to a driver's device. Delivery is best-effort:
// the engine fires notifications without rolling back trips on failure.
type Notifier interface {
	// NotifyDriver sends the event to the given driver and returns the
	// command identifier used to track the acknowledgment.
	NotifyDriver(driverID, event string, payload any) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}
