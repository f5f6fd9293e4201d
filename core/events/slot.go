package events

import "time"

// SlotEvent is published when a dispatch run starts for a time slot.
type SlotEvent struct {
	Slot    time.Time
	Waiting int
	Drivers int
	Trigger string // "admin" or "eager"
}
