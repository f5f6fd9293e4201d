package events

import "time"

// NotifyEvent is published for each driver notification attempt.
type NotifyEvent struct {
	DriverID     string
	TripID       string
	Acknowledged bool
	Err          error
	Latency      time.Duration
}
