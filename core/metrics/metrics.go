package metrics

import (
	"time"
)

// TripRecord represents one committed trip to be recorded by a sink.
type TripRecord struct {
	TripID       string
	DriverID     string
	Slot         time.Time
	Passengers   int
	Stops        int
	Acknowledged bool
	DispatchTime time.Time
}

// MetricsSink records dispatch outcomes for observability purposes.
type MetricsSink interface {
	RecordTrips(records []TripRecord) error
}

// DispatchRunEvent captures one dispatch run for a time slot.
type DispatchRunEvent struct {
	Slot       time.Time
	Trigger    string
	Waiting    int
	Drivers    int
	Trips      int
	Assigned   int
	Unassigned int
	Duration   time.Duration
	Time       time.Time
}

// DispatchRunRecorder is implemented by sinks able to record whole runs.
type DispatchRunRecorder interface {
	RecordDispatchRun(ev DispatchRunEvent) error
}

// NotifyLatency represents the time to receive a driver acknowledgment.
type NotifyLatency struct {
	DriverID     string
	TripID       string
	Acknowledged bool
	Latency      time.Duration
}

// LatencyRecorder is implemented by sinks able to record notification latency.
type LatencyRecorder interface {
	RecordNotifyLatency(latencies []NotifyLatency) error
}

// FleetSizeRecorder records the number of active drivers seen by a run.
type FleetSizeRecorder interface {
	RecordFleetSize(n int) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTrips([]TripRecord) error            { return nil }
func (NopSink) RecordDispatchRun(DispatchRunEvent) error  { return nil }
func (NopSink) RecordNotifyLatency([]NotifyLatency) error { return nil }
func (NopSink) RecordFleetSize(int) error                 { return nil }
