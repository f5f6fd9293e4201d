package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTrips forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordTrips(recs []TripRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordTrips(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordDispatchRun forwards run events to sinks that support them.
func (m *MultiSink) RecordDispatchRun(ev DispatchRunEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DispatchRunRecorder); ok {
			if err := rec.RecordDispatchRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNotifyLatency forwards latency records to sinks that support them.
func (m *MultiSink) RecordNotifyLatency(lat []NotifyLatency) error {
	for _, s := range m.Sinks {
		if lr, ok := s.(LatencyRecorder); ok {
			if err := lr.RecordNotifyLatency(lat); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards fleet size updates to sinks that support them.
func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(FleetSizeRecorder); ok {
			if err := fr.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}
