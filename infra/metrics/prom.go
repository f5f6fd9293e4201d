package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/ngochaukiet2005/shuttle-dispatch/core/metrics"
)

// PromSink records dispatch outcomes in Prometheus metrics.
type PromSink struct {
	trips   *prometheus.CounterVec
	runs    *prometheus.CounterVec
	latency *prometheus.HistogramVec
	fleet   prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	trips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_trip_events_total",
		Help: "Total number of committed trips",
	}, []string{"driver_id", "acknowledged"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Total number of dispatch runs",
	}, []string{"trigger"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driver_notify_latency_seconds",
		Help:    "Time between trip notification and driver acknowledgment",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver_id", "acknowledged"})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_active_drivers_total",
		Help: "Number of active drivers seen by the latest dispatch run",
	})

	if err := reg.Register(trips); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			trips = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(fleet); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			fleet = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{trips: trips, runs: runs, latency: latency, fleet: fleet}, nil
}

// RecordTrips increments the counter for each committed trip.
func (s *PromSink) RecordTrips(recs []coremetrics.TripRecord) error {
	for _, r := range recs {
		s.trips.WithLabelValues(r.DriverID, strconv.FormatBool(r.Acknowledged)).Inc()
	}
	return nil
}

// RecordDispatchRun counts the run under its trigger mode.
func (s *PromSink) RecordDispatchRun(ev coremetrics.DispatchRunEvent) error {
	s.runs.WithLabelValues(ev.Trigger).Inc()
	return nil
}

// RecordNotifyLatency records the acknowledgment latency histogram.
func (s *PromSink) RecordNotifyLatency(recs []coremetrics.NotifyLatency) error {
	for _, r := range recs {
		s.latency.WithLabelValues(r.DriverID, strconv.FormatBool(r.Acknowledged)).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordFleetSize sets the gauge to the number of active drivers.
func (s *PromSink) RecordFleetSize(size int) error {
	if s.fleet != nil {
		s.fleet.Set(float64(size))
	}
	return nil
}
