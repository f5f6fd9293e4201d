package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchDuration  *prometheus.HistogramVec
	requestsAssigned  *prometheus.CounterVec
	tripsCreated      *prometheus.CounterVec
	geocodeFallbacks  prometheus.Counter
	optimizeFallbacks prometheus.Counter
	notifySuccess     prometheus.Counter
	notifyFailure     prometheus.Counter
	ackRate           *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter, *prometheus.GaugeVec) {
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_run_duration_seconds",
			Help:    "Duration of a dispatch run for one time slot",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)
	req := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_assigned_total",
			Help: "Number of shuttle requests assigned to trips",
		},
		[]string{"trigger"},
	)
	trips := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trips_created_total",
			Help: "Number of trips committed by dispatch runs",
		},
		[]string{"trigger"},
	)
	geo := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geocode_fallback_total",
			Help: "Number of waypoints routed with the fallback coordinate",
		},
	)
	opt := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "route_optimize_fallback_total",
			Help: "Number of trips routed with the identity stop order",
		},
	)
	suc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_notify_success_total",
			Help: "Number of successful driver notifications",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_notify_failure_total",
			Help: "Number of failed driver notifications",
		},
	)
	ack := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "driver_ack_rate",
			Help: "Acknowledgment rate for trip notifications",
		},
		[]string{"trigger"},
	)
	return dur, req, trips, geo, opt, suc, fail, ack
}

func init() {
	dispatchDuration, requestsAssigned, tripsCreated, geocodeFallbacks, optimizeFallbacks, notifySuccess, notifyFailure, ackRate = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchDuration, requestsAssigned, tripsCreated, geocodeFallbacks, optimizeFallbacks, notifySuccess, notifyFailure, ackRate)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchDuration, requestsAssigned, tripsCreated, geocodeFallbacks, optimizeFallbacks, notifySuccess, notifyFailure, ackRate = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
