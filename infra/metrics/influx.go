package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/ngochaukiet2005/shuttle-dispatch/core/metrics"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTrips writes committed trips as line protocol events.
func (s *InfluxSink) RecordTrips(recs []coremetrics.TripRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("trip_event").
			AddTag("trip_id", r.TripID).
			AddTag("driver_id", r.DriverID).
			AddTag("acknowledged", strconv.FormatBool(r.Acknowledged)).
			AddTag("component", "dispatch_engine").
			AddField("passengers", r.Passengers).
			AddField("stops", r.Stops).
			AddField("slot", r.Slot.Unix()).
			SetTime(r.DispatchTime)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordDispatchRun persists a whole run summary.
func (s *InfluxSink) RecordDispatchRun(ev coremetrics.DispatchRunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("trigger", ev.Trigger).
		AddTag("component", "dispatch_engine").
		AddField("waiting", ev.Waiting).
		AddField("drivers", ev.Drivers).
		AddField("trips", ev.Trips).
		AddField("assigned", ev.Assigned).
		AddField("unassigned", ev.Unassigned).
		AddField("duration_ms", ev.Duration.Seconds()*1000).
		AddField("slot", ev.Slot.Unix()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordNotifyLatency records acknowledgment latencies.
func (s *InfluxSink) RecordNotifyLatency(recs []coremetrics.NotifyLatency) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("driver_ack").
			AddTag("driver_id", r.DriverID).
			AddTag("trip_id", r.TripID).
			AddTag("acknowledged", strconv.FormatBool(r.Acknowledged)).
			AddTag("component", "dispatch_engine").
			AddField("latency_ms", r.Latency.Seconds()*1000).
			SetTime(time.Now())
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordFleetSize writes the active driver count.
func (s *InfluxSink) RecordFleetSize(size int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fleet_size").
		AddTag("component", "dispatch_engine").
		AddField("active_drivers", size).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
