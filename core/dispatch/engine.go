package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch/logging"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/events"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/metrics"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/notify"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/schedule"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
	"github.com/ngochaukiet2005/shuttle-dispatch/internal/eventbus"
)

// Engine orchestrates dispatch runs: allocation, trip assembly, the
// conditional commit and driver notification. It is safe to invoke
// concurrently for the same slot; the store's conditional claims
// guarantee at-most-once assignment per request.
type Engine struct {
	st         store.Store
	allocator  CapacityAllocator
	assembler  *TripAssembler
	notifier   notify.Notifier
	slots      schedule.SlotConfig
	ackTimeout time.Duration
	logger     logger.Logger
	metrics    metrics.MetricsSink
	bus        eventbus.EventBus
	logStore   logging.LogStore
	mu         sync.Mutex
}

// NewEngine creates an engine. ackTimeout defines the maximum duration
// to wait for driver acknowledgments; if zero, five seconds are used.
func NewEngine(st store.Store, assembler *TripAssembler, notifier notify.Notifier, slots schedule.SlotConfig, ackTimeout time.Duration, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*Engine, error) {
	if st == nil || assembler == nil || notifier == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	if ackTimeout <= 0 {
		ackTimeout = 5 * time.Second
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	slots.SetDefaults()
	return &Engine{
		st:         st,
		assembler:  assembler,
		notifier:   notifier,
		slots:      slots,
		ackTimeout: ackTimeout,
		logger:     log,
		metrics:    sink,
		bus:        bus,
	}, nil
}

// SetLogStore configures the store used to persist dispatch audit logs.
func (e *Engine) SetLogStore(s logging.LogStore) {
	e.mu.Lock()
	e.logStore = s
	e.mu.Unlock()
}

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	if e.bus != nil {
		e.bus.Close()
	}
	e.mu.Lock()
	ls := e.logStore
	e.mu.Unlock()
	if ls != nil {
		return ls.Close()
	}
	return nil
}

// Dispatch runs the batching process for one time slot. The slot is
// normalized to its bucket start, so both trigger modes converge on
// the same set of waiting requests. Empty request or driver pools are
// a no-op, not an error. A failure in one driver's batch is isolated:
// remaining batches are still attempted and the result reports partial
// success.
func (e *Engine) Dispatch(ctx context.Context, slot time.Time, trigger string) (Result, error) {
	slot = e.slots.Normalize(slot)
	start := time.Now()

	waiting, err := e.st.FindWaiting(ctx, slot)
	if err != nil {
		return Result{Slot: slot}, fmt.Errorf("dispatch: load waiting requests: %w", err)
	}
	drivers, err := e.st.FindActive(ctx)
	if err != nil {
		return Result{Slot: slot}, fmt.Errorf("dispatch: load active drivers: %w", err)
	}
	if fr, ok := e.metrics.(metrics.FleetSizeRecorder); ok {
		if err := fr.RecordFleetSize(len(drivers)); err != nil {
			e.logger.Errorf("fleet size metrics error: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(events.SlotEvent{Slot: slot, Waiting: len(waiting), Drivers: len(drivers), Trigger: trigger})
	}

	result := Result{Success: true, Slot: slot, Errors: make(map[string]error)}
	if len(waiting) == 0 {
		result.Message = "no waiting requests for slot"
		return result, nil
	}
	if len(drivers) == 0 {
		result.Message = "no active drivers"
		result.Unassigned = len(waiting)
		return result, nil
	}

	batches := e.allocator.Allocate(waiting, drivers)
	e.logger.Infof("dispatching slot %s: %d waiting requests across %d drivers (%d batches)",
		slot.Format(time.RFC3339), len(waiting), len(drivers), len(batches))

	for _, b := range batches {
		trip, err := e.commitBatch(ctx, b)
		if err != nil {
			e.logger.Errorf("batch for driver %s failed: %v", b.Driver.ID, err)
			result.Errors[b.Driver.ID] = err
			if e.bus != nil {
				e.bus.Publish(events.BatchFailureEvent{DriverID: b.Driver.ID, Slot: slot, Err: err})
			}
			continue
		}
		if trip == nil {
			// Lost the claim race to a concurrent invocation.
			continue
		}
		result.Trips = append(result.Trips, *trip)
		result.Assigned += len(trip.RequestIDs())
		tripsCreated.WithLabelValues(trigger).Inc()
		if e.bus != nil {
			e.bus.Publish(events.TripEvent{
				TripID:     trip.ID,
				DriverID:   trip.DriverID,
				Slot:       slot,
				Passengers: len(trip.RequestIDs()),
				Stops:      len(trip.Route),
			})
		}
	}
	result.Unassigned = len(waiting) - result.Assigned
	requestsAssigned.WithLabelValues(trigger).Add(float64(result.Assigned))
	if len(result.Errors) > 0 {
		result.Message = fmt.Sprintf("%d of %d batches failed", len(result.Errors), len(batches))
		if len(result.Trips) == 0 {
			result.Success = false
		}
	}

	acks := e.notifyDrivers(result.Trips, trigger)
	dispatchDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	e.recordRun(result, trigger, len(waiting), len(drivers), time.Since(start), acks)
	e.appendLog(ctx, result, trigger, len(waiting), drivers)
	return result, nil
}

// commitBatch claims the driver and requests through conditional store
// updates, assembles the route for whatever slice was won and persists
// the trip. Returning (nil, nil) means the whole batch was claimed by
// a concurrent run.
func (e *Engine) commitBatch(ctx context.Context, b Batch) (*model.Trip, error) {
	won, err := e.st.ClaimDriver(ctx, b.Driver.ID)
	if err != nil {
		return nil, fmt.Errorf("claim driver: %w", err)
	}
	if !won {
		return nil, nil
	}

	tripID := uuid.NewString()
	ids := make([]string, len(b.Requests))
	for i, r := range b.Requests {
		ids[i] = r.ID
	}
	claimed, err := e.st.ClaimRequests(ctx, ids, tripID)
	if err != nil {
		e.releaseDriver(ctx, b.Driver.ID)
		return nil, fmt.Errorf("claim requests: %w", err)
	}
	if len(claimed) == 0 {
		e.releaseDriver(ctx, b.Driver.ID)
		return nil, nil
	}
	wonSet := make(map[string]bool, len(claimed))
	for _, id := range claimed {
		wonSet[id] = true
	}
	batch := make([]model.ShuttleRequest, 0, len(claimed))
	for _, r := range b.Requests {
		if wonSet[r.ID] {
			batch = append(batch, r)
		}
	}

	trip, err := e.assembler.Assemble(ctx, b.Driver, batch, tripID)
	if err != nil {
		e.rollbackClaim(ctx, claimed, b.Driver.ID)
		return nil, err
	}
	if err := e.st.CreateTrip(ctx, trip); err != nil {
		e.rollbackClaim(ctx, claimed, b.Driver.ID)
		return nil, fmt.Errorf("persist trip: %w", err)
	}
	return trip, nil
}

// rollbackClaim reverts request and driver claims after an assembly or
// persistence failure. Reverts are best-effort: a failed revert leaves
// the aggregates for manual reconciliation and is only logged.
func (e *Engine) rollbackClaim(ctx context.Context, requestIDs []string, driverID string) {
	if err := e.st.ReleaseRequests(ctx, requestIDs); err != nil {
		e.logger.Errorf("release requests after failed batch: %v", err)
	}
	e.releaseDriver(ctx, driverID)
}

func (e *Engine) releaseDriver(ctx context.Context, id string) {
	if err := e.st.ReleaseDriver(ctx, id); err != nil {
		e.logger.Errorf("release driver %s: %v", id, err)
	}
}

// notifyDrivers publishes trip assignments concurrently and waits for
// acknowledgments. Notification is best-effort: failures never roll
// back committed trips.
func (e *Engine) notifyDrivers(trips []model.Trip, trigger string) map[string]bool {
	acks := make(map[string]bool, len(trips))
	if len(trips) == 0 {
		return acks
	}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		latencies []metrics.NotifyLatency
		ackCount  int
	)
	for _, t := range trips {
		wg.Add(1)
		go func(t model.Trip) {
			defer wg.Done()
			start := time.Now()
			ack, err := e.sendAssignment(t)
			dur := time.Since(start)
			mu.Lock()
			defer mu.Unlock()
			acks[t.ID] = err == nil && ack
			if err == nil && ack {
				ackCount++
			}
			if err != nil {
				e.logger.Warnf("notify driver %s for trip %s: %v", t.DriverID, t.ID, err)
			}
			latencies = append(latencies, metrics.NotifyLatency{
				DriverID:     t.DriverID,
				TripID:       t.ID,
				Acknowledged: err == nil && ack,
				Latency:      dur,
			})
			if e.bus != nil {
				e.bus.Publish(events.NotifyEvent{
					DriverID:     t.DriverID,
					TripID:       t.ID,
					Acknowledged: err == nil && ack,
					Err:          err,
					Latency:      dur,
				})
			}
		}(t)
	}
	wg.Wait()
	ackRate.WithLabelValues(trigger).Set(float64(ackCount) / float64(len(trips)))
	if lr, ok := e.metrics.(metrics.LatencyRecorder); ok {
		if err := lr.RecordNotifyLatency(latencies); err != nil {
			e.logger.Errorf("latency metrics error: %v", err)
		}
	}
	return acks
}

// sendAssignment publishes one trip to its driver and waits for the ack.
func (e *Engine) sendAssignment(t model.Trip) (bool, error) {
	payload := TripAssignment{TripID: t.ID, TimeSlot: t.TimeSlot, Stops: t.Route}
	cmdID, err := e.notifier.NotifyDriver(t.DriverID, notify.EventTripAssigned, payload)
	if err != nil {
		notifyFailure.Inc()
		return false, err
	}
	notifySuccess.Inc()
	return e.notifier.WaitForAck(cmdID, e.ackTimeout)
}

// recordRun persists run metrics if a sink is configured.
func (e *Engine) recordRun(res Result, trigger string, waiting, drivers int, dur time.Duration, acks map[string]bool) {
	recs := make([]metrics.TripRecord, 0, len(res.Trips))
	for _, t := range res.Trips {
		recs = append(recs, metrics.TripRecord{
			TripID:       t.ID,
			DriverID:     t.DriverID,
			Slot:         t.TimeSlot,
			Passengers:   len(t.RequestIDs()),
			Stops:        len(t.Route),
			Acknowledged: acks[t.ID],
			DispatchTime: t.CreatedAt,
		})
	}
	if err := e.metrics.RecordTrips(recs); err != nil {
		e.logger.Errorf("metrics error: %v", err)
	}
	if rr, ok := e.metrics.(metrics.DispatchRunRecorder); ok {
		ev := metrics.DispatchRunEvent{
			Slot:       res.Slot,
			Trigger:    trigger,
			Waiting:    waiting,
			Drivers:    drivers,
			Trips:      len(res.Trips),
			Assigned:   res.Assigned,
			Unassigned: res.Unassigned,
			Duration:   dur,
			Time:       time.Now(),
		}
		if err := rr.RecordDispatchRun(ev); err != nil {
			e.logger.Errorf("run metrics error: %v", err)
		}
	}
}

// appendLog writes the run to the audit log store when configured.
func (e *Engine) appendLog(ctx context.Context, res Result, trigger string, waiting int, drivers []model.Driver) {
	e.mu.Lock()
	ls := e.logStore
	e.mu.Unlock()
	if ls == nil {
		return
	}
	ids := make([]string, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
	}
	rec := logging.LogRecord{
		Timestamp: time.Now(),
		Slot:      res.Slot,
		Trigger:   trigger,
		Waiting:   waiting,
		Drivers:   ids,
		Response: logging.Result{
			Trips:      make(map[string]string, len(res.Trips)),
			Errors:     make(map[string]string, len(res.Errors)),
			Assigned:   res.Assigned,
			Unassigned: res.Unassigned,
			Message:    res.Message,
		},
	}
	for _, t := range res.Trips {
		rec.Response.Trips[t.DriverID] = t.ID
	}
	for id, err := range res.Errors {
		if err != nil {
			rec.Response.Errors[id] = err.Error()
		}
	}
	if err := ls.Append(ctx, rec); err != nil {
		e.logger.Errorf("dispatch log append: %v", err)
	}
}
