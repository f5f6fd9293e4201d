package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/geo"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/schedule"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/mqtt"
)

func newTestEngine(t *testing.T, st store.Store, notifier *mqtt.MockNotifier) *Engine {
	t.Helper()
	geocoder := geo.StaticGeocoder{Coordinate: model.Coordinate{Lat: 21.03, Lng: 105.80}}
	asm, err := NewTripAssembler(geocoder, geo.IdentityOptimizer{}, testConfig(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	eng, err := NewEngine(st, asm, notifier, schedule.SlotConfig{}, time.Second, nil, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng
}

func seedStore(t *testing.T, st store.Store, requests int, capacities ...int) time.Time {
	t.Helper()
	ctx := context.Background()
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, r := range makeRequests(requests, slot) {
		if err := st.CreateRequest(ctx, &r); err != nil {
			t.Fatalf("seed request: %v", err)
		}
	}
	for i, c := range capacities {
		d := model.Driver{
			ID:        fmt.Sprintf("d%d", i+1),
			VehicleID: fmt.Sprintf("v%d", i+1),
			Capacity:  c,
			Status:    model.DriverActive,
		}
		if err := st.CreateDriver(ctx, &d); err != nil {
			t.Fatalf("seed driver: %v", err)
		}
	}
	return slot
}

func TestEngineDispatch_AssignsAcrossDrivers(t *testing.T) {
	st := store.NewMemoryStore()
	notifier := mqtt.NewMockNotifier()
	eng := newTestEngine(t, st, notifier)
	slot := seedStore(t, st, 15, 10, 10)

	res, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("expected clean run: %+v", res)
	}
	if len(res.Trips) != 2 {
		t.Fatalf("expected 2 trips got %d", len(res.Trips))
	}
	if res.Assigned != 15 || res.Unassigned != 0 {
		t.Errorf("expected 15 assigned 0 unassigned got %d/%d", res.Assigned, res.Unassigned)
	}
	if n1, n2 := len(res.Trips[0].RequestIDs()), len(res.Trips[1].RequestIDs()); n1 != 10 || n2 != 5 {
		t.Errorf("expected 10+5 split got %d+%d", n1, n2)
	}

	// Every request is assigned exactly once, to exactly one trip.
	seen := make(map[string]string)
	for _, trip := range res.Trips {
		for _, id := range trip.RequestIDs() {
			if prev, dup := seen[id]; dup {
				t.Errorf("request %s in trips %s and %s", id, prev, trip.ID)
			}
			seen[id] = trip.ID
			r, err := st.GetRequest(context.Background(), id)
			if err != nil {
				t.Fatalf("get request: %v", err)
			}
			if r.Status != model.RequestAssigned || r.TripID != trip.ID {
				t.Errorf("request %s not linked to trip %s: %+v", id, trip.ID, r)
			}
		}
	}

	// Drivers transitioned to on_trip and were notified.
	for _, id := range []string{"d1", "d2"} {
		d, err := st.GetDriver(context.Background(), id)
		if err != nil {
			t.Fatalf("get driver: %v", err)
		}
		if d.Status != model.DriverOnTrip {
			t.Errorf("driver %s expected on_trip got %s", id, d.Status)
		}
		if notifier.Events[id] != "trip_assigned" {
			t.Errorf("driver %s not notified: %q", id, notifier.Events[id])
		}
	}
}

func TestEngineDispatch_LeftoverStaysWaiting(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := seedStore(t, st, 8, 5)

	res, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Assigned != 5 || res.Unassigned != 3 {
		t.Fatalf("expected 5 assigned 3 waiting got %d/%d", res.Assigned, res.Unassigned)
	}
	left, err := st.FindWaiting(context.Background(), slot)
	if err != nil {
		t.Fatalf("find waiting: %v", err)
	}
	if len(left) != 3 {
		t.Fatalf("expected 3 waiting requests got %d", len(left))
	}
	// FIFO: the oldest 5 were taken, the newest 3 remain.
	for i, r := range left {
		if want := fmt.Sprintf("r%02d", i+6); r.ID != want {
			t.Errorf("waiting[%d] expected %s got %s", i, want, r.ID)
		}
	}
}

func TestEngineDispatch_RerunIsNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := seedStore(t, st, 4, 4)

	first, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if first.Assigned != 4 {
		t.Fatalf("first run expected 4 assigned got %d", first.Assigned)
	}

	second, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if !second.Success || second.Assigned != 0 || len(second.Trips) != 0 {
		t.Fatalf("rerun should be a no-op: %+v", second)
	}
	trips, err := st.FindTripsBySlot(context.Background(), slot)
	if err != nil {
		t.Fatalf("find trips: %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("expected 1 trip after rerun got %d", len(trips))
	}
}

func TestEngineDispatch_EmptyPoolsAreNoOps(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	res, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Success || len(res.Trips) != 0 {
		t.Fatalf("expected success no-op without requests: %+v", res)
	}

	seedStore(t, st, 3)
	res, err = eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Success || res.Unassigned != 3 {
		t.Fatalf("expected success no-op without drivers: %+v", res)
	}
}

func TestEngineDispatch_NormalizesSlot(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := seedStore(t, st, 2, 4)

	res, err := eng.Dispatch(context.Background(), slot.Add(23*time.Minute), TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Assigned != 2 {
		t.Fatalf("expected mid-slot trigger to find the bucket, assigned %d", res.Assigned)
	}
	if !res.Slot.Equal(slot) {
		t.Errorf("expected normalized slot %v got %v", slot, res.Slot)
	}
}

func TestEngineDispatch_ConcurrentRunsAssignAtMostOnce(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := seedStore(t, st, 12, 5, 5, 5)

	const runs = 8
	results := make([]Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.Dispatch(context.Background(), slot, TriggerEager)
			if err != nil {
				t.Errorf("dispatch %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	// Across all runs every request belongs to at most one trip.
	owner := make(map[string]string)
	for _, res := range results {
		for _, trip := range res.Trips {
			ids := trip.RequestIDs()
			if len(ids) > 5 {
				t.Errorf("trip %s exceeds capacity: %d passengers", trip.ID, len(ids))
			}
			for _, id := range ids {
				if prev, dup := owner[id]; dup {
					t.Errorf("request %s assigned to both %s and %s", id, prev, trip.ID)
				}
				owner[id] = trip.ID
			}
		}
	}
	for id, tripID := range owner {
		r, err := st.GetRequest(context.Background(), id)
		if err != nil {
			t.Fatalf("get request: %v", err)
		}
		if r.Status != model.RequestAssigned || r.TripID != tripID {
			t.Errorf("request %s store state diverged: %+v", id, r)
		}
	}
}

// failingTripStore wedges trip persistence for one driver so a single
// batch fails while the rest of the run proceeds.
type failingTripStore struct {
	store.Store
	failDriver string
}

func (f *failingTripStore) CreateTrip(ctx context.Context, tr *model.Trip) error {
	if tr.DriverID == f.failDriver {
		return fmt.Errorf("storage unavailable")
	}
	return f.Store.CreateTrip(ctx, tr)
}

func TestEngineDispatch_BatchFailureIsIsolated(t *testing.T) {
	mem := store.NewMemoryStore()
	st := &failingTripStore{Store: mem, failDriver: "d2"}
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := seedStore(t, mem, 8, 4, 4)

	res, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Trips) != 1 || res.Trips[0].DriverID != "d1" {
		t.Fatalf("expected d1's trip to survive: %+v", res.Trips)
	}
	if res.Errors["d2"] == nil {
		t.Fatal("expected an error recorded for d2")
	}
	if !res.Success {
		t.Error("partial success should still report success")
	}
	if res.Assigned != 4 || res.Unassigned != 4 {
		t.Errorf("expected 4 assigned 4 unassigned got %d/%d", res.Assigned, res.Unassigned)
	}

	// The failed batch was rolled back: requests waiting, driver active.
	left, err := mem.FindWaiting(context.Background(), slot)
	if err != nil {
		t.Fatalf("find waiting: %v", err)
	}
	if len(left) != 4 {
		t.Fatalf("expected 4 released requests got %d", len(left))
	}
	d, err := mem.GetDriver(context.Background(), "d2")
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	if d.Status != model.DriverActive {
		t.Errorf("driver d2 expected active after rollback got %s", d.Status)
	}
}

func TestEngineDispatch_TotalFailureReportsFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	st := &failingTripStore{Store: mem, failDriver: "d1"}
	eng := newTestEngine(t, st, mqtt.NewMockNotifier())
	slot := seedStore(t, mem, 4, 4)

	res, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Success {
		t.Error("expected failure when no batch produced a trip")
	}
	if len(res.Trips) != 0 || res.Errors["d1"] == nil {
		t.Fatalf("expected zero trips and a recorded error: %+v", res)
	}
	if res.Assigned != 0 || res.Unassigned != 4 {
		t.Errorf("expected 0 assigned 4 unassigned got %d/%d", res.Assigned, res.Unassigned)
	}
}

func TestEngineDispatch_NotifyFailureKeepsTrip(t *testing.T) {
	st := store.NewMemoryStore()
	notifier := mqtt.NewMockNotifier()
	notifier.FailIDs["d1"] = true
	eng := newTestEngine(t, st, notifier)
	slot := seedStore(t, st, 2, 4)

	res, err := eng.Dispatch(context.Background(), slot, TriggerAdmin)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Trips) != 1 {
		t.Fatalf("expected the trip to commit despite notify failure: %+v", res)
	}
	trip, err := st.GetTrip(context.Background(), res.Trips[0].ID)
	if err != nil {
		t.Fatalf("trip not persisted: %v", err)
	}
	if trip.Status != model.TripReady {
		t.Errorf("expected ready trip got %s", trip.Status)
	}
}
