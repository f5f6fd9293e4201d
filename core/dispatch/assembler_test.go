package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/geo"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
)

type mapGeocoder struct {
	coords map[string]model.Coordinate
}

func (g mapGeocoder) Resolve(_ context.Context, address string) (model.Coordinate, error) {
	c, ok := g.coords[address]
	if !ok {
		return model.Coordinate{}, errors.New("address not found")
	}
	return c, nil
}

type failingGeocoder struct{}

func (failingGeocoder) Resolve(context.Context, string) (model.Coordinate, error) {
	return model.Coordinate{}, errors.New("geocoder unavailable")
}

// permOptimizer returns a fixed permutation regardless of input.
type permOptimizer struct {
	perm []int
}

func (o permOptimizer) Optimize(context.Context, model.Coordinate, []geo.Waypoint) ([]int, error) {
	return o.perm, nil
}

type failingOptimizer struct{}

func (failingOptimizer) Optimize(context.Context, model.Coordinate, []geo.Waypoint) ([]int, error) {
	return nil, errors.New("routing service unavailable")
}

func testConfig() Config {
	cfg := Config{StationLat: 21.02, StationLng: 105.84, StationAddress: "Central Station"}
	cfg.SetDefaults()
	return cfg
}

func assertPickupsPrecedeDropoffs(t *testing.T, trip *model.Trip) {
	t.Helper()
	pickupAt := make(map[string]int)
	for i, s := range trip.Route {
		if s.Type == model.StopPickup {
			pickupAt[s.RequestID] = i
		}
	}
	for i, s := range trip.Route {
		if s.Type == model.StopDropoff {
			p, ok := pickupAt[s.RequestID]
			if !ok {
				t.Fatalf("request %s has a dropoff but no pickup", s.RequestID)
			}
			if p > i {
				t.Errorf("request %s: dropoff at %d before pickup at %d", s.RequestID, i, p)
			}
		}
	}
}

func TestAssemble_BuildsOrderedTrip(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	geocoder := mapGeocoder{coords: map[string]model.Coordinate{
		"12 Elm Street":   {Lat: 21.03, Lng: 105.80},
		"7 Oak Avenue":    {Lat: 21.05, Lng: 105.82},
		"Central Station": {Lat: 21.02, Lng: 105.84},
	}}
	asm, err := NewTripAssembler(geocoder, geo.IdentityOptimizer{}, testConfig(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	driver := model.Driver{ID: "d1", VehicleID: "v1", Capacity: 4, Status: model.DriverActive}
	batch := []model.ShuttleRequest{
		{ID: "r1", PassengerID: "p1", Direction: model.HomeToStation, Pickup: "12 Elm Street", TimeSlot: slot, Status: model.RequestWaiting},
		{ID: "r2", PassengerID: "p2", Direction: model.HomeToStation, Pickup: "7 Oak Avenue", TimeSlot: slot, Status: model.RequestWaiting},
	}

	trip, err := asm.Assemble(context.Background(), driver, batch, "t1")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if trip.ID != "t1" || trip.DriverID != "d1" || trip.VehicleID != "v1" {
		t.Errorf("trip identity wrong: %+v", trip)
	}
	if trip.Status != model.TripReady {
		t.Errorf("expected ready trip got %s", trip.Status)
	}
	if !trip.TimeSlot.Equal(slot) {
		t.Errorf("expected slot %v got %v", slot, trip.TimeSlot)
	}
	if len(trip.Route) != 4 {
		t.Fatalf("expected 4 stops got %d", len(trip.Route))
	}
	for i, s := range trip.Route {
		if s.Order != i+1 {
			t.Errorf("stop %d has order %d", i, s.Order)
		}
		if s.Status != model.StopPending {
			t.Errorf("stop %d not pending: %s", i, s.Status)
		}
		if s.Location.IsZero() {
			t.Errorf("stop %d not geocoded", i)
		}
	}
	assertPickupsPrecedeDropoffs(t, trip)
	if err := trip.Validate(driver.Capacity); err != nil {
		t.Errorf("trip invalid: %v", err)
	}
}

func TestAssemble_ReordersDropoffBeforePickup(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	geocoder := mapGeocoder{coords: map[string]model.Coordinate{
		"12 Elm Street":   {Lat: 21.03, Lng: 105.80},
		"Central Station": {Lat: 21.02, Lng: 105.84},
	}}
	// The optimizer puts r1's dropoff (index 1) ahead of its pickup
	// (index 0); the assembler must swap them back.
	asm, err := NewTripAssembler(geocoder, permOptimizer{perm: []int{1, 0}}, testConfig(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	driver := model.Driver{ID: "d1", Capacity: 2, Status: model.DriverActive}
	batch := []model.ShuttleRequest{
		{ID: "r1", PassengerID: "p1", Direction: model.HomeToStation, Pickup: "12 Elm Street", TimeSlot: slot, Status: model.RequestWaiting},
	}

	trip, err := asm.Assemble(context.Background(), driver, batch, "t1")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	assertPickupsPrecedeDropoffs(t, trip)
	if trip.Route[0].Type != model.StopPickup || trip.Route[1].Type != model.StopDropoff {
		t.Errorf("route not reordered: %s, %s", trip.Route[0].Type, trip.Route[1].Type)
	}
}

func TestAssemble_TotalDegradationStillProducesTrip(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	cfg := testConfig()
	asm, err := NewTripAssembler(failingGeocoder{}, failingOptimizer{}, cfg, logger.NopLogger{})
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	driver := model.Driver{ID: "d1", Capacity: 4, Status: model.DriverActive}
	batch := []model.ShuttleRequest{
		{ID: "r1", PassengerID: "p1", Direction: model.HomeToStation, Pickup: "12 Elm Street", TimeSlot: slot, Status: model.RequestWaiting},
		{ID: "r2", PassengerID: "p2", Direction: model.StationToHome, Dropoff: "7 Oak Avenue", TimeSlot: slot, Status: model.RequestWaiting},
	}

	trip, err := asm.Assemble(context.Background(), driver, batch, "t1")
	if err != nil {
		t.Fatalf("expected degraded trip, got error: %v", err)
	}
	// All stops carry the fallback coordinate and keep submission order.
	for i, s := range trip.Route {
		if s.Location != cfg.Fallback() {
			t.Errorf("stop %d expected fallback coordinate got %+v", i, s.Location)
		}
	}
	want := []string{"r1", "r1", "r2", "r2"}
	for i, s := range trip.Route {
		if s.RequestID != want[i] {
			t.Errorf("stop %d expected request %s got %s", i, want[i], s.RequestID)
		}
	}
	assertPickupsPrecedeDropoffs(t, trip)
	if err := trip.Validate(driver.Capacity); err != nil {
		t.Errorf("degraded trip invalid: %v", err)
	}
}

func TestAssemble_InvalidPermutationFallsBack(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	geocoder := mapGeocoder{coords: map[string]model.Coordinate{
		"12 Elm Street":   {Lat: 21.03, Lng: 105.80},
		"Central Station": {Lat: 21.02, Lng: 105.84},
	}}
	// Wrong length and duplicate indices are both invalid.
	asm, err := NewTripAssembler(geocoder, permOptimizer{perm: []int{0, 0}}, testConfig(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	driver := model.Driver{ID: "d1", Capacity: 2, Status: model.DriverActive}
	batch := []model.ShuttleRequest{
		{ID: "r1", PassengerID: "p1", Direction: model.HomeToStation, Pickup: "12 Elm Street", TimeSlot: slot, Status: model.RequestWaiting},
	}

	trip, err := asm.Assemble(context.Background(), driver, batch, "t1")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if trip.Route[0].Type != model.StopPickup {
		t.Errorf("expected identity order, first stop is %s", trip.Route[0].Type)
	}
}

func TestAssemble_RejectsOversizedBatch(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	asm, err := NewTripAssembler(geo.StaticGeocoder{}, geo.IdentityOptimizer{}, testConfig(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	driver := model.Driver{ID: "d1", Capacity: 1, Status: model.DriverActive}
	batch := makeRequests(2, slot)
	if _, err := asm.Assemble(context.Background(), driver, batch, "t1"); err == nil {
		t.Fatal("expected error for batch exceeding capacity")
	}
	if _, err := asm.Assemble(context.Background(), driver, nil, "t2"); err == nil {
		t.Fatal("expected error for empty batch")
	}
}
