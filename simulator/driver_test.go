package main

import (
	"testing"
)

func TestWalkUpdatesFollowStopOrder(t *testing.T) {
	stops := []stop{
		{RequestID: "r2", Type: "dropoff", Order: 4},
		{RequestID: "r1", Type: "pickup", Order: 1},
		{RequestID: "r2", Type: "pickup", Order: 2},
		{RequestID: "r1", Type: "dropoff", Order: 3},
	}
	updates := walkUpdates("t1", stops)
	if len(updates) != 4 {
		t.Fatalf("expected 4 updates, got %d", len(updates))
	}
	want := []stopUpdate{
		{TripID: "t1", RequestID: "r1", StopType: "pickup", Status: "picked_up"},
		{TripID: "t1", RequestID: "r2", StopType: "pickup", Status: "picked_up"},
		{TripID: "t1", RequestID: "r1", StopType: "dropoff", Status: "dropped_off"},
		{TripID: "t1", RequestID: "r2", StopType: "dropoff", Status: "dropped_off"},
	}
	for i, u := range updates {
		if u != want[i] {
			t.Errorf("update %d = %+v, want %+v", i, u, want[i])
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", Count: 2}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if ids := cfg.DriverIDs(); len(ids) != 2 || ids[0] != "drv0001" {
		t.Errorf("generated ids = %v", ids)
	}

	cfg.Drivers = []string{"d1", "d2", "d3"}
	if ids := cfg.DriverIDs(); len(ids) != 3 || ids[2] != "d3" {
		t.Errorf("listed ids = %v", ids)
	}

	for _, bad := range []Config{
		{Count: 1},
		{Broker: "tcp://localhost:1883"},
		{Broker: "tcp://localhost:1883", Count: 1, DropRate: 1.5},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}
