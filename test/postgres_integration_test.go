//go:build integration

package test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/postgres"
)

func startPostgres(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "shuttle",
			"POSTGRES_PASSWORD": "shuttle",
			"POSTGRES_DB":       "shuttle",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://shuttle:shuttle@%s:%s/shuttle?sslmode=disable", host, port.Port())
	return c, dsn
}

func openStore(ctx context.Context, t *testing.T, dsn string) *postgres.Store {
	t.Helper()
	var (
		st  *postgres.Store
		err error
	)
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		st, err = postgres.Open(postgres.Config{DSN: dsn})
		if err == nil {
			return st
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("open store: %v", err)
	return nil
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	c, dsn := startPostgres(ctx, t)
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("terminate: %v", err)
		}
	})

	st := openStore(ctx, t, dsn)
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Logf("close store: %v", err)
		}
	})

	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		req := model.ShuttleRequest{
			ID:          fmt.Sprintf("r%d", i+1),
			PassengerID: fmt.Sprintf("p%d", i+1),
			Direction:   model.HomeToStation,
			Pickup:      "somewhere",
			TimeSlot:    slot,
			Status:      model.RequestWaiting,
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := st.CreateRequest(ctx, &req); err != nil {
			t.Fatalf("create request: %v", err)
		}
	}
	driver := model.Driver{ID: "d1", Name: "Anh", Capacity: 4, Status: model.DriverActive}
	if err := st.CreateDriver(ctx, &driver); err != nil {
		t.Fatalf("create driver: %v", err)
	}

	waiting, err := st.FindWaiting(ctx, slot)
	if err != nil {
		t.Fatalf("find waiting: %v", err)
	}
	if len(waiting) != 4 || waiting[0].ID != "r1" {
		t.Fatalf("waiting = %v", waiting)
	}

	// Claim two requests; a second claim on the same ids must win
	// nothing.
	won, err := st.ClaimRequests(ctx, []string{"r1", "r2"}, "t1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(won) != 2 {
		t.Fatalf("won = %v", won)
	}
	again, err := st.ClaimRequests(ctx, []string{"r1", "r2", "r3"}, "t2")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(again) != 1 || again[0] != "r3" {
		t.Fatalf("second claim won = %v, want only r3", again)
	}

	ok, err := st.ClaimDriver(ctx, "d1")
	if err != nil || !ok {
		t.Fatalf("claim driver = %v, %v", ok, err)
	}
	ok, err = st.ClaimDriver(ctx, "d1")
	if err != nil {
		t.Fatalf("second driver claim: %v", err)
	}
	if ok {
		t.Fatal("driver claimed twice")
	}

	trip := model.Trip{
		ID:       "t1",
		DriverID: "d1",
		TimeSlot: slot,
		Route: []model.Stop{
			{RequestID: "r1", Address: "a", Type: model.StopPickup, Order: 1, Status: model.StopPending},
			{RequestID: "r2", Address: "b", Type: model.StopPickup, Order: 2, Status: model.StopPending},
			{RequestID: "r1", Address: "c", Type: model.StopDropoff, Order: 3, Status: model.StopPending},
			{RequestID: "r2", Address: "d", Type: model.StopDropoff, Order: 4, Status: model.StopPending},
		},
		Status:    model.TripReady,
		CreatedAt: time.Now(),
	}
	if err := st.CreateTrip(ctx, &trip); err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if err := st.UpdateStopStatus(ctx, "t1", "r1", model.StopPickup, model.StopPickedUp); err != nil {
		t.Fatalf("update stop: %v", err)
	}
	got, err := st.GetTrip(ctx, "t1")
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	var found bool
	for _, s := range got.Route {
		if s.RequestID == "r1" && s.Type == model.StopPickup {
			found = s.Status == model.StopPickedUp
		}
	}
	if !found {
		t.Fatalf("stop status not persisted: %+v", got.Route)
	}

	// r4 is still waiting and can be cancelled; r3 is assigned and
	// cannot.
	if err := st.CancelRequest(ctx, "r4"); err != nil {
		t.Fatalf("cancel waiting: %v", err)
	}
	if err := st.CancelRequest(ctx, "r3"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("cancel assigned = %v, want ErrConflict", err)
	}
	if err := st.CancelRequest(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cancel missing = %v, want ErrNotFound", err)
	}
}

func TestPostgresConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	c, dsn := startPostgres(ctx, t)
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("terminate: %v", err)
		}
	})
	st := openStore(ctx, t, dsn)
	t.Cleanup(func() { _ = st.Close() })

	slot := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("cr%02d", i+1)
		req := model.ShuttleRequest{
			ID: ids[i], PassengerID: "p", Direction: model.StationToHome,
			TimeSlot: slot, Status: model.RequestWaiting, CreatedAt: time.Now(),
		}
		if err := st.CreateRequest(ctx, &req); err != nil {
			t.Fatalf("create request: %v", err)
		}
	}

	const claimers = 8
	results := make(chan []string, claimers)
	for i := 0; i < claimers; i++ {
		tripID := fmt.Sprintf("trip-%d", i)
		go func() {
			won, err := st.ClaimRequests(ctx, ids, tripID)
			if err != nil {
				t.Errorf("claim %s: %v", tripID, err)
			}
			results <- won
		}()
	}
	total := 0
	seen := make(map[string]bool)
	for i := 0; i < claimers; i++ {
		for _, id := range <-results {
			if seen[id] {
				t.Errorf("request %s claimed twice", id)
			}
			seen[id] = true
			total++
		}
	}
	if total != len(ids) {
		t.Errorf("claimed %d of %d requests", total, len(ids))
	}
}
