package trips

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/logger"
)

func TestGetTrip(t *testing.T) {
	st := store.NewMemoryStore()
	trip := model.Trip{
		ID:       "t1",
		DriverID: "d1",
		TimeSlot: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Route: []model.Stop{
			{RequestID: "r1", Type: model.StopPickup, Order: 1, Status: model.StopPending},
			{RequestID: "r1", Type: model.StopDropoff, Order: 2, Status: model.StopPending},
		},
		Status: model.TripReady,
	}
	if err := st.CreateTrip(context.Background(), &trip); err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	h := NewHandler(st, "", logger.NopLogger{})

	rec := httptest.NewRecorder()
	h.Get().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trips/t1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got model.Trip
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "t1" || got.DriverID != "d1" || len(got.Route) != 2 {
		t.Errorf("unexpected trip: %+v", got)
	}

	rec = httptest.NewRecorder()
	h.Get().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trips/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown trip: expected 404, got %d", rec.Code)
	}
}

func TestGetTripRejects(t *testing.T) {
	h := NewHandler(store.NewMemoryStore(), "secret", logger.NopLogger{})

	rec := httptest.NewRecorder()
	h.Get().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trips/t1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/trips/t1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.Get().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: expected 405, got %d", rec.Code)
	}
}
