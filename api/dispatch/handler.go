package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	coredispatch "github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
)

// Dispatcher is the engine surface the handler needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, slot time.Time, trigger string) (coredispatch.Result, error)
}

type dispatchRequest struct {
	TimeSlot time.Time `json:"time_slot"`
}

type dispatchResponse struct {
	Success    bool              `json:"success"`
	Trips      []tripSummary     `json:"trips"`
	Message    string            `json:"message,omitempty"`
	Slot       time.Time         `json:"time_slot"`
	Assigned   int               `json:"assigned"`
	Unassigned int               `json:"unassigned"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type tripSummary struct {
	ID         string `json:"id"`
	DriverID   string `json:"driver_id"`
	Passengers int    `json:"passengers"`
	Stops      int    `json:"stops"`
}

// NewDispatchHandler returns the handler for POST /api/dispatch. The
// admin trigger runs the batching process for the requested slot.
// Requests must include an Authorization header with "Bearer <token>"
// when token is non-empty.
func NewDispatchHandler(eng Dispatcher, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.TimeSlot.IsZero() {
			http.Error(w, "time_slot is required", http.StatusBadRequest)
			return
		}
		res, err := eng.Dispatch(r.Context(), req.TimeSlot, coredispatch.TriggerAdmin)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp := dispatchResponse{
			Success:    res.Success,
			Trips:      make([]tripSummary, 0, len(res.Trips)),
			Message:    res.Message,
			Slot:       res.Slot,
			Assigned:   res.Assigned,
			Unassigned: res.Unassigned,
		}
		for _, t := range res.Trips {
			resp.Trips = append(resp.Trips, tripSummary{
				ID:         t.ID,
				DriverID:   t.DriverID,
				Passengers: len(t.RequestIDs()),
				Stops:      len(t.Route),
			})
		}
		if len(res.Errors) > 0 {
			resp.Errors = make(map[string]string, len(res.Errors))
			for id, err := range res.Errors {
				resp.Errors[id] = err.Error()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}
