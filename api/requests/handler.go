package requests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	coredispatch "github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/schedule"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
)

// Dispatcher is the engine surface used for eager dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, slot time.Time, trigger string) (coredispatch.Result, error)
}

// Handler serves the passenger request endpoints.
type Handler struct {
	store      store.RequestStore
	slots      schedule.SlotConfig
	dispatcher Dispatcher
	eager      bool
	token      string
	log        logger.Logger
}

// NewHandler creates the request handler. When eager is set, every
// accepted request asynchronously triggers a dispatch run for its slot.
func NewHandler(st store.RequestStore, slots schedule.SlotConfig, d Dispatcher, eager bool, token string, log logger.Logger) *Handler {
	slots.SetDefaults()
	return &Handler{store: st, slots: slots, dispatcher: d, eager: eager, token: token, log: log}
}

type createRequest struct {
	PassengerID string    `json:"passenger_id"`
	TicketCode  string    `json:"ticket_code"`
	Direction   string    `json:"direction"`
	Pickup      string    `json:"pickup_location"`
	Dropoff     string    `json:"dropoff_location"`
	TimeSlot    time.Time `json:"time_slot"`
}

// Create handles POST /api/requests.
func (h *Handler) Create() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var in createRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		direction, ok := model.DirectionFromString(in.Direction)
		if !ok {
			http.Error(w, "unknown direction", http.StatusBadRequest)
			return
		}
		req := model.ShuttleRequest{
			ID:          uuid.NewString(),
			PassengerID: in.PassengerID,
			TicketCode:  in.TicketCode,
			Direction:   direction,
			Pickup:      in.Pickup,
			Dropoff:     in.Dropoff,
			TimeSlot:    h.slots.Normalize(in.TimeSlot),
			Status:      model.RequestWaiting,
			CreatedAt:   time.Now(),
		}
		if err := req.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.store.CreateRequest(r.Context(), &req); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if h.eager && h.dispatcher != nil {
			slot := req.TimeSlot
			go func() {
				if _, err := h.dispatcher.Dispatch(context.Background(), slot, coredispatch.TriggerEager); err != nil {
					h.log.Errorf("eager dispatch for slot %s: %v", slot.Format(time.RFC3339), err)
				}
			}()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(req); err != nil {
			h.log.Errorf("encode response: %v", err)
		}
	})
}

// Cancel handles POST /api/requests/{id}/cancel. Only waiting requests
// can be cancelled; anything later returns a conflict.
func (h *Handler) Cancel() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/requests/"), "/cancel")
		if id == "" || strings.Contains(id, "/") {
			http.Error(w, "invalid request id", http.StatusBadRequest)
			return
		}
		err := h.store.CancelRequest(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "request not found", http.StatusNotFound)
		case errors.Is(err, store.ErrConflict):
			http.Error(w, "request is no longer waiting", http.StatusConflict)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+h.token
}
