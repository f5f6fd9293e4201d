package trips

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
)

// Handler serves trip lookups.
type Handler struct {
	store store.TripStore
	token string
	log   logger.Logger
}

func NewHandler(st store.TripStore, token string, log logger.Logger) *Handler {
	return &Handler{store: st, token: token, log: log}
}

// Get handles GET /api/trips/{id}.
func (h *Handler) Get() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/trips/")
		if id == "" || strings.Contains(id, "/") {
			http.Error(w, "invalid trip id", http.StatusBadRequest)
			return
		}
		trip, err := h.store.GetTrip(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "trip not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(trip); err != nil {
			h.log.Errorf("encode trip %s: %v", id, err)
		}
	})
}
