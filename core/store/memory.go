package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and the
// simulator. All conditional updates run under one lock, which gives
// the same atomicity guarantees a database provides with conditional
// UPDATE statements.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*model.ShuttleRequest
	drivers  map[string]*model.Driver
	trips    map[string]*model.Trip
	seq      int
	order    map[string]int // insertion order per driver/request id
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*model.ShuttleRequest),
		drivers:  make(map[string]*model.Driver),
		trips:    make(map[string]*model.Trip),
		order:    make(map[string]int),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateRequest(_ context.Context, req *model.ShuttleRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.requests[cp.ID] = &cp
	s.seq++
	s.order[cp.ID] = s.seq
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (*model.ShuttleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) FindWaiting(_ context.Context, slot time.Time) ([]model.ShuttleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.ShuttleRequest
	for _, r := range s.requests {
		if r.Status == model.RequestWaiting && r.TimeSlot.Equal(slot) {
			res = append(res, *r)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return s.order[res[i].ID] < s.order[res[j].ID]
	})
	return res, nil
}

func (s *MemoryStore) ClaimRequests(_ context.Context, ids []string, tripID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var won []string
	for _, id := range ids {
		r, ok := s.requests[id]
		if !ok || r.Status != model.RequestWaiting {
			continue
		}
		r.Status = model.RequestAssigned
		r.TripID = tripID
		won = append(won, id)
	}
	return won, nil
}

func (s *MemoryStore) ReleaseRequests(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if r, ok := s.requests[id]; ok && r.Status == model.RequestAssigned {
			r.Status = model.RequestWaiting
			r.TripID = ""
		}
	}
	return nil
}

func (s *MemoryStore) CancelRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != model.RequestWaiting {
		return ErrConflict
	}
	r.Status = model.RequestCancelled
	return nil
}

func (s *MemoryStore) UpdateRequestStatus(_ context.Context, id string, from, to model.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != from {
		return ErrConflict
	}
	r.Status = to
	return nil
}

func (s *MemoryStore) CreateDriver(_ context.Context, d *model.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	if cp.Capacity == 0 {
		cp.Capacity = model.DefaultCapacity
	}
	s.drivers[cp.ID] = &cp
	s.seq++
	s.order[cp.ID] = s.seq
	return nil
}

func (s *MemoryStore) GetDriver(_ context.Context, id string) (*model.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) FindActive(_ context.Context) ([]model.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Driver
	for _, d := range s.drivers {
		if d.Status == model.DriverActive {
			res = append(res, *d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return s.order[res[i].ID] < s.order[res[j].ID] })
	return res, nil
}

func (s *MemoryStore) ClaimDriver(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status != model.DriverActive {
		return false, nil
	}
	d.Status = model.DriverOnTrip
	return true, nil
}

func (s *MemoryStore) ReleaseDriver(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status == model.DriverOnTrip {
		d.Status = model.DriverActive
	}
	return nil
}

func (s *MemoryStore) CreateTrip(_ context.Context, t *model.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	cp.Route = append([]model.Stop(nil), t.Route...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.trips[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTrip(_ context.Context, id string) (*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	cp.Route = append([]model.Stop(nil), t.Route...)
	return &cp, nil
}

func (s *MemoryStore) FindTripsBySlot(_ context.Context, slot time.Time) ([]model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Trip
	for _, t := range s.trips {
		if t.TimeSlot.Equal(slot) {
			cp := *t
			cp.Route = append([]model.Stop(nil), t.Route...)
			res = append(res, cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) UpdateTripStatus(_ context.Context, id string, from, to model.TripStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != from {
		return ErrConflict
	}
	t.Status = to
	return nil
}

func (s *MemoryStore) UpdateStopStatus(_ context.Context, tripID, requestID string, typ model.StopType, status model.StopStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return ErrNotFound
	}
	for i := range t.Route {
		if t.Route[i].RequestID == requestID && t.Route[i].Type == typ {
			t.Route[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}
