package store

import (
	"context"
	"errors"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// ErrNotFound is returned when the requested aggregate does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a conditional update finds the aggregate
// in a different state than required, i.e. a concurrent invocation won
// the race.
var ErrConflict = errors.New("store: precondition failed")

// RequestStore persists shuttle requests. The Claim/Release pair is the
// atomic conditional-update primitive backing at-most-once assignment:
// implementations must guarantee that a request transitions
// waiting→assigned exactly once even under concurrent claims.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *model.ShuttleRequest) error
	GetRequest(ctx context.Context, id string) (*model.ShuttleRequest, error)
	// FindWaiting returns waiting requests for the slot ordered by
	// creation time.
	FindWaiting(ctx context.Context, slot time.Time) ([]model.ShuttleRequest, error)
	// ClaimRequests sets status=assigned and the trip reference on
	// every listed request that is still waiting, atomically per
	// request, and returns the ids actually claimed.
	ClaimRequests(ctx context.Context, ids []string, tripID string) ([]string, error)
	// ReleaseRequests reverts assigned requests back to waiting. Used
	// to undo a claim when trip persistence fails.
	ReleaseRequests(ctx context.Context, ids []string) error
	// CancelRequest transitions waiting→cancelled. Returns ErrConflict
	// if the request is no longer waiting.
	CancelRequest(ctx context.Context, id string) error
	// UpdateRequestStatus applies a driver-action transition with a
	// precondition on the current status.
	UpdateRequestStatus(ctx context.Context, id string, from, to model.RequestStatus) error
}

// DriverStore persists drivers. ClaimDriver is the conditional
// active→on_trip transition taken when a trip is committed.
type DriverStore interface {
	CreateDriver(ctx context.Context, d *model.Driver) error
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
	// FindActive returns active drivers in registration order.
	FindActive(ctx context.Context) ([]model.Driver, error)
	// ClaimDriver transitions active→on_trip. The boolean reports
	// whether this caller won the transition.
	ClaimDriver(ctx context.Context, id string) (bool, error)
	// ReleaseDriver reverts on_trip→active.
	ReleaseDriver(ctx context.Context, id string) error
}

// TripStore persists trips. Route composition is immutable after
// CreateTrip; only stop and trip statuses change afterwards.
type TripStore interface {
	CreateTrip(ctx context.Context, t *model.Trip) error
	GetTrip(ctx context.Context, id string) (*model.Trip, error)
	FindTripsBySlot(ctx context.Context, slot time.Time) ([]model.Trip, error)
	UpdateTripStatus(ctx context.Context, id string, from, to model.TripStatus) error
	UpdateStopStatus(ctx context.Context, tripID, requestID string, typ model.StopType, status model.StopStatus) error
}

// Store aggregates the three persistence ports, matching how the
// engine consumes them.
type Store interface {
	RequestStore
	DriverStore
	TripStore
}
