package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/store"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	DSN             string `json:"dsn"`
	MaxOpenConns    int    `json:"max_open_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime_seconds"`
}

// SetDefaults fills in connection pool defaults.
func (c *Config) SetDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 300
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS shuttle_requests (
	id TEXT PRIMARY KEY,
	passenger_id TEXT NOT NULL,
	ticket_code TEXT,
	direction TEXT NOT NULL,
	pickup_location TEXT,
	dropoff_location TEXT,
	time_slot TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	trip_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_requests_slot_status ON shuttle_requests (time_slot, status);

CREATE TABLE IF NOT EXISTS drivers (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	name TEXT,
	phone TEXT,
	vehicle_id TEXT,
	capacity INT NOT NULL,
	status TEXT NOT NULL,
	registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trips (
	id TEXT PRIMARY KEY,
	vehicle_id TEXT,
	driver_id TEXT NOT NULL,
	time_slot TIMESTAMPTZ NOT NULL,
	route JSONB NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trips_slot ON trips (time_slot);
`

// Store implements store.Store on PostgreSQL. The single-statement
// conditional updates carry the at-most-once guarantees; no explicit
// locking is needed.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL and ensures the schema exists.
func Open(cfg Config) (*Store, error) {
	cfg.SetDefaults()
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("postgres: close after failed ping: %v (ping: %w)", cerr, err)
		}
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("postgres: close after failed migration: %v (migrate: %w)", cerr, err)
		}
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle, running migrations.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateRequest(ctx context.Context, req *model.ShuttleRequest) error {
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shuttle_requests
			(id, passenger_id, ticket_code, direction, pickup_location, dropoff_location, time_slot, status, trip_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)`,
		req.ID, req.PassengerID, req.TicketCode, req.Direction.String(),
		req.Pickup, req.Dropoff, req.TimeSlot, string(req.Status), req.TripID, created)
	return err
}

func (s *Store) GetRequest(ctx context.Context, id string) (*model.ShuttleRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, passenger_id, ticket_code, direction, pickup_location, dropoff_location,
		       time_slot, status, COALESCE(trip_id, ''), created_at
		FROM shuttle_requests WHERE id = $1`, id)
	return scanRequest(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*model.ShuttleRequest, error) {
	var r model.ShuttleRequest
	var direction, status string
	err := row.Scan(&r.ID, &r.PassengerID, &r.TicketCode, &direction, &r.Pickup, &r.Dropoff,
		&r.TimeSlot, &status, &r.TripID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d, ok := model.DirectionFromString(direction)
	if !ok {
		return nil, fmt.Errorf("postgres: request %s has unknown direction %q", r.ID, direction)
	}
	r.Direction = d
	r.Status = model.RequestStatus(status)
	return &r, nil
}

func (s *Store) FindWaiting(ctx context.Context, slot time.Time) ([]model.ShuttleRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, passenger_id, ticket_code, direction, pickup_location, dropoff_location,
		       time_slot, status, COALESCE(trip_id, ''), created_at
		FROM shuttle_requests
		WHERE status = 'waiting' AND time_slot = $1
		ORDER BY created_at, id`, slot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.ShuttleRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, rows.Err()
}

// ClaimRequests runs the conditional assignment as one statement. Rows
// already claimed by a concurrent run fail the status predicate and are
// simply absent from the returned set.
func (s *Store) ClaimRequests(ctx context.Context, ids []string, tripID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE shuttle_requests
		SET status = 'assigned', trip_id = $2
		WHERE id = ANY($1) AND status = 'waiting'
		RETURNING id`, pq.Array(ids), tripID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var won []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		won = append(won, id)
	}
	return won, rows.Err()
}

func (s *Store) ReleaseRequests(ctx context.Context, ids []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE shuttle_requests
		SET status = 'waiting', trip_id = NULL
		WHERE id = ANY($1) AND status = 'assigned'`, pq.Array(ids))
	return err
}

func (s *Store) CancelRequest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shuttle_requests SET status = 'cancelled'
		WHERE id = $1 AND status = 'waiting'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetRequest(ctx, id); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, from, to model.RequestStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shuttle_requests SET status = $3
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetRequest(ctx, id); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (s *Store) CreateDriver(ctx context.Context, d *model.Driver) error {
	capacity := d.Capacity
	if capacity == 0 {
		capacity = model.DefaultCapacity
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drivers (id, user_id, name, phone, vehicle_id, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.UserID, d.Name, d.Phone, d.VehicleID, capacity, string(d.Status))
	return err
}

func (s *Store) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	var d model.Driver
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, phone, vehicle_id, capacity, status
		FROM drivers WHERE id = $1`, id).
		Scan(&d.ID, &d.UserID, &d.Name, &d.Phone, &d.VehicleID, &d.Capacity, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Status = model.DriverStatus(status)
	return &d, nil
}

func (s *Store) FindActive(ctx context.Context) ([]model.Driver, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, phone, vehicle_id, capacity, status
		FROM drivers WHERE status = 'active'
		ORDER BY registered_at, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Driver
	for rows.Next() {
		var d model.Driver
		var status string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Phone, &d.VehicleID, &d.Capacity, &status); err != nil {
			return nil, err
		}
		d.Status = model.DriverStatus(status)
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *Store) ClaimDriver(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE drivers SET status = 'on_trip'
		WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := s.GetDriver(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *Store) ReleaseDriver(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE drivers SET status = 'active'
		WHERE id = $1 AND status = 'on_trip'`, id)
	if err != nil {
		return err
	}
	if _, err := res.RowsAffected(); err != nil {
		return err
	}
	return nil
}

func (s *Store) CreateTrip(ctx context.Context, t *model.Trip) error {
	route, err := json.Marshal(t.Route)
	if err != nil {
		return err
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trips (id, vehicle_id, driver_id, time_slot, route, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.VehicleID, t.DriverID, t.TimeSlot, route, string(t.Status), created)
	return err
}

func (s *Store) GetTrip(ctx context.Context, id string) (*model.Trip, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vehicle_id, driver_id, time_slot, route, status, created_at
		FROM trips WHERE id = $1`, id)
	return scanTrip(row)
}

func scanTrip(row rowScanner) (*model.Trip, error) {
	var t model.Trip
	var route []byte
	var status string
	err := row.Scan(&t.ID, &t.VehicleID, &t.DriverID, &t.TimeSlot, &route, &status, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(route, &t.Route); err != nil {
		return nil, fmt.Errorf("postgres: trip %s route: %w", t.ID, err)
	}
	t.Status = model.TripStatus(status)
	return &t, nil
}

func (s *Store) FindTripsBySlot(ctx context.Context, slot time.Time) ([]model.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vehicle_id, driver_id, time_slot, route, status, created_at
		FROM trips WHERE time_slot = $1 ORDER BY id`, slot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}
	return res, rows.Err()
}

func (s *Store) UpdateTripStatus(ctx context.Context, id string, from, to model.TripStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trips SET status = $3
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetTrip(ctx, id); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

// UpdateStopStatus rewrites the matching stop inside the JSONB route.
func (s *Store) UpdateStopStatus(ctx context.Context, tripID, requestID string, typ model.StopType, status model.StopStatus) error {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	found := false
	for i := range trip.Route {
		if trip.Route[i].RequestID == requestID && trip.Route[i].Type == typ {
			trip.Route[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return store.ErrNotFound
	}
	route, err := json.Marshal(trip.Route)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE trips SET route = $2 WHERE id = $1`, tripID, route)
	if err != nil {
		return err
	}
	if _, err := res.RowsAffected(); err != nil {
		return err
	}
	return nil
}
