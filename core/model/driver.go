package model

import "fmt"

// DriverStatus is the availability state of a driver.
type DriverStatus string

const (
	DriverActive   DriverStatus = "active"
	DriverInactive DriverStatus = "inactive"
	DriverOnTrip   DriverStatus = "on_trip"
)

// DefaultCapacity is the seat count assumed for a vehicle when none is
// configured during provisioning.
const DefaultCapacity = 16

// Driver represents a vehicle operator available for dispatch.
type Driver struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone"`
	VehicleID string       `json:"vehicle_id"`
	Capacity  int          `json:"capacity"` // seat count
	Status    DriverStatus `json:"status"`
}

// Validate checks that the driver configuration is sound. In particular
// the seat capacity must be positive.
func (d Driver) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("driver id is required")
	}
	if d.Capacity <= 0 {
		return fmt.Errorf("driver %s: capacity must be positive", d.ID)
	}
	return nil
}

// Available reports whether the driver can receive a new trip.
func (d Driver) Available() bool {
	return d.Status == DriverActive
}
