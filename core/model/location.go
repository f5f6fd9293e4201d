package model

import "fmt"

// Coordinate is a WGS84 point used for stops and routing waypoints.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate lies within valid WGS84 bounds.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", c.Lng)
	}
	return nil
}

// IsZero reports whether the coordinate is the zero value. A zero
// coordinate is treated as "not geocoded" rather than a real point.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}
