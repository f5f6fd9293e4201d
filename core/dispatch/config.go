package dispatch

import (
	"errors"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/model"
)

// Config defines the dispatch engine settings.
type Config struct {
	// Station is the fixed origin passed to the route optimizer.
	StationLat     float64 `json:"station_lat"`
	StationLng     float64 `json:"station_lng"`
	StationAddress string  `json:"station_address"`

	// Fallback is substituted for waypoints whose address could not be
	// geocoded. Zero values default to the station coordinate.
	FallbackLat float64 `json:"fallback_lat"`
	FallbackLng float64 `json:"fallback_lng"`

	// AckTimeoutSeconds bounds the wait for a driver acknowledgment
	// after a trip notification.
	AckTimeoutSeconds int `json:"ack_timeout_seconds"`

	// EagerDispatch triggers a dispatch run after every request
	// submission in addition to explicit admin runs.
	EagerDispatch bool `json:"eager_dispatch"`
}

// SetDefaults fills in defaults for unset fields.
func (c *Config) SetDefaults() {
	if c.AckTimeoutSeconds == 0 {
		c.AckTimeoutSeconds = 5
	}
	if c.FallbackLat == 0 && c.FallbackLng == 0 {
		c.FallbackLat = c.StationLat
		c.FallbackLng = c.StationLng
	}
}

// Validate checks the engine configuration.
func (c Config) Validate() error {
	if err := c.Station().Validate(); err != nil {
		return err
	}
	if c.AckTimeoutSeconds < 0 {
		return errors.New("ack_timeout_seconds must not be negative")
	}
	return nil
}

// Station returns the station coordinate.
func (c Config) Station() model.Coordinate {
	return model.Coordinate{Lat: c.StationLat, Lng: c.StationLng}
}

// Fallback returns the degraded-geocoding coordinate.
func (c Config) Fallback() model.Coordinate {
	return model.Coordinate{Lat: c.FallbackLat, Lng: c.FallbackLng}
}
