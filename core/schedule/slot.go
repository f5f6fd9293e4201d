package schedule

import (
	"errors"
	"time"
)

// SlotConfig defines the fixed-width scheduling buckets that group
// requests for joint batching.
type SlotConfig struct {
	SlotDurationMinutes int `json:"slot_duration_minutes" yaml:"slot_duration_minutes"`
}

// SetDefaults fills in the default slot width.
func (c *SlotConfig) SetDefaults() {
	if c.SlotDurationMinutes == 0 {
		c.SlotDurationMinutes = 60
	}
}

// Validate checks the slot configuration.
func (c SlotConfig) Validate() error {
	if c.SlotDurationMinutes <= 0 {
		return errors.New("slot_duration_minutes must be positive")
	}
	if (24*time.Hour)%c.Duration() != 0 {
		return errors.New("slot duration must divide a day evenly")
	}
	return nil
}

// Duration returns the slot width.
func (c SlotConfig) Duration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}

// Normalize truncates t to the start of its slot. Both dispatch trigger
// modes normalize timestamps so they converge on the same bucket.
func (c SlotConfig) Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(c.Duration())
}

// Slots returns the slot start times covering the given day in UTC.
func (c SlotConfig) Slots(day time.Time) []time.Time {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	n := int((24 * time.Hour) / c.Duration())
	slots := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, start.Add(time.Duration(i)*c.Duration()))
	}
	return slots
}
