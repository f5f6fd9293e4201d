package schedule

import (
	"testing"
	"time"
)

func TestSlotConfigDefaultsAndValidate(t *testing.T) {
	var c SlotConfig
	c.SetDefaults()
	if c.SlotDurationMinutes != 60 {
		t.Fatalf("expected 60 minute default got %d", c.SlotDurationMinutes)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (SlotConfig{SlotDurationMinutes: -5}).Validate(); err == nil {
		t.Error("expected negative duration to be rejected")
	}
	if err := (SlotConfig{SlotDurationMinutes: 7}).Validate(); err == nil {
		t.Error("expected non-divisor duration to be rejected")
	}
	if err := (SlotConfig{SlotDurationMinutes: 30}).Validate(); err != nil {
		t.Errorf("30 minute slots should be valid: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	c := SlotConfig{SlotDurationMinutes: 60}
	in := time.Date(2026, 3, 2, 8, 42, 17, 0, time.UTC)
	want := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if got := c.Normalize(in); !got.Equal(want) {
		t.Errorf("Normalize(%v) = %v want %v", in, got, want)
	}
	// Different wall clocks in the same bucket hit the same slot.
	if a, b := c.Normalize(in), c.Normalize(in.Add(10*time.Minute)); !a.Equal(b) {
		t.Errorf("same-bucket timestamps diverged: %v vs %v", a, b)
	}
	// Local time zones normalize to the UTC bucket.
	loc := time.FixedZone("ICT", 7*3600)
	if got := c.Normalize(in.In(loc)); !got.Equal(want) {
		t.Errorf("zone-shifted Normalize = %v want %v", got, want)
	}
}

func TestSlots(t *testing.T) {
	c := SlotConfig{SlotDurationMinutes: 60}
	day := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	slots := c.Slots(day)
	if len(slots) != 24 {
		t.Fatalf("expected 24 slots got %d", len(slots))
	}
	if !slots[0].Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot wrong: %v", slots[0])
	}
	if !slots[23].Equal(time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("last slot wrong: %v", slots[23])
	}
}
