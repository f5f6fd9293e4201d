package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/schedule"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, time.Time, string) (dispatch.Result, error) {
	return dispatch.Result{}, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

var _ logger.Logger = nopLogger{}

func TestNext(t *testing.T) {
	slots := schedule.SlotConfig{SlotDurationMinutes: 60}

	cases := []struct {
		name    string
		lead    int
		now     time.Time
		wantRun time.Time
		wantTgt time.Time
	}{
		{
			name:    "no lead fires at the next boundary",
			now:     time.Date(2026, 3, 2, 8, 20, 0, 0, time.UTC),
			wantRun: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			wantTgt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "lead moves the run before the slot",
			lead:    10,
			now:     time.Date(2026, 3, 2, 8, 20, 0, 0, time.UTC),
			wantRun: time.Date(2026, 3, 2, 8, 50, 0, 0, time.UTC),
			wantTgt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "run already passed targets the following slot",
			lead:    10,
			now:     time.Date(2026, 3, 2, 8, 55, 0, 0, time.UTC),
			wantRun: time.Date(2026, 3, 2, 9, 50, 0, 0, time.UTC),
			wantTgt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "exactly on a boundary skips to the next one",
			now:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			wantRun: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			wantTgt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(Config{LeadTimeMinutes: tc.lead}, slots, nopDispatcher{}, nopLogger{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			runAt, slot := s.next(tc.now)
			if !runAt.Equal(tc.wantRun) {
				t.Errorf("runAt = %s, want %s", runAt, tc.wantRun)
			}
			if !slot.Equal(tc.wantTgt) {
				t.Errorf("slot = %s, want %s", slot, tc.wantTgt)
			}
		})
	}
}

func TestNewRejects(t *testing.T) {
	slots := schedule.SlotConfig{}
	if _, err := New(Config{}, slots, nil, nopLogger{}); err == nil {
		t.Error("expected error for nil dispatcher")
	}
	if _, err := New(Config{LeadTimeMinutes: -1}, slots, nopDispatcher{}, nopLogger{}); err == nil {
		t.Error("expected error for negative lead time")
	}
}
