package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/logger"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/schedule"
)

// Config defines the automatic dispatch trigger.
type Config struct {
	Enabled bool `json:"enabled"`
	// LeadTimeMinutes runs the dispatch this long before each slot
	// starts, so trips are assigned when passengers show up.
	LeadTimeMinutes int `json:"lead_time_minutes"`
}

// Validate checks the scheduler configuration.
func (c Config) Validate() error {
	if c.LeadTimeMinutes < 0 {
		return errors.New("lead_time_minutes must not be negative")
	}
	return nil
}

// Dispatcher is the engine surface the scheduler drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, slot time.Time, trigger string) (dispatch.Result, error)
}

// Scheduler triggers one dispatch run per time slot, shortly before the
// slot begins.
type Scheduler struct {
	slots      schedule.SlotConfig
	lead       time.Duration
	dispatcher Dispatcher
	log        logger.Logger
}

// New creates a Scheduler.
func New(cfg Config, slots schedule.SlotConfig, d Dispatcher, log logger.Logger) (*Scheduler, error) {
	if d == nil {
		return nil, errors.New("scheduler: dispatcher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slots.SetDefaults()
	return &Scheduler{
		slots:      slots,
		lead:       time.Duration(cfg.LeadTimeMinutes) * time.Minute,
		dispatcher: d,
		log:        log,
	}, nil
}

// next returns when the scheduler should fire and which slot that run
// targets. The run time never lies in the past.
func (s *Scheduler) next(now time.Time) (runAt, slot time.Time) {
	slot = s.slots.Normalize(now).Add(s.slots.Duration())
	for !slot.Add(-s.lead).After(now) {
		slot = slot.Add(s.slots.Duration())
	}
	return slot.Add(-s.lead), slot
}

// Run fires dispatch runs until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		runAt, slot := s.next(time.Now())
		timer := time.NewTimer(time.Until(runAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		res, err := s.dispatcher.Dispatch(ctx, slot, dispatch.TriggerScheduled)
		if err != nil {
			s.log.Errorf("scheduled dispatch for slot %s: %v", slot.Format(time.RFC3339), err)
			continue
		}
		s.log.Infof("scheduled dispatch for slot %s: %d trips, %d assigned",
			slot.Format(time.RFC3339), len(res.Trips), res.Assigned)
	}
}
