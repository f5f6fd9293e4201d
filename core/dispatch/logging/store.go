package logging

import (
	"context"
	"time"
)

// LogRecord captures one dispatch run and its outcome.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Slot      time.Time `json:"time_slot"`
	Trigger   string    `json:"trigger"`
	Waiting   int       `json:"waiting"`
	Drivers   []string  `json:"drivers"`
	Response  Result    `json:"response"`
}

// Result mirrors dispatch.Result for logging purposes.
type Result struct {
	Trips      map[string]string `json:"trips"` // driver id -> trip id
	Errors     map[string]string `json:"errors"`
	Assigned   int               `json:"assigned"`
	Unassigned int               `json:"unassigned"`
	Message    string            `json:"message,omitempty"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start    time.Time
	End      time.Time
	DriverID string
	Trigger  string
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// matches reports whether the record passes the driver and trigger
// filters. Time filters are store-specific.
func (q LogQuery) matches(r LogRecord) bool {
	if q.Trigger != "" && r.Trigger != q.Trigger {
		return false
	}
	if q.DriverID == "" {
		return true
	}
	for _, id := range r.Drivers {
		if id == q.DriverID {
			return true
		}
	}
	_, ok := r.Response.Trips[q.DriverID]
	return ok
}
