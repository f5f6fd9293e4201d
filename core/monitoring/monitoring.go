package monitoring

import "time"

// Monitor reports exceptions to an external error tracker. The Sentry
// implementation lives in infra/monitoring.
type Monitor interface {
	// CaptureException forwards the error together with optional tags.
	CaptureException(err error, tags map[string]string)
	// Recover is meant to be deferred around long-running goroutines:
	// it reports a panic before re-raising it.
	Recover()
	// Flush blocks until buffered events are delivered or the timeout
	// expires.
	Flush(timeout time.Duration)
}

// NopMonitor drops every report. Used when no tracker is configured.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}
