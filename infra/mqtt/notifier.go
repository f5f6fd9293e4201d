package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/notify"
)

// Notifier mirrors the core notify.Notifier interface.
type Notifier = notify.Notifier

var _ Notifier = (*PahoNotifier)(nil)

// MockNotifier is a simple notifier used in tests.
type MockNotifier struct {
	Events     map[string]string // driver id -> last event name
	Payloads   map[string]any    // driver id -> last payload
	FailIDs    map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		Events:     make(map[string]string),
		Payloads:   make(map[string]any),
		FailIDs:    make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// NotifyDriver records the event or returns an error if configured to fail.
func (m *MockNotifier) NotifyDriver(driverID, event string, payload any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[driverID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Events[driverID] = event
	m.Payloads[driverID] = payload
	commandID := fmt.Sprintf("cmd-%s", driverID)
	m.AckResults[commandID] = true
	return commandID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockNotifier) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[commandID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown command")
	}
	return ok, nil
}
