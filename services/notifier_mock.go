package services

import (
	"sync"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// MockNotifier records notified alerts for testing
type MockNotifier struct {
	mu     sync.Mutex
	alerts []models.SystemAlert
	Err    error
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetAsMockForTesting sets this mock as the global notifier for testing
func (m *MockNotifier) SetAsMockForTesting() {
	SetNotifier(m)
}

// Notify records the alert
func (m *MockNotifier) Notify(alert models.SystemAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return m.Err
}

// Notified returns the alerts seen so far
func (m *MockNotifier) Notified() []models.SystemAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SystemAlert(nil), m.alerts...)
}
