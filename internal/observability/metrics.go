package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for gateway traffic.
type Metrics struct {
	mu         sync.Mutex
	eventCount map[string]int64
	errorCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		eventCount: make(map[string]int64),
		errorCount: make(map[string]int64),
	}
}

// RecordEvent increments the counter for an inbound gateway event.
func (m *Metrics) RecordEvent(eventType, name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[eventType+"|"+name]++
}

// RecordError increments error counters keyed by event and error code.
func (m *Metrics) RecordError(eventType, name, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[eventType+"|"+name+"|"+code]++
}

// EventCount returns the counter for an event key.
func (m *Metrics) EventCount(eventType, name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventCount[eventType+"|"+name]
}
