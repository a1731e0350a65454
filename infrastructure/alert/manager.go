// Package alert fans operational alerts out to one or more channels, with
// per-message throttling so a stuck condition does not flood the operator.
package alert

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Severity orders alerts for channels that filter or color by level.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one operational event worth a human's attention.
type Alert struct {
	Severity Severity
	Message  string
	Time     time.Time
	Fields   []zap.Field
}

// Channel delivers alerts somewhere: a log, a chat webhook, a pager.
type Channel interface {
	Send(a Alert) error
	Name() string
}

// Throttler suppresses repeats of the same alert inside an interval.
type Throttler struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	interval time.Duration
}

// NewThrottler creates a throttler with the given repeat interval.
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow reports whether the keyed alert may fire now, recording the send
// time when it may.
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Reset clears the throttle state for one key, letting the next occurrence
// through immediately.
func (t *Throttler) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSent, key)
}

// Manager routes alerts to all registered channels.
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	throttle *Throttler
}

// NewManager creates a manager over the given channels. throttleInterval
// bounds how often an identical alert is delivered.
func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// Send delivers the alert to every channel unless it is throttled. It returns
// an error only when every channel failed.
func (m *Manager) Send(a Alert) error {
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	if !m.throttle.Allow(string(a.Severity) + ":" + a.Message) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	delivered := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		} else {
			delivered++
		}
	}
	if delivered == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// Info sends an informational alert.
func (m *Manager) Info(message string, fields ...zap.Field) error {
	return m.Send(Alert{Severity: SeverityInfo, Message: message, Fields: fields})
}

// Warning sends a warning alert.
func (m *Manager) Warning(message string, fields ...zap.Field) error {
	return m.Send(Alert{Severity: SeverityWarning, Message: message, Fields: fields})
}

// Critical sends a critical alert.
func (m *Manager) Critical(message string, fields ...zap.Field) error {
	return m.Send(Alert{Severity: SeverityCritical, Message: message, Fields: fields})
}

// AddChannel registers another delivery channel.
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}
