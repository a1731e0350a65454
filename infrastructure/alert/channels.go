package alert

import (
	"sync"

	"go.uber.org/zap"

	"options-maker-go/infrastructure/logger"
)

// LogChannel delivers alerts through the structured logger. It is the default
// channel in every deployment; chat or pager channels are added on top.
type LogChannel struct {
	log *logger.Logger
}

// NewLogChannel creates a channel writing to the given logger.
func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Send(a Alert) error {
	fields := append([]zap.Field{zap.Time("alert_time", a.Time)}, a.Fields...)
	switch a.Severity {
	case SeverityCritical:
		c.log.Error(a.Message, fields...)
	case SeverityWarning:
		c.log.Warn(a.Message, fields...)
	default:
		c.log.Info(a.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return "log" }

// MemoryChannel records alerts for tests.
type MemoryChannel struct {
	mu     sync.Mutex
	alerts []Alert
	fail   error
}

// NewMemoryChannel creates an in-memory channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{}
}

func (c *MemoryChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MemoryChannel) Name() string { return "memory" }

// Alerts returns a copy of everything received so far.
func (c *MemoryChannel) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// FailWith makes every subsequent Send return err.
func (c *MemoryChannel) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}
