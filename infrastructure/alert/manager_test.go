package alert

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestManagerDeliversToAllChannels(t *testing.T) {
	a := NewMemoryChannel()
	b := NewMemoryChannel()
	m := NewManager([]Channel{a, b}, time.Minute)

	if err := m.Warning("book empty", zap.String("underlying", "SAN")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Alerts()) != 1 || len(b.Alerts()) != 1 {
		t.Fatalf("expected one alert per channel, got %d and %d", len(a.Alerts()), len(b.Alerts()))
	}
	got := a.Alerts()[0]
	if got.Severity != SeverityWarning || got.Message != "book empty" {
		t.Fatalf("unexpected alert: %+v", got)
	}
	if got.Time.IsZero() {
		t.Fatalf("alert time not stamped")
	}
}

func TestManagerThrottlesRepeats(t *testing.T) {
	ch := NewMemoryChannel()
	m := NewManager([]Channel{ch}, time.Hour)

	for i := 0; i < 5; i++ {
		if err := m.Critical("hedge stuck"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if n := len(ch.Alerts()); n != 1 {
		t.Fatalf("expected throttle to allow one delivery, got %d", n)
	}

	// A different message is a different key.
	if err := m.Critical("venue down"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(ch.Alerts()); n != 2 {
		t.Fatalf("expected second message through, got %d", n)
	}
}

func TestManagerErrorOnlyWhenAllChannelsFail(t *testing.T) {
	bad := NewMemoryChannel()
	bad.FailWith(errors.New("webhook down"))
	good := NewMemoryChannel()

	m := NewManager([]Channel{bad, good}, time.Minute)
	if err := m.Info("starting"); err != nil {
		t.Fatalf("partial delivery must not error: %v", err)
	}

	only := NewManager([]Channel{bad}, time.Minute)
	if err := only.Info("stopping"); err == nil {
		t.Fatalf("expected error when every channel fails")
	}
}

func TestThrottlerReset(t *testing.T) {
	th := NewThrottler(time.Hour)
	if !th.Allow("k") {
		t.Fatalf("first occurrence must pass")
	}
	if th.Allow("k") {
		t.Fatalf("repeat inside interval must be suppressed")
	}
	th.Reset("k")
	if !th.Allow("k") {
		t.Fatalf("reset must let the next occurrence through")
	}
}
