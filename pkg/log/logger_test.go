package log

import (
	"sync"
	"testing"
)

// captureLogger records events in memory.
type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureLogger) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	// Must not panic for any payload.
	l.Log(Event{})
	l.Log(changeEvent("s", "Device.IP.IPv4Enable", "true"))
	l.Log(Event{Fault: &FaultEvent{Message: "x"}})
}

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(changeEvent("s", "Device.IP.IPv4Enable", "true"))
	m.Log(changeEvent("s", "Device.IP.IPv4Enable", "false"))

	for name, c := range map[string]*captureLogger{"a": a, "b": b} {
		got := c.all()
		if len(got) != 2 {
			t.Fatalf("%s: got %d events, want 2", name, len(got))
		}
		if got[1].Change.Value != "false" {
			t.Errorf("%s: second value = %q", name, got[1].Change.Value)
		}
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	NewMultiLogger().Log(Event{})
}
