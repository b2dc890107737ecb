package log

// Logger receives protocol and device events.
// A nil Logger disables capture; callers guard with a nil check.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent use
	// and must not block for long, since the poll loop and connection
	// handlers call it inline.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
