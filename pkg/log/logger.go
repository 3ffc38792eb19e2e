package log

// Logger receives captured management events. Implementations must be
// safe for concurrent use. Tree changes are logged from the committing
// goroutine, so Log should return quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// MultiLogger fans events out, typically to a FileLogger for later
// analysis and a SlogAdapter for the console. Nil entries are skipped.
type MultiLogger []Logger

func NewMultiLogger(loggers ...Logger) MultiLogger {
	out := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}

var (
	_ Logger = NoopLogger{}
	_ Logger = MultiLogger(nil)
)
