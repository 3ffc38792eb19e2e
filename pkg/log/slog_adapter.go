package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see tree activity in the console.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given
// slog.Logger at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter that logs at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Layer == LayerWire {
		attrs = append(attrs, slog.String("direction", event.Direction.String()))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Message != nil:
		attrs = append(attrs,
			slog.Uint64("msg_id", uint64(event.Message.MessageID)),
			slog.String("msg_type", event.Message.Type.String()),
		)
		if event.Message.Operation != nil {
			attrs = append(attrs, slog.String("operation", event.Message.Operation.String()))
		}
		if len(event.Message.Paths) > 0 {
			attrs = append(attrs, slog.Any("paths", event.Message.Paths))
		}
		if event.Message.Status != nil {
			attrs = append(attrs, slog.String("status", event.Message.Status.String()))
		}
		if event.Message.FaultCount > 0 {
			attrs = append(attrs, slog.Int("faults", event.Message.FaultCount))
		}
		if event.Message.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Message.ProcessingTime))
		}
	case event.Change != nil:
		attrs = append(attrs,
			slog.String("kind", event.Change.Kind.String()),
			slog.String("path", event.Change.Path),
			slog.String("origin", event.Change.Origin.String()),
		)
		if event.Change.Type != "" {
			attrs = append(attrs,
				slog.String("type", event.Change.Type),
				slog.String("old", event.Change.OldValue),
				slog.String("new", event.Change.Value),
				slog.String("notification", event.Change.Notification.String()),
			)
		}
	case event.Fault != nil:
		attrs = append(attrs,
			slog.Int("fault_code", int(event.Fault.Code)),
			slog.String("fault_msg", event.Fault.Message),
		)
		if event.Fault.Path != "" {
			attrs = append(attrs, slog.String("path", event.Fault.Path))
		}
		if event.Fault.Context != "" {
			attrs = append(attrs, slog.String("fault_context", event.Fault.Context))
		}
	case event.Notification != nil:
		attrs = append(attrs, slog.Int("reports", len(event.Notification.Paths)))
		if event.Notification.Sink != "" {
			attrs = append(attrs, slog.String("sink", event.Notification.Sink))
		}
		if event.Notification.Error != "" {
			attrs = append(attrs, slog.String("error", event.Notification.Error))
		}
	}

	a.logger.LogAttrs(context.Background(), a.level, "paramtree", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
