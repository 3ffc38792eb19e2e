package log

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Recorder turns tree changes, faults and RPC messages into events for a
// Logger. It implements model.ChangeListener, so it can be registered with
// model.WithChangeListener or Tree.Subscribe.
type Recorder struct {
	logger    Logger
	sessionID string
	now       func() time.Time
}

// NewRecorder creates a Recorder. An empty sessionID gets a fresh UUID.
func NewRecorder(logger Logger, sessionID string) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	return &Recorder{logger: logger, sessionID: sessionID, now: time.Now}
}

// SessionID returns the session the recorder stamps on its events.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// OnChange logs one CHANGE event per committed change.
func (r *Recorder) OnChange(changes []model.Change) {
	ts := r.now()
	for _, c := range changes {
		ev := &ChangeEvent{
			Kind:         c.Kind,
			Path:         c.Path,
			Origin:       c.Origin,
			Notification: c.Notification,
		}
		if c.Kind == model.ChangeValue {
			ev.Type = c.Type.String()
			if c.OldValue != nil {
				ev.OldValue = c.Type.Format(c.OldValue)
			}
			ev.Value = c.Type.Format(c.Value)
		}
		r.logger.Log(Event{
			Timestamp: ts,
			SessionID: r.sessionID,
			Layer:     LayerTree,
			Category:  CategoryChange,
			Change:    ev,
		})
	}
}

// Fault logs one FAULT event per path-level fault in err. A BatchError
// yields one event per member; any other error yields a single event.
func (r *Recorder) Fault(context string, err error) {
	if err == nil {
		return
	}
	ts := r.now()
	var batch *model.BatchError
	if errors.As(err, &batch) {
		for _, f := range batch.Faults {
			r.logFault(ts, context, f.Path, wire.Status(f.Code), f.Err.Error())
		}
		return
	}
	path := ""
	var fault *model.Fault
	if errors.As(err, &fault) {
		path = fault.Path
	}
	r.logFault(ts, context, path, wire.StatusOf(err), err.Error())
}

func (r *Recorder) logFault(ts time.Time, context, path string, code wire.Status, msg string) {
	r.logger.Log(Event{
		Timestamp: ts,
		SessionID: r.sessionID,
		Layer:     LayerTree,
		Category:  CategoryFault,
		Fault: &FaultEvent{
			Path:    path,
			Code:    code,
			Message: msg,
			Context: context,
		},
	})
}

// Request logs an incoming request.
func (r *Recorder) Request(remote string, req *wire.Request, paths []string) {
	op := req.Operation
	r.logger.Log(Event{
		Timestamp:  r.now(),
		SessionID:  r.sessionID,
		Direction:  DirectionIn,
		Layer:      LayerWire,
		Category:   CategoryMessage,
		RemoteAddr: remote,
		Message: &MessageEvent{
			Type:        wire.MessageTypeRequest,
			MessageID:   req.MessageID,
			Operation:   &op,
			Paths:       paths,
			PeerSession: req.SessionID,
		},
	})
}

// Response logs an outgoing response and how long the request took.
func (r *Recorder) Response(remote string, resp *wire.Response, elapsed time.Duration) {
	status := resp.Status
	r.logger.Log(Event{
		Timestamp:  r.now(),
		SessionID:  r.sessionID,
		Direction:  DirectionOut,
		Layer:      LayerWire,
		Category:   CategoryMessage,
		RemoteAddr: remote,
		Message: &MessageEvent{
			Type:           wire.MessageTypeResponse,
			MessageID:      resp.MessageID,
			Status:         &status,
			FaultCount:     len(resp.Faults),
			ProcessingTime: &elapsed,
		},
	})
}

// Delivered logs a batch of notification reports handed to a sink.
func (r *Recorder) Delivered(sink string, paths []string, err error) {
	ev := &NotificationEvent{Sink: sink, Paths: paths}
	if err != nil {
		ev.Error = err.Error()
	}
	r.logger.Log(Event{
		Timestamp:    r.now(),
		SessionID:    r.sessionID,
		Direction:    DirectionOut,
		Layer:        LayerNotify,
		Category:     CategoryNotification,
		Notification: ev,
	})
}

var _ model.ChangeListener = (*Recorder)(nil)
