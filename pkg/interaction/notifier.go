package interaction

import (
	"context"
	"sync"

	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/notify"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// NotificationHandler is called with each outgoing notification.
type NotificationHandler func(notif *wire.Notification) error

// Notifier delivers value change reports to the manager as wire
// notifications. It implements notify.Sink.
type Notifier struct {
	mu       sync.Mutex
	peer     string
	handler  NotificationHandler
	sequence uint32
	recorder *log.Recorder
}

// NewNotifier creates a Notifier that passes notifications to handler.
// peer names the receiving manager session or connection in captured
// deliveries.
func NewNotifier(peer string, handler NotificationHandler) *Notifier {
	return &Notifier{peer: peer, handler: handler}
}

// Peer returns the name deliveries are captured under.
func (n *Notifier) Peer() string {
	return n.peer
}

// SetRecorder captures each delivery.
func (n *Notifier) SetRecorder(rec *log.Recorder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recorder = rec
}

// Sequence returns the sequence number of the last notification sent.
func (n *Notifier) Sequence() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sequence
}

// Publish sends the reports as one notification. Sequence numbers are only
// consumed by notifications that were handed to the handler successfully.
func (n *Notifier) Publish(ctx context.Context, reports []notify.Report) error {
	if len(reports) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	notif := &wire.Notification{
		Sequence: n.sequence + 1,
		Changes:  make([]wire.Value, len(reports)),
	}
	paths := make([]string, len(reports))
	for i, r := range reports {
		notif.Changes[i] = wire.FromModel(model.ParameterValue{Path: r.Path, Type: r.Type, Value: r.Value})
		paths[i] = r.Path
	}

	err := n.handler(notif)
	if n.recorder != nil {
		n.recorder.Delivered(n.peer, paths, err)
	}
	if err != nil {
		return err
	}
	n.sequence = notif.Sequence
	return nil
}

var _ notify.Sink = (*Notifier)(nil)
