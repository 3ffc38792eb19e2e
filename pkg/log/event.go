package log

import (
	"time"

	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// Event is a captured management event. CBOR encoding uses integer keys
// for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the management session or capture run (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow. Only meaningful for LayerWire.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the management peer, if any.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message      *MessageEvent      `cbor:"10,keyasint,omitempty"` // RPC request/response
	Change       *ChangeEvent       `cbor:"11,keyasint,omitempty"` // Committed tree change
	Fault        *FaultEvent        `cbor:"12,keyasint,omitempty"` // Rejected operation
	Notification *NotificationEvent `cbor:"13,keyasint,omitempty"` // Delivered reports
}

// Path returns the parameter or object path the event refers to, or "" for
// events without one.
func (e Event) Path() string {
	switch {
	case e.Change != nil:
		return e.Change.Path
	case e.Fault != nil:
		return e.Fault.Path
	case e.Message != nil && len(e.Message.Paths) > 0:
		return e.Message.Paths[0]
	}
	return ""
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerWire is the RPC message layer.
	LayerWire Layer = 0
	// LayerTree is the parameter tree.
	LayerTree Layer = 1
	// LayerNotify is notification delivery.
	LayerNotify Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerWire:
		return "WIRE"
	case LayerTree:
		return "TREE"
	case LayerNotify:
		return "NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates an RPC request or response.
	CategoryMessage Category = 0
	// CategoryChange indicates a committed value, add or delete.
	CategoryChange Category = 1
	// CategoryFault indicates a rejected operation.
	CategoryFault Category = 2
	// CategoryNotification indicates delivered value change reports.
	CategoryNotification Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryChange:
		return "CHANGE"
	case CategoryFault:
		return "FAULT"
	case CategoryNotification:
		return "NOTIFICATION"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as returned by String.
func ParseCategory(s string) (Category, bool) {
	for _, c := range []Category{CategoryMessage, CategoryChange, CategoryFault, CategoryNotification} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// MessageEvent captures a decoded RPC message.
type MessageEvent struct {
	Type      wire.MessageType `cbor:"1,keyasint"`
	MessageID uint32           `cbor:"2,keyasint"`

	// Request fields.
	Operation   *wire.Operation `cbor:"3,keyasint,omitempty"`
	Paths       []string        `cbor:"4,keyasint,omitempty"`
	PeerSession string          `cbor:"8,keyasint,omitempty"` // manager session of the request

	// Response fields.
	Status         *wire.Status   `cbor:"5,keyasint,omitempty"`
	FaultCount     int            `cbor:"6,keyasint,omitempty"`
	ProcessingTime *time.Duration `cbor:"7,keyasint,omitempty"`
}

// ChangeEvent captures a committed tree change. Values are in their
// canonical string form.
type ChangeEvent struct {
	Kind         model.ChangeKind   `cbor:"1,keyasint"`
	Path         string             `cbor:"2,keyasint"`
	Type         string             `cbor:"3,keyasint,omitempty"`
	OldValue     string             `cbor:"4,keyasint,omitempty"`
	Value        string             `cbor:"5,keyasint,omitempty"`
	Origin       model.Origin       `cbor:"6,keyasint"`
	Notification model.Notification `cbor:"7,keyasint,omitempty"`
}

// FaultEvent captures a rejected operation.
type FaultEvent struct {
	Path    string      `cbor:"1,keyasint,omitempty"`
	Code    wire.Status `cbor:"2,keyasint"`
	Message string      `cbor:"3,keyasint"`
	Context string      `cbor:"4,keyasint,omitempty"`
}

// NotificationEvent captures a batch of reports handed to a sink.
type NotificationEvent struct {
	Sink  string   `cbor:"1,keyasint,omitempty"`
	Paths []string `cbor:"2,keyasint"`
	Error string   `cbor:"3,keyasint,omitempty"`
}
