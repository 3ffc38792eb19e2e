package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Messages use integer map keys and canonical ordering, so equal messages
// encode to equal bytes. Decoding skips unknown keys.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encoder options: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decoder options: %v", err))
	}
	return m
}

func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func decode(data []byte, v any, what string) error {
	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}

// EncodeRequest validates and encodes a request.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes a request. The operation is not checked, so an
// unknown one still reaches the handler and can be answered with 9000.
func DecodeRequest(data []byte) (*Request, error) {
	req := new(Request)
	if err := decode(data, req, "request"); err != nil {
		return nil, err
	}
	if req.MessageID == NotificationMessageID {
		return nil, fmt.Errorf("invalid request: messageId 0 is reserved for notifications")
	}
	return req, nil
}

func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

func DecodeResponse(data []byte) (*Response, error) {
	resp := new(Response)
	if err := decode(data, resp, "response"); err != nil {
		return nil, err
	}
	return resp, nil
}

type notificationWire struct {
	MessageID uint32  `cbor:"1,keyasint"`
	Sequence  uint32  `cbor:"2,keyasint"`
	Changes   []Value `cbor:"3,keyasint"`
}

// EncodeNotification encodes a notification under the reserved message
// ID 0.
func EncodeNotification(notif *Notification) ([]byte, error) {
	return Marshal(notificationWire{
		MessageID: NotificationMessageID,
		Sequence:  notif.Sequence,
		Changes:   notif.Changes,
	})
}

// DecodeNotification decodes CBOR bytes into a notification message.
func DecodeNotification(data []byte) (*Notification, error) {
	var w notificationWire
	if err := decode(data, &w, "notification"); err != nil {
		return nil, err
	}
	if w.MessageID != NotificationMessageID {
		return nil, fmt.Errorf("not a notification message: messageId=%d", w.MessageID)
	}
	return &Notification{Sequence: w.Sequence, Changes: w.Changes}, nil
}

// MessageType is the kind of an encoded message.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeRequest
	MessageTypeResponse
	MessageTypeNotification
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "request"
	case MessageTypeResponse:
		return "response"
	case MessageTypeNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// messageHeader holds the first two keys shared by all messages. Key 2 is
// the operation of a request and the status of a response.
type messageHeader struct {
	MessageID uint32 `cbor:"1,keyasint"`
	OpOrCode  uint32 `cbor:"2,keyasint"`
}

// PeekMessageType classifies an encoded message from its header: message
// ID 0 is a notification, an operation code (1-7) a request, and 0 or a
// fault code (9000 and up) a response.
func PeekMessageType(data []byte) (MessageType, error) {
	var h messageHeader
	if err := decode(data, &h, "message header"); err != nil {
		return MessageTypeUnknown, err
	}
	switch {
	case h.MessageID == NotificationMessageID:
		return MessageTypeNotification, nil
	case h.OpOrCode <= 0xFF && Operation(h.OpOrCode).IsValid():
		return MessageTypeRequest, nil
	case h.OpOrCode == 0 || h.OpOrCode >= 9000:
		return MessageTypeResponse, nil
	}
	return MessageTypeUnknown, nil
}
