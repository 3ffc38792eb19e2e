package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR map keys for message encoding.
const (
	KeyMessageID  = 1
	KeyOpOrStatus = 2 // Operation (request) or Status (response)
	KeyPayload    = 3
	KeyFaults     = 4
)

// MessageID 0 is reserved to indicate a notification message.
const NotificationMessageID uint32 = 0

// Request is an RPC from the manager to the device.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32
//	  2: operation,    // uint8: 1=GetParameterValues ... 7=DeleteObject
//	  3: payload,      // operation-specific data
//	  4: sessionId     // string: the manager session that sent it
//	}
type Request struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Operation Operation       `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
	SessionID string          `cbor:"4,keyasint,omitempty"`
}

// NewRequest creates a request with an encoded payload.
func NewRequest(id uint32, op Operation, payload any) (*Request, error) {
	req := &Request{MessageID: id, Operation: op}
	if payload != nil {
		data, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", op, err)
		}
		req.Payload = data
	}
	return req, nil
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == NotificationMessageID {
		return fmt.Errorf("messageId 0 is reserved for notifications")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	return nil
}

// DecodePayload decodes the request payload into v.
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s request has no payload", r.Operation)
	}
	return Unmarshal(r.Payload, v)
}

// Response is the device's answer to a Request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint16: 0=success, or TR-069 fault code
//	  3: payload,      // operation-specific result (if success)
//	  4: faults        // per-parameter faults (if any)
//	}
type Response struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Status    Status          `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
	Faults    []FaultDetail   `cbor:"4,keyasint,omitempty"`
}

// NewResponse creates a successful response with an encoded result.
func NewResponse(id uint32, result any) (*Response, error) {
	resp := &Response{MessageID: id, Status: StatusSuccess}
	if result != nil {
		data, err := Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding result: %w", err)
		}
		resp.Payload = data
	}
	return resp, nil
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// DecodePayload decodes the response result into v.
func (r *Response) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("response has no payload (status %s)", r.Status)
	}
	return Unmarshal(r.Payload, v)
}

// FaultDetail is a fault on a single parameter, as reported for a rejected
// SetParameterValues.
type FaultDetail struct {
	Path    string `cbor:"1,keyasint"`
	Code    Status `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint,omitempty"`
}

// Notification reports parameter value changes to the manager.
//
// CBOR encoding:
//
//	{
//	  1: 0,          // messageId 0 = notification
//	  2: sequence,   // uint32, increments per notification
//	  3: changes     // array of values
//	}
type Notification struct {
	Sequence uint32  `cbor:"2,keyasint"`
	Changes  []Value `cbor:"3,keyasint"`
}

// ---------------------------------------------------------------------------
// Request payloads
// ---------------------------------------------------------------------------

// GetValuesPayload is the payload of GetParameterValues.
type GetValuesPayload struct {
	Paths []string `cbor:"1,keyasint"`
}

// SetValuesPayload is the payload of SetParameterValues. The ParameterKey
// is written in the same atomic operation as the values.
type SetValuesPayload struct {
	Values       []Value `cbor:"1,keyasint"`
	ParameterKey string  `cbor:"2,keyasint,omitempty"`
}

// GetNamesPayload is the payload of GetParameterNames.
type GetNamesPayload struct {
	Path      string `cbor:"1,keyasint"`
	NextLevel bool   `cbor:"2,keyasint,omitempty"`
}

// GetAttributesPayload is the payload of GetParameterAttributes.
type GetAttributesPayload struct {
	Paths []string `cbor:"1,keyasint"`
}

// SetAttribute is one entry of SetParameterAttributes. The notification is
// only applied when NotificationChange is set.
type SetAttribute struct {
	Path               string `cbor:"1,keyasint"`
	NotificationChange bool   `cbor:"2,keyasint,omitempty"`
	Notification       uint8  `cbor:"3,keyasint,omitempty"`
}

// SetAttributesPayload is the payload of SetParameterAttributes.
type SetAttributesPayload struct {
	Attributes []SetAttribute `cbor:"1,keyasint"`
}

// ObjectPayload is the payload of AddObject and DeleteObject. For AddObject
// the path names the table; for DeleteObject the row.
type ObjectPayload struct {
	Path         string `cbor:"1,keyasint"`
	ParameterKey string `cbor:"2,keyasint,omitempty"`
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// GetValuesResult is the result of GetParameterValues.
type GetValuesResult struct {
	Values []Value `cbor:"1,keyasint"`
}

// ApplyResult is the result of SetParameterValues and DeleteObject.
// Status 0 means the change has been applied.
type ApplyResult struct {
	Status uint8 `cbor:"1,keyasint"`
}

// NameEntry is one entry of GetParameterNames.
type NameEntry struct {
	Path     string `cbor:"1,keyasint"`
	Writable bool   `cbor:"2,keyasint"`
}

// GetNamesResult is the result of GetParameterNames.
type GetNamesResult struct {
	Names []NameEntry `cbor:"1,keyasint"`
}

// Attribute is a parameter's notification attribute.
type Attribute struct {
	Path         string `cbor:"1,keyasint"`
	Notification uint8  `cbor:"2,keyasint"`
}

// GetAttributesResult is the result of GetParameterAttributes.
type GetAttributesResult struct {
	Attributes []Attribute `cbor:"1,keyasint"`
}

// AddObjectResult is the result of AddObject.
type AddObjectResult struct {
	InstanceNumber uint32 `cbor:"1,keyasint"`
	Status         uint8  `cbor:"2,keyasint"`
}
