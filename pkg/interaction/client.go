package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/paramtree/paramtree-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// RequestSender sends encoded requests to the device.
type RequestSender interface {
	Send(data []byte) error
}

// Client makes management requests. Responses are fed back through
// HandleMessage or HandleResponse by whatever reads the connection.
type Client struct {
	mu sync.RWMutex

	sender    RequestSender
	timeout   time.Duration
	sessionID string

	nextMsgID uint32

	// Pending requests awaiting responses
	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	notifyHandler func(*wire.Notification)

	closed bool
}

// NewClient creates a client with a fresh session ID.
func NewClient(sender RequestSender) *Client {
	return &Client{
		sender:    sender,
		timeout:   30 * time.Second,
		sessionID: uuid.NewString(),
		pending:   make(map[uint32]chan *wire.Response),
	}
}

// SessionID identifies this client's session. It is sent with every
// request.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetNotificationHandler sets the handler for incoming notifications.
func (c *Client) SetNotificationHandler(handler func(*wire.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyHandler = handler
}

// Close closes the client and fails all pending requests.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	c.pendingMu.Lock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = make(map[uint32]chan *wire.Response)
	c.pendingMu.Unlock()

	return nil
}

// nextMessageID generates the next message ID, skipping the notification ID.
func (c *Client) nextMessageID() uint32 {
	for {
		id := atomic.AddUint32(&c.nextMsgID, 1)
		if id != wire.NotificationMessageID {
			return id
		}
	}
}

func (c *Client) call(ctx context.Context, op wire.Operation, payload, result any) error {
	req, err := wire.NewRequest(c.nextMessageID(), op, payload)
	if err != nil {
		return err
	}
	req.SessionID = c.sessionID
	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return &StatusError{Status: resp.Status, Faults: resp.Faults}
	}
	if result == nil || len(resp.Payload) == 0 {
		return nil
	}
	if err := resp.DecodePayload(result); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return nil
}

// sendRequest sends a request and waits for the response.
func (c *Client) sendRequest(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	respCh := make(chan *wire.Response, 1)

	c.pendingMu.Lock()
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := c.sender.Send(data); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClientClosed
		}
		return resp, nil
	}
}

// HandleMessage dispatches an encoded response or notification.
func (c *Client) HandleMessage(data []byte) error {
	typ, err := wire.PeekMessageType(data)
	if err != nil {
		return err
	}
	switch typ {
	case wire.MessageTypeResponse:
		resp, err := wire.DecodeResponse(data)
		if err != nil {
			return err
		}
		return c.HandleResponse(resp)
	case wire.MessageTypeNotification:
		notif, err := wire.DecodeNotification(data)
		if err != nil {
			return err
		}
		c.HandleNotification(notif)
		return nil
	default:
		return fmt.Errorf("%w: %s message", ErrUnexpectedReply, typ)
	}
}

// HandleResponse should be called when a response is received.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, exists := c.pending[resp.MessageID]
	if exists {
		select {
		case ch <- resp:
		default:
		}
	}
	c.pendingMu.Unlock()

	if !exists {
		return ErrUnexpectedReply
	}
	return nil
}

// HandleNotification should be called when a notification is received.
func (c *Client) HandleNotification(notif *wire.Notification) {
	c.mu.RLock()
	handler := c.notifyHandler
	c.mu.RUnlock()

	if handler != nil {
		handler(notif)
	}
}

// GetParameterValues reads the values at the given paths. Partial paths
// (trailing dot) expand to every parameter beneath them.
func (c *Client) GetParameterValues(ctx context.Context, paths ...string) ([]wire.Value, error) {
	var res wire.GetValuesResult
	if err := c.call(ctx, wire.OpGetParameterValues, wire.GetValuesPayload{Paths: paths}, &res); err != nil {
		return nil, err
	}
	return res.Values, nil
}

// SetParameterValues writes values as one atomic batch and stores key as
// the device's ParameterKey.
func (c *Client) SetParameterValues(ctx context.Context, key string, values ...wire.Value) error {
	return c.call(ctx, wire.OpSetParameterValues, wire.SetValuesPayload{Values: values, ParameterKey: key}, &wire.ApplyResult{})
}

// GetParameterNames lists names at path. An empty path means the root.
func (c *Client) GetParameterNames(ctx context.Context, path string, nextLevel bool) ([]wire.NameEntry, error) {
	var res wire.GetNamesResult
	if err := c.call(ctx, wire.OpGetParameterNames, wire.GetNamesPayload{Path: path, NextLevel: nextLevel}, &res); err != nil {
		return nil, err
	}
	return res.Names, nil
}

// GetParameterAttributes reads notification attributes.
func (c *Client) GetParameterAttributes(ctx context.Context, paths ...string) ([]wire.Attribute, error) {
	var res wire.GetAttributesResult
	if err := c.call(ctx, wire.OpGetParameterAttributes, wire.GetAttributesPayload{Paths: paths}, &res); err != nil {
		return nil, err
	}
	return res.Attributes, nil
}

// SetParameterAttributes changes notification attributes atomically.
func (c *Client) SetParameterAttributes(ctx context.Context, attrs ...wire.SetAttribute) error {
	return c.call(ctx, wire.OpSetParameterAttributes, wire.SetAttributesPayload{Attributes: attrs}, nil)
}

// AddObject adds a row to the table at path and returns its instance number.
func (c *Client) AddObject(ctx context.Context, path, key string) (uint32, error) {
	var res wire.AddObjectResult
	if err := c.call(ctx, wire.OpAddObject, wire.ObjectPayload{Path: path, ParameterKey: key}, &res); err != nil {
		return 0, err
	}
	return res.InstanceNumber, nil
}

// DeleteObject deletes the row at path.
func (c *Client) DeleteObject(ctx context.Context, path, key string) error {
	return c.call(ctx, wire.OpDeleteObject, wire.ObjectPayload{Path: path, ParameterKey: key}, &wire.ApplyResult{})
}

// StatusError is a fault response from the device.
type StatusError struct {
	Status wire.Status
	Faults []wire.FaultDetail
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fault %d (%s)", uint16(e.Status), e.Status)
	for _, f := range e.Faults {
		b.WriteString("; ")
		if f.Path != "" {
			b.WriteString(f.Path)
			b.WriteString(": ")
		}
		fmt.Fprintf(&b, "%d", uint16(f.Code))
		if f.Message != "" {
			b.WriteString(" ")
			b.WriteString(f.Message)
		}
	}
	return b.String()
}

// FaultFor returns the fault reported for path, if any.
func (e *StatusError) FaultFor(path string) (wire.FaultDetail, bool) {
	for _, f := range e.Faults {
		if f.Path == path {
			return f, true
		}
	}
	return wire.FaultDetail{}, false
}
