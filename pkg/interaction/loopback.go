package interaction

import (
	"context"
	"log/slog"
	"sync"

	"github.com/paramtree/paramtree-go/pkg/wire"
)

// Loopback connects a Client to a Server in the same process. Requests and
// notifications travel through the wire encoding, so the full message path
// is exercised without a network transport.
type Loopback struct {
	server *Server
	client *Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewLoopback creates a client bound to server.
func NewLoopback(server *Server) *Loopback {
	lb := &Loopback{server: server, logger: server.logger}
	lb.client = NewClient(lb)
	return lb
}

// Client returns the bound client.
func (lb *Loopback) Client() *Client {
	return lb.client
}

// Send implements RequestSender. The request is handled on its own
// goroutine, like a remote device would.
func (lb *Loopback) Send(data []byte) error {
	lb.wg.Add(1)
	go func() {
		defer lb.wg.Done()
		resp, err := lb.server.HandleMessage(context.Background(), data)
		if err != nil {
			lb.logger.Warn("loopback request dropped", "error", err)
			return
		}
		if err := lb.client.HandleMessage(resp); err != nil {
			lb.logger.Debug("loopback response dropped", "error", err)
		}
	}()
	return nil
}

// Notify delivers a notification to the client. It has the signature of a
// NotificationHandler.
func (lb *Loopback) Notify(notif *wire.Notification) error {
	data, err := wire.EncodeNotification(notif)
	if err != nil {
		return err
	}
	return lb.client.HandleMessage(data)
}

// Close closes the client and waits for in-flight requests.
func (lb *Loopback) Close() error {
	err := lb.client.Close()
	lb.wg.Wait()
	return err
}
