package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/paramtree/paramtree-go/pkg/interaction"
)

// DefaultConnectTimeout applies when the dial context has no deadline.
const DefaultConnectTimeout = 10 * time.Second

// ErrConnClosed is returned when sending on a closed connection.
var ErrConnClosed = errors.New("connection closed")

// ClientConfig configures Dial.
type ClientConfig struct {
	// TLSConfig enables TLS when set.
	TLSConfig *tls.Config

	ConnectTimeout time.Duration
	MaxMessageSize uint32
	Logger         *slog.Logger
}

// ClientConn is a management connection to a device. It carries an
// interaction.Client whose requests go out over the connection and whose
// responses and notifications are fed from its read loop.
type ClientConn struct {
	conn   net.Conn
	framer *Framer
	client *interaction.Client
	logger *slog.Logger

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Dial connects to a device at address.
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if config.TLSConfig != nil {
		tlsConn := tls.Client(conn, config.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		conn = tlsConn
	}

	c := &ClientConn{
		conn:   conn,
		framer: NewFramer(conn, config.MaxMessageSize),
		logger: logger,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.client = interaction.NewClient(c)
	go c.readLoop()
	return c, nil
}

// Client returns the management client bound to this connection.
func (c *ClientConn) Client() *interaction.Client {
	return c.client
}

// RemoteAddr returns the device address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes one encoded request. It implements interaction.RequestSender.
func (c *ClientConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Done is closed when the read loop has exited.
func (c *ClientConn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the read loop exited; nil after a clean close.
func (c *ClientConn) Err() error {
	<-c.done
	return c.err
}

// Close closes the connection and fails pending requests.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
		c.client.Close()
	})
	<-c.done
	return err
}

func (c *ClientConn) readLoop() {
	defer close(c.done)
	for {
		frame, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if !errors.Is(err, io.EOF) {
					c.err = err
				}
				// The peer went away; nothing will answer pending requests.
				c.closeOnce.Do(func() {
					close(c.closed)
					c.conn.Close()
					c.client.Close()
				})
			}
			return
		}
		if err := c.client.HandleMessage(frame); err != nil {
			c.logger.Debug("ignoring message", "error", err)
		}
	}
}
