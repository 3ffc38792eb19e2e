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
	"sync/atomic"

	"github.com/paramtree/paramtree-go/pkg/interaction"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// DefaultPort is the listen port when ServerConfig.Address is empty.
const DefaultPort = 7547

// Handler answers one encoded request with one encoded response.
// *interaction.Server implements it.
type Handler interface {
	HandleMessage(ctx context.Context, data []byte) ([]byte, error)
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on, e.g. ":7547" or "127.0.0.1:0".
	Address string

	// TLSConfig enables TLS when set. It must carry a certificate.
	TLSConfig *tls.Config

	MaxMessageSize uint32
	Logger         *slog.Logger

	OnConnect    func(remote string)
	OnDisconnect func(remote string)
}

// Server accepts management connections and serves each with a Handler.
type Server struct {
	config   ServerConfig
	handler  Handler
	logger   *slog.Logger
	listener net.Listener

	conns   map[*serverConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server dispatching requests to handler.
func NewServer(handler Handler, config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		config:  config,
		handler: handler,
		logger:  logger,
		conns:   make(map[*serverConn]struct{}),
	}
}

// Start listens on the configured address and begins accepting
// connections. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	var (
		listener net.Listener
		err      error
	)
	if s.config.TLSConfig != nil {
		listener, err = tls.Listen("tcp", s.config.Address, s.config.TLSConfig)
	} else {
		listener, err = net.Listen("tcp", s.config.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("management server listening", "addr", listener.Addr().String(), "tls", s.config.TLSConfig != nil)
	return nil
}

// Stop closes the listener and all connections and waits for their
// goroutines to exit.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Broadcast sends a notification to every connected client. With no
// client connected it does nothing. It matches
// interaction.NotificationHandler.
func (s *Server) Broadcast(notif *wire.Notification) error {
	data, err := wire.EncodeNotification(notif)
	if err != nil {
		return err
	}

	s.connsMu.RLock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	var errs []error
	for _, c := range conns {
		if err := c.framer.WriteFrame(data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.remote, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		sc := &serverConn{
			conn:   conn,
			framer: NewFramer(conn, s.config.MaxMessageSize),
			remote: conn.RemoteAddr().String(),
		}

		s.connsMu.Lock()
		if !s.running.Load() {
			s.connsMu.Unlock()
			conn.Close()
			return
		}
		s.conns[sc] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.serve(sc)
	}
}

// serve answers requests on one connection in arrival order until the
// peer disconnects or the server stops.
func (s *Server) serve(sc *serverConn) {
	defer s.wg.Done()
	defer func() {
		sc.close()
		s.connsMu.Lock()
		delete(s.conns, sc)
		s.connsMu.Unlock()
		s.logger.Info("management client disconnected", "remote", sc.remote)
		if s.config.OnDisconnect != nil {
			s.config.OnDisconnect(sc.remote)
		}
	}()

	s.logger.Info("management client connected", "remote", sc.remote)
	if s.config.OnConnect != nil {
		s.config.OnConnect(sc.remote)
	}

	ctx := interaction.ContextWithRemote(s.ctx, sc.remote)
	for {
		frame, err := sc.framer.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && s.running.Load() {
				s.logger.Debug("read failed", "remote", sc.remote, "error", err)
			}
			return
		}

		resp, err := s.handler.HandleMessage(ctx, frame)
		if err != nil {
			// Without a decodable request there is no message ID to answer.
			s.logger.Warn("dropping undecodable message", "remote", sc.remote, "size", len(frame), "error", err)
			continue
		}
		if err := sc.framer.WriteFrame(resp); err != nil {
			s.logger.Debug("write failed", "remote", sc.remote, "error", err)
			return
		}
	}
}

type serverConn struct {
	conn      net.Conn
	framer    *Framer
	remote    string
	closeOnce sync.Once
}

func (c *serverConn) close() {
	c.closeOnce.Do(func() { c.conn.Close() })
}
