package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/mash-sensor/pkg/log"
)

// DefaultPort is the default operational port.
const DefaultPort = 5540

// DefaultIdleTimeout closes connections that send nothing for this long.
const DefaultIdleTimeout = 5 * time.Minute

// writeTimeout bounds one Send so a stalled controller cannot block the
// reporter.
const writeTimeout = 10 * time.Second

// Server errors.
var (
	ErrServerRunning    = errors.New("server already running")
	ErrConnectionClosed = errors.New("connection closed")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g. ":5540" or "127.0.0.1:0").
	Address string

	// MaxMessageSize bounds incoming and outgoing frames (default 64 KB).
	MaxMessageSize uint32

	// IdleTimeout closes silent connections (default 5 min, negative disables).
	IdleTimeout time.Duration

	// Logger captures frames and session changes (optional).
	Logger log.Logger

	// OnConnect is called after a connection is registered.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after a connection is unregistered.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called from the connection's read goroutine for every
	// frame. Messages of one connection are delivered in order.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called for accept and read failures. conn is nil for
	// accept failures.
	OnError func(conn *ServerConn, err error)
}

// Server accepts controller connections over TCP.
type Server struct {
	config ServerConfig

	// mu guards listener and cancel. ctx is written before the accept
	// loop starts.
	mu       sync.Mutex
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a server.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerRunning
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.mu.Unlock()
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.mu.Lock()
	listener, cancel := s.listener, s.cancel
	s.mu.Unlock()
	cancel()

	err := listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return err
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Broadcast sends msg to every open connection and returns the first error.
func (s *Server) Broadcast(msg []byte) error {
	s.connsMu.RLock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	var first error
	for _, c := range conns {
		if err := c.Send(msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept: %w", err))
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sessionID := uuid.New().String()
	framer := NewFramerWithMaxSize(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, sessionID)
	}

	sconn := &ServerConn{
		conn:       conn,
		framer:     framer,
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: conn.RemoteAddr(),
		sessionID:  sessionID,
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		conn.Close()
		return
	}
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	s.logState(sconn, "", "OPEN", "")
	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	reason := sconn.readLoop()
	sconn.Close()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logState(sconn, "OPEN", "CLOSED", reason)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logState(c *ServerConn, from, to, reason string) {
	if s.config.Logger == nil {
		return
	}
	ev := log.StateEvent(c.sessionID, log.StateEntitySession, from, to, reason)
	ev.Layer = log.LayerTransport
	ev.RemoteAddr = c.remoteAddr.String()
	s.config.Logger.Log(ev)
}

// ServerConn is one accepted controller connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	sessionID  string
}

// SessionID returns the unique connection identifier.
func (c *ServerConn) SessionID() string {
	return c.sessionID
}

// RemoteAddr returns the controller address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Send sends one message to the controller.
func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.framer.WriteFrame(data)
}

// Close closes the connection. It is safe to call more than once.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection closes.
func (c *ServerConn) Done() <-chan struct{} {
	return c.closeCh
}

// readLoop delivers frames until the connection fails and returns the reason.
func (c *ServerConn) readLoop() string {
	idle := c.server.config.IdleTimeout
	for {
		if idle > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(idle))
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
				return "closed"
			case <-c.server.ctx.Done():
				return "server stopped"
			default:
			}
			if errors.Is(err, io.EOF) {
				return "eof"
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "idle timeout"
			}
			if c.server.config.OnError != nil {
				c.server.config.OnError(c, err)
			}
			return err.Error()
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}
