package transport

import (
	"context"
	"net"
	"time"
)

// Session is the server side of one controller connection.
// Implemented by ServerConn.
type Session interface {
	// SessionID returns the unique identifier of the connection.
	SessionID() string

	// RemoteAddr returns the controller address.
	RemoteAddr() net.Addr

	// Send sends one message.
	Send(data []byte) error

	// Close closes the connection.
	Close() error
}

// ClientConnection is the controller side of a connection.
// Implemented by ClientConn.
type ClientConnection interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// TransportServer accepts controller connections.
// Implemented by Server.
type TransportServer interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

var (
	_ Session          = (*ServerConn)(nil)
	_ ClientConnection = (*ClientConn)(nil)
	_ TransportServer  = (*Server)(nil)
	_ FrameReadWriter  = (*Framer)(nil)
)
