package model

import (
	"context"
	"fmt"
)

// Exchange carries the context of one request being served.
type Exchange struct {
	ctx       context.Context
	sessionID string
}

// NewExchange creates an exchange for a request received on sessionID.
func NewExchange(ctx context.Context, sessionID string) *Exchange {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Exchange{ctx: ctx, sessionID: sessionID}
}

// Context returns the request context.
func (e *Exchange) Context() context.Context { return e.ctx }

// SessionID returns the ID of the session the request arrived on.
func (e *Exchange) SessionID() string { return e.sessionID }

// Handler is implemented by every cluster instance.
type Handler interface {
	// Cluster returns the static descriptor of the cluster type.
	Cluster() *Cluster

	// Read encodes one attribute into enc. It must call enc.WithDataver
	// first and encode nothing when that yields no writer.
	Read(ex *Exchange, attr *AttrDetails, enc *AttrEncoder) error
}

// CmdDetails addresses the command being invoked.
type CmdDetails struct {
	EndpointID uint16
	ClusterID  uint32
	CommandID  uint8
}

// String returns the command path as endpoint/cluster/command.
func (d *CmdDetails) String() string {
	return fmt.Sprintf("%d/0x%04X/0x%02X", d.EndpointID, d.ClusterID, d.CommandID)
}

// Invoker is implemented by cluster instances that accept commands.
// fields holds the raw CBOR command fields and may be empty.
type Invoker interface {
	Invoke(ex *Exchange, cmd *CmdDetails, fields []byte) (any, error)
}

// ChangeNotifier is implemented by cluster instances whose state changes at
// runtime. ConsumeChange returns true once per armed change.
type ChangeNotifier interface {
	ConsumeChange() bool
}
