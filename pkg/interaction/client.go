package interaction

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// RequestSender sends encoded requests.
type RequestSender interface {
	Send(data []byte) error
}

// FrameReceiver receives encoded messages.
type FrameReceiver interface {
	Receive(timeout time.Duration) ([]byte, error)
}

// Client issues requests to a device and matches responses by message ID.
type Client struct {
	mu sync.RWMutex

	sender  RequestSender
	timeout time.Duration

	nextMsgID atomic.Uint32

	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	notifyHandler func(*wire.Notification)

	closed bool
}

// NewClient creates a client sending through sender.
func NewClient(sender RequestSender) *Client {
	return &Client{
		sender:  sender,
		timeout: 10 * time.Second,
		pending: make(map[uint32]chan *wire.Response),
	}
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetNotificationHandler sets the handler for subscription reports.
func (c *Client) SetNotificationHandler(handler func(*wire.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyHandler = handler
}

// Close fails every pending request with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	return nil
}

// Run reads messages from conn and dispatches them until ctx is cancelled or
// the connection fails.
func (c *Client) Run(ctx context.Context, conn FrameReceiver) error {
	for ctx.Err() == nil {
		data, err := conn.Receive(200 * time.Millisecond)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		if err := c.Dispatch(data); err != nil && !errors.Is(err, ErrUnexpectedReply) {
			return err
		}
	}
	return nil
}

// Dispatch routes one received message to the waiting request or the
// notification handler.
func (c *Client) Dispatch(data []byte) error {
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
		n, err := wire.DecodeNotification(data)
		if err != nil {
			return err
		}
		c.HandleNotification(n)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedReply, typ)
	}
}

// HandleResponse completes the request waiting for resp.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.MessageID]
	if ok {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !ok {
		return ErrUnexpectedReply
	}
	ch <- resp
	return nil
}

// HandleNotification passes n to the notification handler.
func (c *Client) HandleNotification(n *wire.Notification) {
	c.mu.RLock()
	handler := c.notifyHandler
	c.mu.RUnlock()

	if handler != nil {
		handler(n)
	}
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextMsgID.Add(1); id != wire.NotificationMessageID {
			return id
		}
	}
}

// do sends a request and waits for its response. Non-success statuses are
// returned as *StatusError.
func (c *Client) do(ctx context.Context, op wire.Operation, endpointID uint16, clusterID uint32, payload any) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	req, err := wire.NewRequest(c.nextMessageID(), op, endpointID, clusterID, payload)
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

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
		if !resp.IsSuccess() {
			return resp, &StatusError{Status: resp.Status, Message: resp.ErrorMessage()}
		}
		return resp, nil
	}
}

// Read reads attributes of a cluster. A nil attrIDs reads all of them.
func (c *Client) Read(ctx context.Context, endpointID uint16, clusterID uint32, attrIDs []uint16) (*wire.ReadResponsePayload, error) {
	return c.ReadIfChanged(ctx, endpointID, clusterID, attrIDs, nil)
}

// ReadIfChanged reads like Read but leaves values out when the cluster's
// data version still equals *version.
func (c *Client) ReadIfChanged(ctx context.Context, endpointID uint16, clusterID uint32, attrIDs []uint16, version *uint32) (*wire.ReadResponsePayload, error) {
	resp, err := c.do(ctx, wire.OpRead, endpointID, clusterID, &wire.ReadPayload{AttributeIDs: attrIDs, DataVersion: version})
	if err != nil {
		return nil, err
	}
	var p wire.ReadResponsePayload
	if err := resp.DecodePayload(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return &p, nil
}

// Write writes attributes. Every attribute of the device is read-only, so
// this exists to exercise the ReadOnly path.
func (c *Client) Write(ctx context.Context, endpointID uint16, clusterID uint32, attrs map[uint16]any) error {
	_, err := c.do(ctx, wire.OpWrite, endpointID, clusterID, attrs)
	return err
}

// SubscribeOptions configures a subscription.
type SubscribeOptions struct {
	// AttributeIDs limits the subscription. Empty means all attributes.
	AttributeIDs []uint16

	MinInterval time.Duration
	MaxInterval time.Duration
}

// Subscribe subscribes to a cluster and returns the subscription ID and the
// priming values.
func (c *Client) Subscribe(ctx context.Context, endpointID uint16, clusterID uint32, opts *SubscribeOptions) (uint32, map[uint16]wire.AttributeData, error) {
	payload := &wire.SubscribePayload{}
	if opts != nil {
		payload.AttributeIDs = opts.AttributeIDs
		payload.MinInterval = uint32(opts.MinInterval.Milliseconds())
		payload.MaxInterval = uint32(opts.MaxInterval.Milliseconds())
	}

	resp, err := c.do(ctx, wire.OpSubscribe, endpointID, clusterID, payload)
	if err != nil {
		return 0, nil, err
	}
	var p wire.SubscribeResponsePayload
	if err := resp.DecodePayload(&p); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return p.SubscriptionID, p.Priming, nil
}

// Unsubscribe cancels a subscription.
func (c *Client) Unsubscribe(ctx context.Context, subscriptionID uint32) error {
	_, err := c.do(ctx, wire.OpSubscribe, 0, 0, &wire.UnsubscribePayload{SubscriptionID: subscriptionID})
	return err
}

// Invoke executes a command. fields may be nil.
func (c *Client) Invoke(ctx context.Context, endpointID uint16, clusterID uint32, commandID uint8, fields any) error {
	p := &wire.InvokePayload{CommandID: commandID}
	if fields != nil {
		data, err := wire.Marshal(fields)
		if err != nil {
			return err
		}
		p.Fields = data
	}
	_, err := c.do(ctx, wire.OpInvoke, endpointID, clusterID, p)
	return err
}

// StatusError is a non-success response.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status.String()
}
