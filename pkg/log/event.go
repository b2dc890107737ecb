package log

import (
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// Event is one captured protocol or device event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the controller connection (UUID). Empty for
	// device-layer events.
	SessionID string `cbor:"2,keyasint,omitempty"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Exactly one of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Sample      *SampleEvent      `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
	// DirectionLocal marks events that never crossed the wire.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	LayerTransport Layer = 0
	LayerWire      Layer = 1
	LayerService   Layer = 2
	LayerDevice    Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	case LayerDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategorySample  Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategorySample:
		return "SAMPLE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a raw frame at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes, length prefix included.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload, cut at MaxFrameData bytes.
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameData is the largest payload copied into a FrameEvent.
const MaxFrameData = 4096

// NewFrameEvent builds a transport event for a frame payload.
func NewFrameEvent(sessionID string, dir Direction, payload []byte, prefixSize int) Event {
	data := payload
	truncated := false
	if len(data) > MaxFrameData {
		data = data[:MaxFrameData]
		truncated = true
	}
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: dir,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Frame: &FrameEvent{
			Size:      prefixSize + len(payload),
			Data:      data,
			Truncated: truncated,
		},
	}
}

// MessageEvent captures a decoded protocol message.
type MessageEvent struct {
	Type      wire.MessageType `cbor:"1,keyasint"`
	MessageID uint32           `cbor:"2,keyasint"`

	// Requests.
	Operation  *wire.Operation `cbor:"3,keyasint,omitempty"`
	EndpointID *uint16         `cbor:"4,keyasint,omitempty"`
	ClusterID  *uint32         `cbor:"5,keyasint,omitempty"`

	// Responses.
	Status *wire.Status `cbor:"6,keyasint,omitempty"`

	// Notifications.
	SubscriptionID *uint32 `cbor:"7,keyasint,omitempty"`

	// Payload is the raw CBOR payload.
	Payload []byte `cbor:"8,keyasint,omitempty"`

	// ProcessingTime from request receipt to response (responses only).
	ProcessingTime *time.Duration `cbor:"9,keyasint,omitempty"`
}

// RequestEvent builds a wire event for a received request.
func RequestEvent(sessionID string, req *wire.Request) Event {
	op, ep, cl := req.Operation, req.EndpointID, req.ClusterID
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:       wire.MessageTypeRequest,
			MessageID:  req.MessageID,
			Operation:  &op,
			EndpointID: &ep,
			ClusterID:  &cl,
			Payload:    req.Payload,
		},
	}
}

// ResponseEvent builds a wire event for a sent response.
func ResponseEvent(sessionID string, resp *wire.Response, elapsed time.Duration) Event {
	status := resp.Status
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionOut,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:           wire.MessageTypeResponse,
			MessageID:      resp.MessageID,
			Status:         &status,
			Payload:        resp.Payload,
			ProcessingTime: &elapsed,
		},
	}
}

// NotificationEvent builds a wire event for a sent subscription report.
func NotificationEvent(sessionID string, n *wire.Notification) Event {
	sub, ep, cl := n.SubscriptionID, n.EndpointID, n.ClusterID
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionOut,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:           wire.MessageTypeNotification,
			EndpointID:     &ep,
			ClusterID:      &cl,
			SubscriptionID: &sub,
		},
	}
}

// StateChangeEvent captures session and subscription lifecycle changes.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntitySession      StateEntity = 0
	StateEntitySubscription StateEntity = 1
	StateEntityActivity     StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityActivity:
		return "ACTIVITY"
	default:
		return "UNKNOWN"
	}
}

// StateEvent builds a service event for a lifecycle change.
func StateEvent(sessionID string, entity StateEntity, oldState, newState, reason string) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionLocal,
		Layer:     LayerService,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// SampleEvent captures one completed poll iteration that changed state.
type SampleEvent struct {
	// Temperature in °C, nil when the bus transaction failed.
	Temperature *float32 `cbor:"1,keyasint,omitempty"`

	// Humidity in %RH, nil when the bus transaction failed.
	Humidity *float32 `cbor:"2,keyasint,omitempty"`

	OnOff bool `cbor:"3,keyasint"`

	// ButtonEdge is set when a press toggled the light in this iteration.
	ButtonEdge bool `cbor:"4,keyasint,omitempty"`

	// BusError is the bus failure that skipped the sensor update.
	BusError string `cbor:"5,keyasint,omitempty"`
}

// NewSampleEvent builds a device event for a poll iteration.
func NewSampleEvent(sample SampleEvent) Event {
	return Event{
		Timestamp: time.Now(),
		Direction: DirectionLocal,
		Layer:     LayerDevice,
		Category:  CategorySample,
		Sample:    &sample,
	}
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes the operation that failed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// ErrorEvent builds an error event.
func ErrorEvent(sessionID string, layer Layer, err error, context string) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: DirectionLocal,
		Layer:     layer,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	}
}
