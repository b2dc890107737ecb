package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MessageID 0 is reserved to indicate a notification message.
const NotificationMessageID uint32 = 0

// cborNull is the encoding of CBOR null.
var cborNull = cbor.RawMessage{0xf6}

// Request represents a request message from controller to device.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, never 0
//	  2: operation,    // uint8: 1=Read, 2=Write, 3=Subscribe, 4=Invoke
//	  3: endpointId,   // uint16
//	  4: clusterId,    // uint32
//	  5: payload       // operation-specific data
//	}
type Request struct {
	MessageID  uint32          `cbor:"1,keyasint"`
	Operation  Operation       `cbor:"2,keyasint"`
	EndpointID uint16          `cbor:"3,keyasint"`
	ClusterID  uint32          `cbor:"4,keyasint"`
	Payload    cbor.RawMessage `cbor:"5,keyasint,omitempty"`
}

// NewRequest creates a request, encoding payload when it is not nil.
func NewRequest(msgID uint32, op Operation, endpointID uint16, clusterID uint32, payload any) (*Request, error) {
	req := &Request{
		MessageID:  msgID,
		Operation:  op,
		EndpointID: endpointID,
		ClusterID:  clusterID,
	}
	if payload != nil {
		data, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		req.Payload = data
	}
	return req, nil
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == NotificationMessageID {
		return errors.New("messageId 0 is reserved for notifications")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	return nil
}

// IsUnsubscribe reports whether the request cancels a subscription.
func (r *Request) IsUnsubscribe() bool {
	return r.Operation == OpSubscribe && r.EndpointID == 0 && r.ClusterID == 0
}

// DecodePayload decodes the request payload into v.
// An absent payload leaves v untouched.
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return Unmarshal(r.Payload, v)
}

// Response represents a response message from device to controller.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint8: 0=success, or error code
//	  3: payload       // operation-specific response data
//	}
type Response struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Status    Status          `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// NewResponse creates a response, encoding payload when it is not nil.
func NewResponse(msgID uint32, status Status, payload any) (*Response, error) {
	resp := &Response{MessageID: msgID, Status: status}
	if payload != nil {
		data, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		resp.Payload = data
	}
	return resp, nil
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// DecodePayload decodes the response payload into v.
func (r *Response) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return Unmarshal(r.Payload, v)
}

// ErrorMessage returns the message of an ErrorPayload, if present.
func (r *Response) ErrorMessage() string {
	var ep ErrorPayload
	if r.IsSuccess() || r.DecodePayload(&ep) != nil {
		return ""
	}
	return ep.Message
}

// Notification represents an unsolicited subscription report.
//
// CBOR encoding:
//
//	{
//	  1: 0,                // messageId 0 = notification
//	  2: subscriptionId,   // uint32
//	  3: endpointId,       // uint16
//	  4: clusterId,        // uint32
//	  5: attributes        // map attrId -> AttributeData (absent on empty heartbeat)
//	}
type Notification struct {
	SubscriptionID uint32
	EndpointID     uint16
	ClusterID      uint32
	Attributes     map[uint16]AttributeData
}

// AttributeData is one reported attribute value.
//
// CBOR encoding:
//
//	{
//	  1: dataVersion,  // uint32: cluster data version when encoded
//	  2: value         // raw CBOR, null when not available
//	}
type AttributeData struct {
	DataVersion uint32          `cbor:"1,keyasint"`
	Value       cbor.RawMessage `cbor:"2,keyasint"`
}

// IsNull reports whether the value is CBOR null.
func (a AttributeData) IsNull() bool {
	return len(a.Value) == 1 && a.Value[0] == cborNull[0]
}

// Decode decodes the raw value into v.
func (a AttributeData) Decode(v any) error {
	if len(a.Value) == 0 {
		return errors.New("attribute value missing")
	}
	return Unmarshal(a.Value, v)
}

// NullValue returns the raw encoding of CBOR null.
func NullValue() cbor.RawMessage {
	return append(cbor.RawMessage(nil), cborNull...)
}

// ReadPayload represents the payload for a Read request.
//
// CBOR encoding:
//
//	{
//	  1: attributeIds,  // array (empty = all)
//	  2: dataVersion    // uint32: skip the report when it still matches
//	}
type ReadPayload struct {
	AttributeIDs []uint16 `cbor:"1,keyasint,omitempty"`
	DataVersion  *uint32  `cbor:"2,keyasint,omitempty"`
}

// ReadResponsePayload represents the payload for a Read response.
//
// CBOR encoding:
//
//	{
//	  1: attributes,  // map attrId -> AttributeData
//	  2: statuses     // map attrId -> status for attributes that failed
//	}
type ReadResponsePayload struct {
	Attributes map[uint16]AttributeData `cbor:"1,keyasint,omitempty"`
	Statuses   map[uint16]Status        `cbor:"2,keyasint,omitempty"`
}

// SubscribePayload represents the payload for a Subscribe request.
//
// CBOR encoding:
//
//	{
//	  1: attributeIds,  // array (empty = all)
//	  2: minInterval,   // uint32: minimum ms between reports
//	  3: maxInterval    // uint32: maximum ms without a report (heartbeat)
//	}
type SubscribePayload struct {
	AttributeIDs []uint16 `cbor:"1,keyasint,omitempty"`
	MinInterval  uint32   `cbor:"2,keyasint,omitempty"`
	MaxInterval  uint32   `cbor:"3,keyasint,omitempty"`
}

// SubscribeResponsePayload represents the payload for a Subscribe response.
//
// CBOR encoding:
//
//	{
//	  1: subscriptionId,  // uint32
//	  2: priming          // current values of the subscribed attributes
//	}
type SubscribeResponsePayload struct {
	SubscriptionID uint32                   `cbor:"1,keyasint"`
	Priming        map[uint16]AttributeData `cbor:"2,keyasint,omitempty"`
}

// UnsubscribePayload represents the payload for an Unsubscribe request.
// Sent as Subscribe operation with endpointId=0, clusterId=0.
type UnsubscribePayload struct {
	SubscriptionID uint32 `cbor:"1,keyasint"`
}

// InvokePayload represents the payload for an Invoke request.
//
// CBOR encoding:
//
//	{
//	  1: commandId,   // uint8
//	  2: fields       // command-specific fields
//	}
type InvokePayload struct {
	CommandID uint8           `cbor:"1,keyasint"`
	Fields    cbor.RawMessage `cbor:"2,keyasint,omitempty"`
}

// ErrorPayload represents additional error information in a response.
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}
