package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	ver := uint32(7)
	tests := []struct {
		name    string
		op      Operation
		ep      uint16
		cluster uint32
		payload any
	}{
		{"read all", OpRead, 2, 0x0402, nil},
		{"read filtered", OpRead, 3, 0x0405, &ReadPayload{AttributeIDs: []uint16{0, 1}, DataVersion: &ver}},
		{"subscribe", OpSubscribe, 2, 0x0402, &SubscribePayload{AttributeIDs: []uint16{0}, MinInterval: 100, MaxInterval: 5000}},
		{"invoke", OpInvoke, 1, 0x0006, &InvokePayload{CommandID: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(42, tt.op, tt.ep, tt.cluster, tt.payload)
			require.NoError(t, err)

			data, err := EncodeRequest(req)
			require.NoError(t, err)

			decoded, err := DecodeRequest(data)
			require.NoError(t, err)

			assert.Equal(t, uint32(42), decoded.MessageID)
			assert.Equal(t, tt.op, decoded.Operation)
			assert.Equal(t, tt.ep, decoded.EndpointID)
			assert.Equal(t, tt.cluster, decoded.ClusterID)
			if tt.payload == nil {
				assert.Empty(t, decoded.Payload)
			} else {
				assert.NotEmpty(t, decoded.Payload)
			}
		})
	}
}

func TestReadPayloadDecode(t *testing.T) {
	ver := uint32(0xdeadbeef)
	req, err := NewRequest(1, OpRead, 2, 0x0402, &ReadPayload{AttributeIDs: []uint16{0, 0xFFFB}, DataVersion: &ver})
	require.NoError(t, err)

	data, err := EncodeRequest(req)
	require.NoError(t, err)
	decoded, err := DecodeRequest(data)
	require.NoError(t, err)

	var p ReadPayload
	require.NoError(t, decoded.DecodePayload(&p))
	assert.Equal(t, []uint16{0, 0xFFFB}, p.AttributeIDs)
	require.NotNil(t, p.DataVersion)
	assert.Equal(t, ver, *p.DataVersion)
}

func TestDecodePayloadAbsent(t *testing.T) {
	req := &Request{MessageID: 1, Operation: OpRead, EndpointID: 2, ClusterID: 0x0402}
	p := ReadPayload{AttributeIDs: []uint16{9}}
	require.NoError(t, req.DecodePayload(&p))
	assert.Equal(t, []uint16{9}, p.AttributeIDs, "absent payload must leave target untouched")
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{MessageID: 1, Operation: OpRead, EndpointID: 2, ClusterID: 0x0402}, false},
		{"notification id", Request{MessageID: 0, Operation: OpRead}, true},
		{"bad operation", Request{MessageID: 1, Operation: 9}, true},
		{"zero operation", Request{MessageID: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsUnsubscribe(t *testing.T) {
	unsub := Request{MessageID: 1, Operation: OpSubscribe}
	if !unsub.IsUnsubscribe() {
		t.Error("subscribe to endpoint 0 cluster 0 should be an unsubscribe")
	}
	sub := Request{MessageID: 1, Operation: OpSubscribe, EndpointID: 2, ClusterID: 0x0402}
	if sub.IsUnsubscribe() {
		t.Error("addressed subscribe should not be an unsubscribe")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	payload := &ReadResponsePayload{
		Attributes: map[uint16]AttributeData{
			0: {DataVersion: 5, Value: mustMarshal(t, int16(2497))},
			1: {DataVersion: 5, Value: NullValue()},
		},
	}
	resp, err := NewResponse(3, StatusSuccess, payload)
	require.NoError(t, err)

	data, err := EncodeResponse(resp)
	require.NoError(t, err)
	decoded, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.True(t, decoded.IsSuccess())

	var got ReadResponsePayload
	require.NoError(t, decoded.DecodePayload(&got))
	require.Len(t, got.Attributes, 2)

	var v int16
	require.NoError(t, got.Attributes[0].Decode(&v))
	assert.Equal(t, int16(2497), v)
	assert.False(t, got.Attributes[0].IsNull())
	assert.True(t, got.Attributes[1].IsNull())
	assert.Equal(t, uint32(5), got.Attributes[1].DataVersion)
}

func TestErrorResponseMessage(t *testing.T) {
	resp, err := NewResponse(4, StatusUnsupportedAttribute, &ErrorPayload{Message: "attribute 7 not supported"})
	require.NoError(t, err)

	data, err := EncodeResponse(resp)
	require.NoError(t, err)
	decoded, err := DecodeResponse(data)
	require.NoError(t, err)

	assert.Equal(t, StatusUnsupportedAttribute, decoded.Status)
	assert.Equal(t, "attribute 7 not supported", decoded.ErrorMessage())
}

func TestNotificationRoundTrip(t *testing.T) {
	notif := &Notification{
		SubscriptionID: 12,
		EndpointID:     3,
		ClusterID:      0x0405,
		Attributes: map[uint16]AttributeData{
			0: {DataVersion: 99, Value: mustMarshal(t, uint16(3935))},
		},
	}

	data, err := EncodeNotification(notif)
	require.NoError(t, err)

	decoded, err := DecodeNotification(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), decoded.SubscriptionID)
	assert.Equal(t, uint16(3), decoded.EndpointID)
	assert.Equal(t, uint32(0x0405), decoded.ClusterID)

	var v uint16
	require.NoError(t, decoded.Attributes[0].Decode(&v))
	assert.Equal(t, uint16(3935), v)
}

func TestDecodeNotificationRejectsResponse(t *testing.T) {
	data, err := EncodeResponse(&Response{MessageID: 5})
	require.NoError(t, err)

	_, err = DecodeNotification(data)
	assert.Error(t, err)
}

func TestNullEncoding(t *testing.T) {
	data, err := Marshal(AttributeData{DataVersion: 1, Value: NullValue()})
	require.NoError(t, err)

	// {1: 1, 2: null}
	want := []byte{0xa2, 0x01, 0x01, 0x02, 0xf6}
	if !bytes.Equal(data, want) {
		t.Errorf("null attribute encoding = %x, want %x", data, want)
	}
}

func TestPeekMessageType(t *testing.T) {
	req, err := NewRequest(1, OpRead, 2, 0x0402, nil)
	require.NoError(t, err)
	reqData, err := EncodeRequest(req)
	require.NoError(t, err)

	resp, err := NewResponse(1, StatusInvalidEndpoint, &ErrorPayload{Message: "x"})
	require.NoError(t, err)
	respData, err := EncodeResponse(resp)
	require.NoError(t, err)

	notifData, err := EncodeNotification(&Notification{SubscriptionID: 1, EndpointID: 2, ClusterID: 0x0402})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want MessageType
	}{
		{"request", reqData, MessageTypeRequest},
		{"response", respData, MessageTypeResponse},
		{"notification", notifData, MessageTypeNotification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeekMessageType(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = PeekMessageType([]byte{0xff})
	assert.Error(t, err)
}

func TestUnknownFieldsIgnored(t *testing.T) {
	// Request with an extra key 9 from a newer controller.
	data, err := Marshal(map[int]any{1: 7, 2: 1, 3: 2, 4: 0x0402, 9: "future"})
	require.NoError(t, err)

	req, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), req.MessageID)
	assert.Equal(t, OpRead, req.Operation)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
	assert.Equal(t, "UNSUPPORTED_ATTRIBUTE", StatusUnsupportedAttribute.String())
	assert.Equal(t, "UNKNOWN", Status(200).String())
	assert.Equal(t, "Invoke", OpInvoke.String())
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := Marshal(v)
	require.NoError(t, err)
	return data
}
