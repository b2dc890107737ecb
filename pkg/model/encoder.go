package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// AttrDetails addresses the attribute being read.
type AttrDetails struct {
	EndpointID uint16
	ClusterID  uint32
	AttrID     uint16
}

// IsSystem reports whether the requested attribute is a system attribute.
func (d *AttrDetails) IsSystem() bool {
	return IsSystemAttribute(d.AttrID)
}

// String returns the attribute path as endpoint/cluster/attribute.
func (d *AttrDetails) String() string {
	return fmt.Sprintf("%d/0x%04X/0x%04X", d.EndpointID, d.ClusterID, d.AttrID)
}

// AttrEncoder collects the value of one attribute read.
//
// It is created per attribute by the protocol engine, optionally with the
// data version the requester already holds. A handler must call WithDataver
// before encoding anything.
type AttrEncoder struct {
	filter  *uint32
	version uint32
	value   cbor.RawMessage
	skipped bool
}

// NewAttrEncoder creates an encoder. A non-nil filter makes WithDataver
// short-circuit when the cluster version equals *filter.
func NewAttrEncoder(filter *uint32) *AttrEncoder {
	return &AttrEncoder{filter: filter}
}

// WithDataver records the cluster's current version and returns the writer
// for the value. It returns a nil writer when the requester's cached version
// is still current, in which case nothing must be encoded.
func (e *AttrEncoder) WithDataver(version uint32) (*AttrWriter, error) {
	e.version = version
	if e.filter != nil && *e.filter == version {
		e.skipped = true
		return nil, nil
	}
	return &AttrWriter{enc: e}, nil
}

// Version returns the data version passed to WithDataver.
func (e *AttrEncoder) Version() uint32 {
	return e.version
}

// Skipped reports whether the data version filter suppressed the value.
func (e *AttrEncoder) Skipped() bool {
	return e.skipped
}

// Value returns the encoded value. ok is false when nothing was written.
func (e *AttrEncoder) Value() (value cbor.RawMessage, ok bool) {
	return e.value, e.value != nil
}

// Data returns the encoded value together with its data version.
func (e *AttrEncoder) Data() (wire.AttributeData, bool) {
	if e.value == nil {
		return wire.AttributeData{}, false
	}
	return wire.AttributeData{DataVersion: e.version, Value: e.value}, true
}

// AttrWriter writes the single value of an attribute read.
type AttrWriter struct {
	enc *AttrEncoder
}

// Encode writes v as the attribute value.
func (w *AttrWriter) Encode(v any) error {
	if w.enc.value != nil {
		return ErrAlreadyEncoded
	}
	data, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode attribute value: %w", err)
	}
	w.enc.value = data
	return nil
}

// EncodeNull writes the null representation.
func (w *AttrWriter) EncodeNull() error {
	if w.enc.value != nil {
		return ErrAlreadyEncoded
	}
	w.enc.value = wire.NullValue()
	return nil
}
