package clusters

import (
	"fmt"
	"math"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

// MeasurementAttribute enumerates the non-system attributes of the
// measurement clusters.
type MeasurementAttribute uint16

const (
	AttrMeasuredValue    MeasurementAttribute = 0x0000
	AttrMinMeasuredValue MeasurementAttribute = 0x0001
	AttrMaxMeasuredValue MeasurementAttribute = 0x0002
)

// MeasurementAttributeFromID converts a raw attribute ID. IDs outside the
// declared set fail with model.ErrUnsupportedAttribute.
func MeasurementAttributeFromID(id uint16) (MeasurementAttribute, error) {
	switch a := MeasurementAttribute(id); a {
	case AttrMeasuredValue, AttrMinMeasuredValue, AttrMaxMeasuredValue:
		return a, nil
	default:
		return 0, fmt.Errorf("%w: 0x%04X", model.ErrUnsupportedAttribute, id)
	}
}

// String returns the attribute name.
func (a MeasurementAttribute) String() string {
	switch a {
	case AttrMeasuredValue:
		return "MeasuredValue"
	case AttrMinMeasuredValue:
		return "MinMeasuredValue"
	case AttrMaxMeasuredValue:
		return "MaxMeasuredValue"
	default:
		return "Unknown"
	}
}

// measurementAttributes is the attribute table shared by the measurement
// cluster descriptors.
var measurementAttributes = []model.Attribute{
	model.FeatureMapAttribute,
	model.AttributeListAttribute,
	{
		ID:      uint16(AttrMeasuredValue),
		Name:    "MeasuredValue",
		Access:  model.AccessRV,
		Quality: model.QualityNullable | model.QualityPersistent,
	},
	{ID: uint16(AttrMinMeasuredValue), Name: "MinMeasuredValue", Access: model.AccessRV, Quality: model.QualityNone},
	{ID: uint16(AttrMaxMeasuredValue), Name: "MaxMeasuredValue", Access: model.AccessRV, Quality: model.QualityNone},
}

// measurement is the read path common to the measurement clusters.
type measurement struct {
	desc    *model.Cluster
	dataver *model.Dataver
	value   *MeasuredValue
	scale   func(float32) any
}

func newMeasurement(desc *model.Cluster, dv *model.Dataver, scale func(float32) any) measurement {
	return measurement{desc: desc, dataver: dv, value: NewMeasuredValue(dv), scale: scale}
}

// Cluster returns the static descriptor.
func (m *measurement) Cluster() *model.Cluster { return m.desc }

// DataVersion returns the current data version.
func (m *measurement) DataVersion() uint32 { return m.dataver.Get() }

// Get returns the current reading in physical units.
func (m *measurement) Get() (float32, bool) { return m.value.Get() }

// Set stores a reading in physical units, or clears it when ok is false.
// It reports whether the stored value changed.
func (m *measurement) Set(v float32, ok bool) bool { return m.value.Set(v, ok) }

// ConsumeChange drains the change flag.
func (m *measurement) ConsumeChange() bool { return m.dataver.ConsumeChange() }

// Read encodes one attribute of the cluster.
func (m *measurement) Read(_ *model.Exchange, attr *model.AttrDetails, enc *model.AttrEncoder) error {
	w, err := enc.WithDataver(m.dataver.Get())
	if err != nil || w == nil {
		return err
	}

	if attr.IsSystem() {
		return m.desc.ReadSystem(attr.AttrID, w)
	}

	a, err := MeasurementAttributeFromID(attr.AttrID)
	if err != nil {
		return err
	}

	switch a {
	case AttrMeasuredValue:
		v, ok := m.value.Get()
		if !ok {
			return w.EncodeNull()
		}
		return w.Encode(m.scale(v))
	default:
		// Min and max bounds are not tracked.
		return w.EncodeNull()
	}
}

// EncodeTemperature converts degrees Celsius to the wire representation,
// hundredths of a degree. Values beyond the int16 range saturate.
func EncodeTemperature(celsius float32) int16 {
	v := math.Round(float64(celsius) * 100)
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// EncodeHumidity converts percent relative humidity to the wire
// representation, hundredths of a percent clamped to 0..10000.
func EncodeHumidity(percent float32) uint16 {
	v := math.Round(float64(percent) * 100)
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 10000:
		return 10000
	}
	return uint16(v)
}
