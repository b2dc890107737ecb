package clusters

import "github.com/mash-protocol/mash-sensor/pkg/model"

// TemperatureMeasurementID is the TemperatureMeasurement cluster ID.
const TemperatureMeasurementID uint32 = 0x0402

// TemperatureMeasurementCluster is the TemperatureMeasurement descriptor.
var TemperatureMeasurementCluster = &model.Cluster{
	ID:         TemperatureMeasurementID,
	Name:       "TemperatureMeasurement",
	FeatureMap: 0,
	Attributes: measurementAttributes,
}

// Temperature is a TemperatureMeasurement cluster instance. Readings are
// degrees Celsius.
type Temperature struct {
	measurement
}

// NewTemperature creates an instance with no reading, versioned by dv.
func NewTemperature(dv *model.Dataver) *Temperature {
	return &Temperature{
		measurement: newMeasurement(TemperatureMeasurementCluster, dv, func(v float32) any {
			return EncodeTemperature(v)
		}),
	}
}

var (
	_ model.Handler        = (*Temperature)(nil)
	_ model.ChangeNotifier = (*Temperature)(nil)
)
