package clusters

import "github.com/mash-protocol/mash-sensor/pkg/model"

// RelativeHumidityMeasurementID is the RelativeHumidityMeasurement cluster ID.
const RelativeHumidityMeasurementID uint32 = 0x0405

// RelativeHumidityMeasurementCluster is the RelativeHumidityMeasurement descriptor.
var RelativeHumidityMeasurementCluster = &model.Cluster{
	ID:         RelativeHumidityMeasurementID,
	Name:       "RelativeHumidityMeasurement",
	FeatureMap: 0,
	Attributes: measurementAttributes,
}

// Humidity is a RelativeHumidityMeasurement cluster instance. Readings are
// percent relative humidity.
type Humidity struct {
	measurement
}

// NewHumidity creates an instance with no reading, versioned by dv.
func NewHumidity(dv *model.Dataver) *Humidity {
	return &Humidity{
		measurement: newMeasurement(RelativeHumidityMeasurementCluster, dv, func(v float32) any {
			return EncodeHumidity(v)
		}),
	}
}

var (
	_ model.Handler        = (*Humidity)(nil)
	_ model.ChangeNotifier = (*Humidity)(nil)
)
