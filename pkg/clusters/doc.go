// Package clusters implements the cluster instances served by the sensor node.
//
// # Measurement Clusters
//
// TemperatureMeasurement (0x0402) and RelativeHumidityMeasurement (0x0405)
// share one attribute layout:
//
//	0x0000 MeasuredValue     RV  nullable, persistent
//	0x0001 MinMeasuredValue  RV  always null
//	0x0002 MaxMeasuredValue  RV  always null
//	0xFFFB AttributeList     RV
//	0xFFFC FeatureMap        RV  0
//
// The current reading is held in a MeasuredValue cell. The polling goroutine
// is its only writer; reads from the serving side never block it. Readings are
// kept in physical units and scaled on the way out:
//
//	temperature: int16(round(°C * 100))
//	humidity:    uint16(clamp(round(%RH * 100), 0, 10000))
//
// A missing reading is reported as null, never as 0. No calibration bounds
// are tracked, so MinMeasuredValue and MaxMeasuredValue are null as well.
//
// # OnOff
//
// OnOff (0x0006) exposes the light state and accepts the Off, On and Toggle
// commands. The button handler in the poller and remote Invoke requests both
// go through the same compare-and-swap update.
//
// # Descriptor and BasicInformation
//
// Descriptor (0x001D) is present on every endpoint and lists device types,
// server clusters and, on the root endpoint, the other endpoints.
// BasicInformation (0x0028) on the root endpoint reports vendor, product and
// version identity. Both are fixed for the lifetime of the node.
package clusters
