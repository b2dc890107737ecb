// Package model implements the versioned attribute data model of the sensor.
//
// # Node Hierarchy
//
// The data model follows the Matter layout:
//
//	Node > Endpoint > Cluster > Attribute
//
// A Node is the device as seen by controllers. It contains Endpoints, each
// tagged with one or more device types. Endpoints host cluster instances,
// which expose attributes and accept commands.
//
//	Node
//	├── Endpoint 0 (root)
//	│   ├── BasicInformation
//	│   └── Descriptor
//	├── Endpoint 1 (On/Off Light)
//	│   ├── OnOff
//	│   └── Descriptor
//	├── Endpoint 2 (Temperature Sensor)
//	│   ├── TemperatureMeasurement
//	│   └── Descriptor
//	└── Endpoint 3 (Humidity Sensor)
//	    ├── RelativeHumidityMeasurement
//	    └── Descriptor
//
// # Descriptors
//
// A Cluster descriptor is static, process-wide data: the cluster ID, its
// feature map, the ordered list of attributes with their access and quality
// flags, and the accepted commands. Every instance of a cluster type refers
// to the same descriptor. The descriptor answers the system attributes
// (FeatureMap, AttributeList, AcceptedCommandList) on behalf of the instance.
//
// # Data Versions
//
// Each cluster instance owns a Dataver: a version counter plus a one-shot
// dirty flag, both updated with atomic operations so the polling goroutine
// can publish new values while the serving goroutine reads them without a
// lock. The version advances exactly once per visible change. The dirty flag
// is drained by ConsumeChange, which the subscription engine polls to decide
// whether to send reports.
//
// # Read Contract
//
// The protocol engine reads one attribute at a time through Handler.Read,
// passing an AttrEncoder. The handler first calls WithDataver with its
// current version. When the request carried a matching data version filter
// the encoder yields no writer and the handler returns without encoding
// anything.
package model
