// Package wire defines the CBOR wire format of the sensor protocol.
//
// Messages use CBOR (RFC 8949) with integer map keys and are carried as
// length-prefixed frames by the transport package.
//
// # Message Types
//
// There are three message types:
//   - Request: controller to device (Read, Write, Subscribe, Invoke)
//   - Response: device to controller (success or error status)
//   - Notification: device to controller (subscription reports, messageId 0)
//
// # Addressing
//
// Requests address a cluster instance by (EndpointID, ClusterID). Read and
// Subscribe payloads narrow that to a set of attribute IDs; an empty set
// means every attribute the cluster declares.
//
// # Attribute Values
//
// Every reported attribute carries the data version of its cluster at the
// time it was encoded, and its value as raw CBOR:
//
//	{1: dataVersion, 2: value}
//
// A value that is not available is encoded as CBOR null (0xF6). Absence of
// an attribute key means it was not reported at all, for example because the
// request's data version filter already matched.
//
// # Value Scaling
//
// Measured values are sent as scaled integers:
//   - Temperature: int16, hundredths of a degree Celsius
//   - Relative humidity: uint16, hundredths of a percent, 0..10000
package wire
