// Package mqtt mirrors the node state to an MQTT broker.
//
// The mirror is a read-only subscriber of the attribute model: it holds one
// subscription per mirrored cluster under the session ID SessionID and
// publishes a retained JSON state document whenever a report arrives:
//
//	<prefix>/<node>               {"temperature":24.97,"humidity":39.35,"state":"ON"}
//	<prefix>/<node>/availability  online | offline (last will)
//
// Home Assistant discovery documents are published on connect.
package mqtt
