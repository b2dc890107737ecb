package wire

// Operation represents a protocol operation carried by a request.
type Operation uint8

const (
	// OpRead gets current attribute values of one cluster.
	OpRead Operation = 1

	// OpWrite sets attribute values. No attribute of this device is
	// writable, so the device answers it with StatusReadOnly.
	OpWrite Operation = 2

	// OpSubscribe registers for change reports. Sent with endpointId=0 and
	// clusterId=0 it cancels an existing subscription instead.
	OpSubscribe Operation = 3

	// OpInvoke executes a cluster command.
	OpInvoke Operation = 4
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpSubscribe:
		return "Subscribe"
	case OpInvoke:
		return "Invoke"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpRead && o <= OpInvoke
}
