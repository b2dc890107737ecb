package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusInvalidEndpoint indicates the endpoint doesn't exist.
	StatusInvalidEndpoint Status = 1

	// StatusInvalidCluster indicates the cluster doesn't exist on the endpoint.
	StatusInvalidCluster Status = 2

	// StatusUnsupportedAttribute indicates the cluster doesn't declare the attribute.
	StatusUnsupportedAttribute Status = 3

	// StatusInvalidCommand indicates the command doesn't exist.
	StatusInvalidCommand Status = 4

	// StatusInvalidParameter indicates a malformed payload or parameter.
	StatusInvalidParameter Status = 5

	// StatusReadOnly indicates an attempt to write to a read-only attribute.
	StatusReadOnly Status = 6

	// StatusBusy indicates the device is busy; try again later.
	StatusBusy Status = 9

	// StatusUnsupported indicates the operation is not supported.
	StatusUnsupported Status = 10

	// StatusResourceExhausted indicates a subscription limit was reached.
	StatusResourceExhausted Status = 11

	// StatusFailure indicates an internal error while serving the request.
	StatusFailure Status = 12
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidEndpoint:
		return "INVALID_ENDPOINT"
	case StatusInvalidCluster:
		return "INVALID_CLUSTER"
	case StatusUnsupportedAttribute:
		return "UNSUPPORTED_ATTRIBUTE"
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusBusy:
		return "BUSY"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
