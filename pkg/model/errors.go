package model

import "errors"

// Data model errors. The interaction layer maps them to wire status codes.
var (
	ErrUnsupportedEndpoint  = errors.New("unsupported endpoint")
	ErrUnsupportedCluster   = errors.New("unsupported cluster")
	ErrUnsupportedAttribute = errors.New("unsupported attribute")
	ErrUnsupportedCommand   = errors.New("unsupported command")
	ErrUnsupportedAccess    = errors.New("unsupported access")
	ErrInvalidCommand       = errors.New("invalid command fields")
	ErrDuplicateEndpoint    = errors.New("duplicate endpoint ID")
	ErrDuplicateCluster     = errors.New("duplicate cluster on endpoint")
	ErrAlreadyEncoded       = errors.New("attribute value already encoded")
)
