package discovery

import (
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the service type of operational nodes.
	ServiceType = "_mash._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the default protocol port.
	DefaultPort = 5540
)

// TXT record keys.
const (
	TXTKeyVendorProd  = "VP" // Vendor:Product ID
	TXTKeySerial      = "SN" // Serial number
	TXTKeyEndpoints   = "EP" // Endpoint count
	TXTKeyDeviceName  = "DN" // Device name (optional)
	TXTKeyFirmware    = "FW" // Software version string (optional)
	TXTKeyDeviceTypes = "DT" // Device types (optional)
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotAdvertising      = errors.New("not advertising")
	ErrBrowseTimeout       = errors.New("browse timeout")
)

// NodeInfo is what a node advertises about itself.
type NodeInfo struct {
	VendorID        uint16
	ProductID       uint16
	SerialNumber    string
	DeviceName      string
	SoftwareVersion string
	DeviceTypes     []uint16
	EndpointCount   uint8

	// Port is the protocol port. Zero means DefaultPort.
	Port uint16
}

// NodeService is a node found by browsing.
type NodeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Info         NodeInfo
}
