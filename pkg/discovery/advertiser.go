package discovery

import (
	"context"
	"time"
)

// Advertiser publishes a node on the local network.
type Advertiser interface {
	// Advertise starts advertising the node, replacing any earlier
	// registration.
	Advertise(ctx context.Context, info *NodeInfo) error

	// Update replaces the TXT records of the running registration.
	Update(info *NodeInfo) error

	// Stop withdraws the registration. Stopping twice is not an error.
	Stop() error
}

// Browser finds nodes on the local network.
type Browser interface {
	// Browse streams nodes until ctx is done. Addresses of one instance
	// seen on several interfaces are merged into one entry.
	Browse(ctx context.Context) (<-chan *NodeService, error)

	// FindBySerial returns the first node advertising serial.
	FindBySerial(ctx context.Context, serial string) (*NodeService, error)
}

// AdvertiserConfig configures the mDNS advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the DNS record TTL. Zero uses the zeroconf default.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}

// BrowserConfig configures the mDNS browser.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string

	// Timeout bounds FindBySerial when ctx has no deadline.
	Timeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: BrowseTimeout}
}
