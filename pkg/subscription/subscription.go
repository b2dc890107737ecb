package subscription

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// Subscription errors.
var (
	ErrInvalidInterval      = errors.New("invalid subscription interval")
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidAttributeID   = errors.New("invalid attribute ID")
)

// Default subscription limits.
const (
	DefaultMinInterval         = 1 * time.Second
	DefaultMaxInterval         = 60 * time.Second
	DefaultMaxSubscriptions    = 32
	DefaultMaxAttributesPerSub = 64
)

// HeartbeatMode specifies what a heartbeat report carries.
type HeartbeatMode uint8

const (
	// HeartbeatEmpty sends only the subscription address.
	HeartbeatEmpty HeartbeatMode = iota

	// HeartbeatFull sends every subscribed attribute.
	HeartbeatFull
)

// String returns the heartbeat mode name.
func (m HeartbeatMode) String() string {
	switch m {
	case HeartbeatEmpty:
		return "EMPTY"
	case HeartbeatFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Config holds manager limits and report behaviour.
type Config struct {
	MaxSubscriptions    int
	MaxAttributesPerSub int
	HeartbeatMode       HeartbeatMode
	SuppressBounceBack  bool

	// AutoCorrectIntervals swaps min and max when min > max instead of
	// rejecting the request.
	AutoCorrectIntervals bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions:    DefaultMaxSubscriptions,
		MaxAttributesPerSub: DefaultMaxAttributesPerSub,
		HeartbeatMode:       HeartbeatFull,
		SuppressBounceBack:  true,
	}
}

// Subscription is one controller's interest in a cluster.
type Subscription struct {
	mu sync.Mutex

	ID           uint32
	SessionID    string
	EndpointID   uint16
	ClusterID    uint32
	AttributeIDs []uint16
	MinInterval  time.Duration
	MaxInterval  time.Duration

	lastNotified      time.Time
	lastValues        map[uint16][]byte
	changeWindowStart time.Time
	hasChanges        bool
	active            bool
}

// NewSubscription creates an active subscription.
func NewSubscription(id uint32, sessionID string, endpointID uint16, clusterID uint32, attributeIDs []uint16, minInterval, maxInterval time.Duration) *Subscription {
	return &Subscription{
		ID:           id,
		SessionID:    sessionID,
		EndpointID:   endpointID,
		ClusterID:    clusterID,
		AttributeIDs: attributeIDs,
		MinInterval:  minInterval,
		MaxInterval:  maxInterval,
		lastNotified: time.Now(),
		lastValues:   make(map[uint16][]byte),
		active:       true,
	}
}

// Covers reports whether attrID is part of the subscription.
func (s *Subscription) Covers(attrID uint16) bool {
	return len(s.AttributeIDs) == 0 || slices.Contains(s.AttributeIDs, attrID)
}

// IsActive reports whether the subscription is still registered.
func (s *Subscription) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Deactivate stops all further reports.
func (s *Subscription) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// MarkChanged records that the cluster changed at now. It returns true when
// this opens a new coalescing window.
func (s *Subscription) MarkChanged(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.hasChanges {
		return false
	}
	s.hasChanges = true
	s.changeWindowStart = now
	return true
}

// HasPending reports whether changes wait for a report.
func (s *Subscription) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasChanges
}

// ReportDue reports whether pending changes may be sent at now.
func (s *Subscription) ReportDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.hasChanges && now.Sub(s.changeWindowStart) >= s.MinInterval
}

// NeedsHeartbeat reports whether maxInterval elapsed without a report.
func (s *Subscription) NeedsHeartbeat(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.MaxInterval > 0 && now.Sub(s.lastNotified) >= s.MaxInterval
}

// SetPrimingValues records the values sent in the subscribe response.
func (s *Subscription) SetPrimingValues(values map[uint16]wire.AttributeData, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range values {
		s.lastValues[id] = v.Value
	}
	s.lastNotified = now
}

// TakeReport closes the coalescing window and returns the attributes to send
// out of the freshly read values. With suppress set, attributes whose
// encoding equals the last reported one are dropped. The result is nil when
// nothing is left.
func (s *Subscription) TakeReport(values map[uint16]wire.AttributeData, suppress bool, now time.Time) map[uint16]wire.AttributeData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasChanges = false
	if !s.active {
		return nil
	}

	out := make(map[uint16]wire.AttributeData)
	for id, v := range values {
		if !s.Covers(id) {
			continue
		}
		if last, ok := s.lastValues[id]; suppress && ok && bytes.Equal(last, v.Value) {
			continue
		}
		out[id] = v
		s.lastValues[id] = v.Value
	}
	if len(out) == 0 {
		return nil
	}
	s.lastNotified = now
	return out
}

// RecordHeartbeat records a heartbeat sent at now. values, when not nil,
// become the last reported values.
func (s *Subscription) RecordHeartbeat(values map[uint16]wire.AttributeData, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range values {
		s.lastValues[id] = v.Value
	}
	s.lastNotified = now
}

// TimeUntilReport returns how long until the pending window expires, or 0
// when nothing is pending or the window already expired.
func (s *Subscription) TimeUntilReport(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasChanges {
		return 0
	}
	if left := s.MinInterval - now.Sub(s.changeWindowStart); left > 0 {
		return left
	}
	return 0
}
