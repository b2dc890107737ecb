package subscription

import (
	"sort"
	"sync"
	"time"
)

// clusterKey indexes subscriptions by the cluster they watch.
type clusterKey struct {
	endpointID uint16
	clusterID  uint32
}

// Manager owns the subscriptions of every session.
type Manager struct {
	mu sync.RWMutex

	config        Config
	nextID        uint32
	subscriptions map[uint32]*Subscription
	clusterIndex  map[clusterKey][]*Subscription
}

// NewManager creates a manager with the default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a manager.
func NewManagerWithConfig(config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if config.MaxAttributesPerSub <= 0 {
		config.MaxAttributesPerSub = DefaultMaxAttributesPerSub
	}
	return &Manager{
		config:        config,
		subscriptions: make(map[uint32]*Subscription),
		clusterIndex:  make(map[clusterKey][]*Subscription),
	}
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.config
}

// Subscribe registers a subscription for sessionID. IDs start at 1 and are
// never reused while the manager lives.
func (m *Manager) Subscribe(sessionID string, endpointID uint16, clusterID uint32, attributeIDs []uint16, minInterval, maxInterval time.Duration) (*Subscription, error) {
	if maxInterval <= 0 || minInterval < 0 {
		return nil, ErrInvalidInterval
	}
	if minInterval > maxInterval {
		if !m.config.AutoCorrectIntervals {
			return nil, ErrInvalidInterval
		}
		minInterval, maxInterval = maxInterval, minInterval
	}
	if len(attributeIDs) > m.config.MaxAttributesPerSub {
		return nil, ErrInvalidAttributeID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.subscriptions) >= m.config.MaxSubscriptions {
		return nil, ErrResourceExhausted
	}

	m.nextID++
	sub := NewSubscription(m.nextID, sessionID, endpointID, clusterID, attributeIDs, minInterval, maxInterval)
	m.subscriptions[sub.ID] = sub
	key := clusterKey{endpointID: endpointID, clusterID: clusterID}
	m.clusterIndex[key] = append(m.clusterIndex[key], sub)
	return sub, nil
}

// Unsubscribe removes a subscription owned by sessionID. A subscription of
// another session is reported as not found.
func (m *Manager) Unsubscribe(sessionID string, subscriptionID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok || sub.SessionID != sessionID {
		return ErrSubscriptionNotFound
	}
	m.removeLocked(sub)
	return nil
}

// RemoveSession drops every subscription of sessionID and returns how many
// were removed.
func (m *Manager) RemoveSession(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, sub := range m.subscriptions {
		if sub.SessionID == sessionID {
			m.removeLocked(sub)
			n++
		}
	}
	return n
}

func (m *Manager) removeLocked(sub *Subscription) {
	sub.Deactivate()
	delete(m.subscriptions, sub.ID)

	key := clusterKey{endpointID: sub.EndpointID, clusterID: sub.ClusterID}
	subs := m.clusterIndex[key]
	for i, s := range subs {
		if s.ID == sub.ID {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(m.clusterIndex, key)
	} else {
		m.clusterIndex[key] = subs
	}
}

// MarkChanged flags every subscription on the cluster as pending and
// returns how many opened a new coalescing window.
func (m *Manager) MarkChanged(endpointID uint16, clusterID uint32, now time.Time) int {
	m.mu.RLock()
	subs := m.clusterIndex[clusterKey{endpointID: endpointID, clusterID: clusterID}]
	m.mu.RUnlock()

	n := 0
	for _, sub := range subs {
		if sub.MarkChanged(now) {
			n++
		}
	}
	return n
}

// All returns a snapshot of the subscriptions ordered by ID.
func (m *Manager) All() []*Subscription {
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}

// Count returns the number of subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// SessionCount returns the number of subscriptions of sessionID.
func (m *Manager) SessionCount(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sub := range m.subscriptions {
		if sub.SessionID == sessionID {
			n++
		}
	}
	return n
}

// Get returns a subscription by ID.
func (m *Manager) Get(subscriptionID uint32) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}
