package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/clusters"
	"github.com/mash-protocol/mash-sensor/pkg/subscription"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// SessionID owns the subscriptions of the mirror.
const SessionID = "mqtt-mirror"

// Default report intervals of the mirror subscriptions.
const (
	DefaultMinInterval = 1 * time.Second
	DefaultMaxInterval = 5 * time.Minute
)

// Availability payloads.
const (
	Online  = "online"
	Offline = "offline"
)

// ErrNotMirrored is returned for reports of clusters the mirror does not hold.
var ErrNotMirrored = errors.New("cluster not mirrored")

// Publisher is the subset of an MQTT client the mirror needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool)
}

// Property maps one cluster to a key of the state document.
type Property struct {
	Name       string
	EndpointID uint16
	ClusterID  uint32
	AttrID     uint16
	decode     func(wire.AttributeData) (any, error)
}

// Properties lists the mirrored clusters.
var Properties = []Property{
	{Name: "temperature", EndpointID: clusters.TemperatureEndpointID, ClusterID: clusters.TemperatureMeasurementID,
		AttrID: uint16(clusters.AttrMeasuredValue), decode: decodeTemperature},
	{Name: "humidity", EndpointID: clusters.HumidityEndpointID, ClusterID: clusters.RelativeHumidityMeasurementID,
		AttrID: uint16(clusters.AttrMeasuredValue), decode: decodeHumidity},
	{Name: "state", EndpointID: clusters.LightEndpointID, ClusterID: clusters.OnOffID,
		AttrID: clusters.AttrOnOff, decode: decodeOnOff},
}

// MirrorConfig configures a Mirror.
type MirrorConfig struct {
	// TopicPrefix is the first topic level (default "mash").
	TopicPrefix string

	// Node is the topic name of this node, usually the serial number.
	Node string

	MinInterval time.Duration
	MaxInterval time.Duration
}

// Mirror turns subscription reports into MQTT state publications.
type Mirror struct {
	pub    Publisher
	prefix string
	node   string
	min    time.Duration
	max    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	state map[string]any
}

// NewMirror creates a mirror publishing through pub.
func NewMirror(pub Publisher, cfg MirrorConfig, logger *slog.Logger) *Mirror {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "mash"
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		pub:    pub,
		prefix: cfg.TopicPrefix,
		node:   topicName(cfg.Node),
		min:    cfg.MinInterval,
		max:    cfg.MaxInterval,
		logger: logger.With("component", "mqtt"),
		state:  make(map[string]any),
	}
}

// StateTopic is the topic of the state document.
func (m *Mirror) StateTopic() string { return m.prefix + "/" + m.node }

// AvailabilityTopic is the topic of the online/offline flag.
func (m *Mirror) AvailabilityTopic() string { return m.StateTopic() + "/availability" }

// Attach subscribes the mirror to every mirrored cluster and publishes the
// priming values.
func (m *Mirror) Attach(ctx context.Context, subs *subscription.Manager, src subscription.AttributeSource) error {
	now := time.Now()
	for _, p := range Properties {
		attrs := []uint16{p.AttrID}
		sub, err := subs.Subscribe(SessionID, p.EndpointID, p.ClusterID, attrs, m.min, m.max)
		if err != nil {
			subs.RemoveSession(SessionID)
			return fmt.Errorf("subscribe %s: %w", p.Name, err)
		}
		values, err := src.ReadAttributes(ctx, SessionID, p.EndpointID, p.ClusterID, attrs)
		if err != nil {
			subs.RemoveSession(SessionID)
			return fmt.Errorf("prime %s: %w", p.Name, err)
		}
		sub.SetPrimingValues(values, now)
		m.update(p, values)
	}
	m.publishState()
	return nil
}

// Detach drops the subscriptions of the mirror.
func (m *Mirror) Detach(subs *subscription.Manager) {
	subs.RemoveSession(SessionID)
}

// SendNotification implements subscription.Sender for SessionID.
func (m *Mirror) SendNotification(sessionID string, n *wire.Notification) error {
	if sessionID != SessionID {
		return fmt.Errorf("%w: session %s", ErrNotMirrored, sessionID)
	}
	p, ok := lookup(n.EndpointID, n.ClusterID)
	if !ok {
		return fmt.Errorf("%w: endpoint %d cluster 0x%04X", ErrNotMirrored, n.EndpointID, n.ClusterID)
	}
	// Empty heartbeat.
	if len(n.Attributes) == 0 {
		return nil
	}
	m.update(p, n.Attributes)
	m.publishState()
	return nil
}

// PublishAvailability publishes the retained availability flag.
func (m *Mirror) PublishAvailability(state string) {
	m.pub.Publish(m.AvailabilityTopic(), []byte(state), true)
}

// Republish publishes availability and the last known state, as needed
// after a broker reconnect.
func (m *Mirror) Republish() {
	m.PublishAvailability(Online)
	m.publishState()
}

// State returns a copy of the current state document.
func (m *Mirror) State() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]any, len(m.state))
	for k, v := range m.state {
		out[k] = v
	}
	return out
}

func (m *Mirror) update(p Property, attrs map[uint16]wire.AttributeData) {
	data, ok := attrs[p.AttrID]
	if !ok {
		return
	}
	value, err := p.decode(data)
	if err != nil {
		m.logger.Warn("undecodable report", "property", p.Name, "err", err)
		return
	}

	m.mu.Lock()
	m.state[p.Name] = value
	m.mu.Unlock()
}

func (m *Mirror) publishState() {
	m.mu.Lock()
	payload := mustJSON(m.state)
	m.mu.Unlock()

	m.pub.Publish(m.StateTopic(), payload, true)
}

func lookup(endpointID uint16, clusterID uint32) (Property, bool) {
	for _, p := range Properties {
		if p.EndpointID == endpointID && p.ClusterID == clusterID {
			return p, true
		}
	}
	return Property{}, false
}

func decodeTemperature(d wire.AttributeData) (any, error) {
	if d.IsNull() {
		return nil, nil
	}
	var raw int16
	if err := d.Decode(&raw); err != nil {
		return nil, err
	}
	return float64(raw) / 100, nil
}

func decodeHumidity(d wire.AttributeData) (any, error) {
	if d.IsNull() {
		return nil, nil
	}
	var raw uint16
	if err := d.Decode(&raw); err != nil {
		return nil, err
	}
	return float64(raw) / 100, nil
}

// decodeOnOff maps the light state to "ON"/"OFF" for Home Assistant.
func decodeOnOff(d wire.AttributeData) (any, error) {
	var on bool
	if err := d.Decode(&on); err != nil {
		return nil, err
	}
	if on {
		return "ON", nil
	}
	return "OFF", nil
}

// topicName lowercases name and replaces characters unsafe in topics.
func topicName(name string) string {
	if name == "" {
		return "sensor"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, strings.ToLower(name))
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

var _ subscription.Sender = (*Mirror)(nil)
