package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-sensor/pkg/clusters"
	"github.com/mash-protocol/mash-sensor/pkg/interaction"
	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/subscription"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

type message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
}

func (f *fakePublisher) Publish(topic string, payload []byte, retained bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, message{Topic: topic, Payload: payload, Retained: retained})
}

func (f *fakePublisher) last(t *testing.T, topic string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].Topic == topic {
			var doc map[string]any
			require.NoError(t, json.Unmarshal(f.msgs[i].Payload, &doc))
			return doc
		}
	}
	t.Fatalf("no message on %s", topic)
	return nil
}

func (f *fakePublisher) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.Topic
	}
	return out
}

type mirrorRig struct {
	device *clusters.Device
	subs   *subscription.Manager
	server *interaction.Server
	pub    *fakePublisher
	mirror *Mirror
}

func newMirrorRig(t *testing.T) *mirrorRig {
	t.Helper()
	device, err := clusters.NewDevice(clusters.DeviceOptions{
		BasicInfo:  clusters.DefaultBasicInfoConfig(),
		NewDataver: func() *model.Dataver { return model.NewDataver(1) },
	})
	require.NoError(t, err)

	subs := subscription.NewManager()
	pub := &fakePublisher{}
	return &mirrorRig{
		device: device,
		subs:   subs,
		server: interaction.NewServer(device.Node, subs, interaction.Config{}),
		pub:    pub,
		mirror: NewMirror(pub, MirrorConfig{Node: "AABB:ccdd"}, nil),
	}
}

func TestMirrorTopics(t *testing.T) {
	m := NewMirror(&fakePublisher{}, MirrorConfig{TopicPrefix: "home", Node: "Kitchen Sensor"}, nil)

	assert.Equal(t, "home/kitchen_sensor", m.StateTopic())
	assert.Equal(t, "home/kitchen_sensor/availability", m.AvailabilityTopic())

	m = NewMirror(&fakePublisher{}, MirrorConfig{}, nil)
	assert.Equal(t, "mash/sensor", m.StateTopic())
}

func TestMirrorAttachPublishesPriming(t *testing.T) {
	r := newMirrorRig(t)
	r.device.Temperature.Set(24.97, true)
	r.device.OnOff.Set(true)

	require.NoError(t, r.mirror.Attach(t.Context(), r.subs, r.server))

	assert.Equal(t, len(Properties), r.subs.SessionCount(SessionID))
	doc := r.pub.last(t, "mash/aabb_ccdd")
	assert.InDelta(t, 24.97, doc["temperature"], 1e-9)
	assert.Nil(t, doc["humidity"])
	assert.Contains(t, doc, "humidity")
	assert.Equal(t, "ON", doc["state"])

	r.mirror.Detach(r.subs)
	assert.Zero(t, r.subs.SessionCount(SessionID))
}

func TestMirrorReportsThroughReporter(t *testing.T) {
	r := newMirrorRig(t)
	require.NoError(t, r.mirror.Attach(t.Context(), r.subs, r.server))

	reporter := subscription.NewReporter(r.subs, r.device.Node.Notifiers(), r.server, r.mirror, subscription.ReporterConfig{})

	// Drain the flags armed while building the device.
	t0 := time.Now()
	reporter.Poll(t.Context(), t0)

	r.device.Humidity.Set(39.35, true)
	r.device.OnOff.Toggle()
	reporter.Poll(t.Context(), t0.Add(10*time.Millisecond))
	reporter.Poll(t.Context(), t0.Add(DefaultMinInterval+time.Second))

	doc := r.pub.last(t, r.mirror.StateTopic())
	assert.InDelta(t, 39.35, doc["humidity"], 1e-9)
	assert.Equal(t, "ON", doc["state"])
	assert.Equal(t, map[string]any{"temperature": nil, "humidity": 39.35, "state": "ON"}, r.mirror.State())
}

func TestMirrorSendNotification(t *testing.T) {
	r := newMirrorRig(t)

	off, err := wire.Marshal(false)
	require.NoError(t, err)

	n := &wire.Notification{
		EndpointID: clusters.LightEndpointID,
		ClusterID:  clusters.OnOffID,
		Attributes: map[uint16]wire.AttributeData{clusters.AttrOnOff: {DataVersion: 3, Value: off}},
	}
	require.NoError(t, r.mirror.SendNotification(SessionID, n))
	assert.Equal(t, "OFF", r.pub.last(t, r.mirror.StateTopic())["state"])

	t.Run("empty heartbeat publishes nothing", func(t *testing.T) {
		before := len(r.pub.topics())
		hb := &wire.Notification{EndpointID: clusters.LightEndpointID, ClusterID: clusters.OnOffID}
		require.NoError(t, r.mirror.SendNotification(SessionID, hb))
		assert.Len(t, r.pub.topics(), before)
	})

	t.Run("foreign session", func(t *testing.T) {
		assert.ErrorIs(t, r.mirror.SendNotification("other", n), ErrNotMirrored)
	})

	t.Run("unknown cluster", func(t *testing.T) {
		bad := &wire.Notification{EndpointID: 0, ClusterID: clusters.BasicInformationID}
		assert.ErrorIs(t, r.mirror.SendNotification(SessionID, bad), ErrNotMirrored)
	})

	t.Run("undecodable value is ignored", func(t *testing.T) {
		text, err := wire.Marshal("on")
		require.NoError(t, err)
		bad := &wire.Notification{
			EndpointID: clusters.LightEndpointID,
			ClusterID:  clusters.OnOffID,
			Attributes: map[uint16]wire.AttributeData{clusters.AttrOnOff: {Value: text}},
		}
		require.NoError(t, r.mirror.SendNotification(SessionID, bad))
		assert.Equal(t, "OFF", r.mirror.State()["state"])
	})
}

func TestMirrorAvailability(t *testing.T) {
	r := newMirrorRig(t)
	r.mirror.PublishAvailability(Online)
	r.mirror.PublishAvailability(Offline)

	r.pub.mu.Lock()
	defer r.pub.mu.Unlock()
	require.Len(t, r.pub.msgs, 2)
	assert.Equal(t, "mash/aabb_ccdd/availability", r.pub.msgs[1].Topic)
	assert.Equal(t, []byte(Offline), r.pub.msgs[1].Payload)
	assert.True(t, r.pub.msgs[1].Retained)
}

func TestMirrorAttachFailsWhenExhausted(t *testing.T) {
	r := newMirrorRig(t)
	cfg := subscription.DefaultConfig()
	cfg.MaxSubscriptions = 1
	r.subs = subscription.NewManagerWithConfig(cfg)

	err := r.mirror.Attach(t.Context(), r.subs, r.server)
	assert.ErrorIs(t, err, subscription.ErrResourceExhausted)
	assert.Zero(t, r.subs.SessionCount(SessionID))
}

func TestPublishDiscovery(t *testing.T) {
	r := newMirrorRig(t)
	r.mirror.PublishDiscovery("", clusters.DefaultBasicInfoConfig())

	assert.Equal(t, []string{
		"homeassistant/sensor/mash_aabbccdd/temperature/config",
		"homeassistant/sensor/mash_aabbccdd/humidity/config",
		"homeassistant/binary_sensor/mash_aabbccdd/light/config",
	}, r.pub.topics())

	doc := r.pub.last(t, "homeassistant/sensor/mash_aabbccdd/temperature/config")
	assert.Equal(t, "MyLight Temperature", doc["name"])
	assert.Equal(t, "mash_aabbccdd_temperature", doc["unique_id"])
	assert.Equal(t, "°C", doc["unit_of_measurement"])
	assert.Equal(t, r.mirror.StateTopic(), doc["state_topic"])
	assert.Equal(t, r.mirror.AvailabilityTopic(), doc["availability_topic"])
	assert.Equal(t, "{{ value_json.temperature }}", doc["value_template"])

	light := r.pub.last(t, "homeassistant/binary_sensor/mash_aabbccdd/light/config")
	assert.Equal(t, "ON", light["payload_on"])
}

func TestMirrorRepublish(t *testing.T) {
	r := newMirrorRig(t)
	r.device.OnOff.Set(true)
	require.NoError(t, r.mirror.Attach(t.Context(), r.subs, r.server))

	r.pub.mu.Lock()
	r.pub.msgs = nil
	r.pub.mu.Unlock()

	r.mirror.Republish()
	assert.Equal(t, []string{"mash/aabb_ccdd/availability", "mash/aabb_ccdd"}, r.pub.topics())
	assert.Equal(t, "ON", r.pub.last(t, "mash/aabb_ccdd")["state"])
}

func TestClientPublishBeforeConnect(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://127.0.0.1:1"}, nil)
	c.Publish("mash/x", []byte("{}"), true)
	c.Close()
}
