package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

func raw(t *testing.T, v any) wire.AttributeData {
	t.Helper()
	data, err := wire.Marshal(v)
	require.NoError(t, err)
	return wire.AttributeData{DataVersion: 1, Value: data}
}

func TestHeartbeatModeString(t *testing.T) {
	assert.Equal(t, "EMPTY", HeartbeatEmpty.String())
	assert.Equal(t, "FULL", HeartbeatFull.String())
	assert.Equal(t, "UNKNOWN", HeartbeatMode(7).String())
}

func TestManagerSubscribeValidation(t *testing.T) {
	m := NewManager()

	_, err := m.Subscribe("s", 2, 0x0402, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = m.Subscribe("s", 2, 0x0402, nil, 2*time.Second, time.Second)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = m.Subscribe("s", 2, 0x0402, make([]uint16, DefaultMaxAttributesPerSub+1), 0, time.Second)
	assert.ErrorIs(t, err, ErrInvalidAttributeID)

	auto := NewManagerWithConfig(Config{AutoCorrectIntervals: true})
	sub, err := auto.Subscribe("s", 2, 0x0402, nil, 2*time.Second, time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, sub.MinInterval)
	assert.Equal(t, 2*time.Second, sub.MaxInterval)
}

func TestManagerLimitAndIDs(t *testing.T) {
	m := NewManagerWithConfig(Config{MaxSubscriptions: 2})

	a, err := m.Subscribe("s", 1, 6, nil, 0, time.Second)
	require.NoError(t, err)
	b, err := m.Subscribe("s", 2, 0x0402, nil, 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), a.ID)
	assert.Equal(t, uint32(2), b.ID)

	_, err = m.Subscribe("s", 3, 0x0405, nil, 0, time.Second)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	require.NoError(t, m.Unsubscribe("s", a.ID))
	c, err := m.Subscribe("s", 3, 0x0405, nil, 0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), c.ID, "IDs are not reused")
}

func TestManagerUnsubscribeOwnership(t *testing.T) {
	m := NewManager()
	sub, err := m.Subscribe("owner", 1, 6, nil, 0, time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Unsubscribe("other", sub.ID), ErrSubscriptionNotFound)
	assert.ErrorIs(t, m.Unsubscribe("owner", 99), ErrSubscriptionNotFound)
	require.NoError(t, m.Unsubscribe("owner", sub.ID))
	assert.False(t, sub.IsActive())
	assert.Zero(t, m.Count())
}

func TestManagerRemoveSession(t *testing.T) {
	m := NewManager()
	for range 3 {
		_, err := m.Subscribe("a", 1, 6, nil, 0, time.Second)
		require.NoError(t, err)
	}
	keep, err := m.Subscribe("b", 1, 6, nil, 0, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 3, m.RemoveSession("a"))
	assert.Equal(t, 0, m.SessionCount("a"))
	assert.Equal(t, 1, m.Count())

	now := time.Now()
	assert.Equal(t, 1, m.MarkChanged(1, 6, now))
	assert.True(t, keep.HasPending())
}

func TestSubscriptionCoalescing(t *testing.T) {
	t0 := time.Now()
	sub := NewSubscription(1, "s", 2, 0x0402, nil, 100*time.Millisecond, time.Minute)

	assert.True(t, sub.MarkChanged(t0))
	assert.False(t, sub.MarkChanged(t0.Add(10*time.Millisecond)), "same window")
	assert.False(t, sub.ReportDue(t0.Add(50*time.Millisecond)))
	assert.Equal(t, 50*time.Millisecond, sub.TimeUntilReport(t0.Add(50*time.Millisecond)))
	assert.True(t, sub.ReportDue(t0.Add(100*time.Millisecond)))
}

func TestSubscriptionTakeReport(t *testing.T) {
	t0 := time.Now()
	sub := NewSubscription(1, "s", 2, 0x0402, []uint16{0}, 0, time.Minute)
	sub.SetPrimingValues(map[uint16]wire.AttributeData{0: raw(t, int16(2497))}, t0)

	values := map[uint16]wire.AttributeData{
		0: raw(t, int16(2497)),
		1: wire.AttributeData{Value: wire.NullValue()},
	}

	sub.MarkChanged(t0)
	assert.Nil(t, sub.TakeReport(values, true, t0), "bounce-back and uncovered attributes dropped")
	assert.False(t, sub.HasPending())

	values[0] = raw(t, int16(2510))
	sub.MarkChanged(t0)
	got := sub.TakeReport(values, true, t0)
	require.Len(t, got, 1)
	assert.Equal(t, values[0], got[0])

	sub.MarkChanged(t0)
	assert.NotNil(t, sub.TakeReport(values, false, t0), "suppression disabled")
}

func TestSubscriptionHeartbeat(t *testing.T) {
	t0 := time.Now()
	sub := NewSubscription(1, "s", 1, 6, nil, 0, time.Second)
	sub.SetPrimingValues(nil, t0)

	assert.False(t, sub.NeedsHeartbeat(t0.Add(999*time.Millisecond)))
	assert.True(t, sub.NeedsHeartbeat(t0.Add(time.Second)))
	sub.RecordHeartbeat(nil, t0.Add(time.Second))
	assert.False(t, sub.NeedsHeartbeat(t0.Add(1500*time.Millisecond)))

	sub.Deactivate()
	assert.False(t, sub.NeedsHeartbeat(t0.Add(time.Hour)))
	assert.False(t, sub.MarkChanged(t0))
}

// fakeSource serves fixed values per cluster.
type fakeSource struct {
	mu     sync.Mutex
	values map[uint32]map[uint16]wire.AttributeData
	reads  int
	err    error
}

func (f *fakeSource) set(cluster uint32, id uint16, v wire.AttributeData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[uint32]map[uint16]wire.AttributeData{}
	}
	if f.values[cluster] == nil {
		f.values[cluster] = map[uint16]wire.AttributeData{}
	}
	f.values[cluster][id] = v
}

func (f *fakeSource) ReadAttributes(_ context.Context, _ string, _ uint16, clusterID uint32, _ []uint16) (map[uint16]wire.AttributeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	out := map[uint16]wire.AttributeData{}
	for k, v := range f.values[clusterID] {
		out[k] = v
	}
	return out, nil
}

type sent struct {
	session string
	n       *wire.Notification
}

type captureSender struct {
	mu   sync.Mutex
	sent []sent
	ch   chan struct{}
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan struct{}, 16)}
}

func (c *captureSender) SendNotification(sessionID string, n *wire.Notification) error {
	c.mu.Lock()
	c.sent = append(c.sent, sent{sessionID, n})
	c.mu.Unlock()
	select {
	case c.ch <- struct{}{}:
	default:
	}
	return nil
}

func (c *captureSender) all() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.sent...)
}

func TestReporterChangeToReport(t *testing.T) {
	ctx := context.Background()
	dv := model.NewDataver(10)
	m := NewManager()
	src := &fakeSource{}
	src.set(0x0402, 0, raw(t, int16(2497)))
	out := newCaptureSender()

	r := NewReporter(m, []model.NotifierEntry{{EndpointID: 2, ClusterID: 0x0402, Notifier: dv}}, src, out, ReporterConfig{})

	t0 := time.Now()
	sub, err := m.Subscribe("s1", 2, 0x0402, nil, 100*time.Millisecond, time.Minute)
	require.NoError(t, err)
	sub.SetPrimingValues(map[uint16]wire.AttributeData{0: raw(t, int16(2497))}, t0)

	r.Poll(ctx, t0)
	assert.Empty(t, out.all(), "no change, no report")
	assert.Zero(t, src.reads)

	src.set(0x0402, 0, raw(t, int16(2510)))
	dv.Changed()
	r.Poll(ctx, t0.Add(10*time.Millisecond))
	assert.Empty(t, out.all(), "inside coalescing window")
	assert.True(t, sub.HasPending())

	r.Poll(ctx, t0.Add(110*time.Millisecond))
	got := out.all()
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].session)
	assert.Equal(t, sub.ID, got[0].n.SubscriptionID)
	assert.Equal(t, uint16(2), got[0].n.EndpointID)
	assert.Equal(t, uint32(0x0402), got[0].n.ClusterID)
	assert.Contains(t, got[0].n.Attributes, uint16(0))

	assert.False(t, dv.ConsumeChange(), "reporter drained the flag")
}

func TestReporterOnlyAffectedCluster(t *testing.T) {
	ctx := context.Background()
	temp, hum := model.NewDataver(1), model.NewDataver(1)
	m := NewManager()
	src := &fakeSource{}
	src.set(0x0402, 0, raw(t, int16(1)))
	src.set(0x0405, 0, raw(t, uint16(1)))
	out := newCaptureSender()
	r := NewReporter(m, []model.NotifierEntry{
		{EndpointID: 2, ClusterID: 0x0402, Notifier: temp},
		{EndpointID: 3, ClusterID: 0x0405, Notifier: hum},
	}, src, out, ReporterConfig{})

	t0 := time.Now()
	ts, _ := m.Subscribe("s", 2, 0x0402, nil, 0, time.Minute)
	hs, _ := m.Subscribe("s", 3, 0x0405, nil, 0, time.Minute)
	ts.SetPrimingValues(nil, t0)
	hs.SetPrimingValues(nil, t0)

	hum.Changed()
	r.Poll(ctx, t0)

	got := out.all()
	require.Len(t, got, 1)
	assert.Equal(t, hs.ID, got[0].n.SubscriptionID)
}

func TestReporterHeartbeat(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		mode  HeartbeatMode
		attrs int
	}{
		{"full", HeartbeatFull, 1},
		{"empty", HeartbeatEmpty, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.HeartbeatMode = tt.mode
			m := NewManagerWithConfig(cfg)
			src := &fakeSource{}
			src.set(6, 0, raw(t, true))
			out := newCaptureSender()
			r := NewReporter(m, nil, src, out, ReporterConfig{})

			t0 := time.Now()
			sub, err := m.Subscribe("s", 1, 6, nil, 0, time.Second)
			require.NoError(t, err)
			sub.SetPrimingValues(nil, t0)

			r.Poll(ctx, t0.Add(500*time.Millisecond))
			assert.Empty(t, out.all())

			r.Poll(ctx, t0.Add(time.Second))
			got := out.all()
			require.Len(t, got, 1)
			assert.Len(t, got[0].n.Attributes, tt.attrs)

			r.Poll(ctx, t0.Add(1500*time.Millisecond))
			assert.Len(t, out.all(), 1, "heartbeat timer restarted")
		})
	}
}

func TestReporterReadErrorKeepsGoing(t *testing.T) {
	ctx := context.Background()
	dv := model.NewDataver(1)
	m := NewManager()
	src := &fakeSource{err: errors.New("boom")}
	out := newCaptureSender()
	r := NewReporter(m, []model.NotifierEntry{{EndpointID: 1, ClusterID: 6, Notifier: dv}}, src, out, ReporterConfig{})

	t0 := time.Now()
	sub, _ := m.Subscribe("s", 1, 6, nil, 0, time.Minute)
	sub.SetPrimingValues(nil, t0)
	dv.Changed()

	r.Poll(ctx, t0)
	assert.Empty(t, out.all())
	assert.True(t, sub.HasPending(), "retried on the next poll")
}

func TestReporterRunWakesOnNotify(t *testing.T) {
	dv := model.NewDataver(1)
	m := NewManager()
	src := &fakeSource{}
	src.set(6, 0, raw(t, true))
	out := newCaptureSender()
	r := NewReporter(m, []model.NotifierEntry{{EndpointID: 1, ClusterID: 6, Notifier: dv}}, src, out, ReporterConfig{Tick: time.Hour})

	sub, err := m.Subscribe("s", 1, 6, nil, 0, time.Hour)
	require.NoError(t, err)
	sub.SetPrimingValues(nil, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	dv.Changed()
	r.NotifyChanged()
	r.NotifyChanged()

	select {
	case <-out.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("report not sent after wake-up")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestSenderFunc(t *testing.T) {
	var got uint32
	var s Sender = SenderFunc(func(_ string, n *wire.Notification) error {
		got = n.SubscriptionID
		return nil
	})
	require.NoError(t, s.SendNotification("x", &wire.Notification{SubscriptionID: 7}))
	assert.Equal(t, uint32(7), got)
}
