package model

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

var testCluster = &Cluster{
	ID:         0x0402,
	Name:       "Test",
	FeatureMap: 0x5,
	Attributes: []Attribute{
		FeatureMapAttribute,
		AttributeListAttribute,
		{ID: 0, Name: "Value", Access: AccessRV, Quality: QualityNullable | QualityPersistent},
		{ID: 1, Name: "Min", Access: AccessRV},
	},
}

var testCommandCluster = &Cluster{
	ID: 0x0006,
	Attributes: []Attribute{
		FeatureMapAttribute,
		AttributeListAttribute,
		AcceptedCommandListAttribute,
	},
	Commands: []Command{{ID: 0, Name: "Off"}, {ID: 1, Name: "On"}, {ID: 2, Name: "Toggle"}},
}

func TestAccessFlags(t *testing.T) {
	tests := []struct {
		access                    Access
		canRead, canWrite, canSub bool
		str                       string
	}{
		{AccessRead, true, false, false, "R"},
		{AccessRV, true, false, true, "RS"},
		{AccessRead | AccessWrite, true, true, false, "RW"},
		{0, false, false, false, "-"},
	}

	for _, tt := range tests {
		if tt.access.CanRead() != tt.canRead {
			t.Errorf("Access(%d).CanRead() = %v, want %v", tt.access, tt.access.CanRead(), tt.canRead)
		}
		if tt.access.CanWrite() != tt.canWrite {
			t.Errorf("Access(%d).CanWrite() = %v, want %v", tt.access, tt.access.CanWrite(), tt.canWrite)
		}
		if tt.access.CanSubscribe() != tt.canSub {
			t.Errorf("Access(%d).CanSubscribe() = %v, want %v", tt.access, tt.access.CanSubscribe(), tt.canSub)
		}
		if tt.access.String() != tt.str {
			t.Errorf("Access(%d).String() = %q, want %q", tt.access, tt.access.String(), tt.str)
		}
	}
}

func TestQualityFlags(t *testing.T) {
	q := QualityNullable | QualityPersistent
	assert.True(t, q.Has(QualityNullable))
	assert.True(t, q.Has(QualityPersistent))
	assert.False(t, q.Has(QualityFixed))
	assert.Equal(t, "XN", q.String())
	assert.Equal(t, "-", QualityNone.String())
}

func TestIsSystemAttribute(t *testing.T) {
	assert.True(t, IsSystemAttribute(AttrIDFeatureMap))
	assert.True(t, IsSystemAttribute(AttrIDAttributeList))
	assert.True(t, IsSystemAttribute(0xFFF0))
	assert.False(t, IsSystemAttribute(0xFFEF))
	assert.False(t, IsSystemAttribute(0))

	d := &AttrDetails{EndpointID: 2, ClusterID: 0x0402, AttrID: 0xFFFB}
	assert.True(t, d.IsSystem())
	assert.Equal(t, "2/0x0402/0xFFFB", d.String())
}

func TestClusterLookup(t *testing.T) {
	a, ok := testCluster.Attribute(0)
	require.True(t, ok)
	assert.Equal(t, "Value", a.Name)

	_, ok = testCluster.Attribute(7)
	assert.False(t, ok)

	assert.Equal(t, []uint16{0xFFFC, 0xFFFB, 0, 1}, testCluster.AttributeIDs())
	assert.Equal(t, []uint32{0, 1, 2}, testCommandCluster.CommandIDs())
	assert.Equal(t, "Test(0x0402)", testCluster.String())
}

func decodeValue[T any](t *testing.T, enc *AttrEncoder) T {
	t.Helper()
	raw, ok := enc.Value()
	require.True(t, ok, "expected a value to be written")
	var v T
	require.NoError(t, wire.Unmarshal(raw, &v))
	return v
}

func TestReadSystem(t *testing.T) {
	t.Run("feature map", func(t *testing.T) {
		enc := NewAttrEncoder(nil)
		w, err := enc.WithDataver(1)
		require.NoError(t, err)
		require.NoError(t, testCluster.ReadSystem(AttrIDFeatureMap, w))
		assert.Equal(t, uint32(5), decodeValue[uint32](t, enc))
	})

	t.Run("attribute list", func(t *testing.T) {
		enc := NewAttrEncoder(nil)
		w, _ := enc.WithDataver(1)
		require.NoError(t, testCluster.ReadSystem(AttrIDAttributeList, w))
		assert.Equal(t, []uint16{0xFFFC, 0xFFFB, 0, 1}, decodeValue[[]uint16](t, enc))
	})

	t.Run("accepted commands", func(t *testing.T) {
		enc := NewAttrEncoder(nil)
		w, _ := enc.WithDataver(1)
		require.NoError(t, testCommandCluster.ReadSystem(AttrIDAcceptedCommandList, w))
		assert.Equal(t, []uint32{0, 1, 2}, decodeValue[[]uint32](t, enc))
	})

	t.Run("undeclared system attribute", func(t *testing.T) {
		enc := NewAttrEncoder(nil)
		w, _ := enc.WithDataver(1)
		err := testCluster.ReadSystem(AttrIDAcceptedCommandList, w)
		assert.ErrorIs(t, err, ErrUnsupportedAttribute)
		_, ok := enc.Value()
		assert.False(t, ok)
	})

	t.Run("non-system attribute", func(t *testing.T) {
		enc := NewAttrEncoder(nil)
		w, _ := enc.WithDataver(1)
		assert.ErrorIs(t, testCluster.ReadSystem(0, w), ErrUnsupportedAttribute)
	})
}

func TestAttrEncoderFilter(t *testing.T) {
	filter := uint32(10)

	enc := NewAttrEncoder(&filter)
	w, err := enc.WithDataver(10)
	require.NoError(t, err)
	assert.Nil(t, w, "matching filter must yield no writer")
	assert.True(t, enc.Skipped())
	_, ok := enc.Data()
	assert.False(t, ok)

	enc = NewAttrEncoder(&filter)
	w, err = enc.WithDataver(11)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Encode(int16(-5)))
	data, ok := enc.Data()
	require.True(t, ok)
	assert.Equal(t, uint32(11), data.DataVersion)
	assert.False(t, enc.Skipped())
}

func TestAttrWriterSingleValue(t *testing.T) {
	enc := NewAttrEncoder(nil)
	w, _ := enc.WithDataver(1)

	require.NoError(t, w.EncodeNull())
	assert.ErrorIs(t, w.Encode(1), ErrAlreadyEncoded)
	assert.ErrorIs(t, w.EncodeNull(), ErrAlreadyEncoded)

	data, ok := enc.Data()
	require.True(t, ok)
	assert.True(t, data.IsNull())
}

func TestAttrWriterEncodeError(t *testing.T) {
	enc := NewAttrEncoder(nil)
	w, _ := enc.WithDataver(1)

	err := w.Encode(make(chan int))
	assert.Error(t, err)
	_, ok := enc.Value()
	assert.False(t, ok)
}

func TestDataverCountsChanges(t *testing.T) {
	d := NewDataver(100)
	assert.Equal(t, uint32(100), d.Get())
	assert.Equal(t, uint32(100), d.Get(), "Get must not advance")

	assert.Equal(t, uint32(101), d.Changed())
	assert.Equal(t, uint32(102), d.Changed())
	assert.Equal(t, uint32(102), d.Get())
}

func TestDataverConsumeChange(t *testing.T) {
	d := NewDataver(0)
	assert.False(t, d.ConsumeChange(), "fresh dataver has no pending change")

	d.Changed()
	assert.True(t, d.ConsumeChange())
	assert.False(t, d.ConsumeChange())
	assert.False(t, d.ConsumeChange())

	// Two changes before a drain collapse into one signal.
	d.Changed()
	d.Changed()
	assert.True(t, d.ConsumeChange())
	assert.False(t, d.ConsumeChange())
}

func TestDataverConcurrent(t *testing.T) {
	d := NewDataver(0)
	const writers, perWriter = 8, 1000

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWriter {
				d.Changed()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(writers*perWriter), d.Get())
	assert.True(t, d.ConsumeChange())
}

func TestRandDataver(t *testing.T) {
	d := NewRandDataver()
	v := d.Get()
	assert.Equal(t, v+1, d.Changed())
}

// stubHandler is a minimal cluster instance for routing tests.
type stubHandler struct {
	cluster *Cluster
	dv      *Dataver
	invoked []uint8
}

func (s *stubHandler) Cluster() *Cluster { return s.cluster }

func (s *stubHandler) Read(_ *Exchange, attr *AttrDetails, enc *AttrEncoder) error {
	w, err := enc.WithDataver(s.dv.Get())
	if w == nil || err != nil {
		return err
	}
	if attr.IsSystem() {
		return s.cluster.ReadSystem(attr.AttrID, w)
	}
	return w.Encode(uint8(attr.AttrID))
}

func (s *stubHandler) Invoke(_ *Exchange, cmd *CmdDetails, _ []byte) (any, error) {
	s.invoked = append(s.invoked, cmd.CommandID)
	return nil, nil
}

func (s *stubHandler) ConsumeChange() bool { return s.dv.ConsumeChange() }

func TestNodeRouting(t *testing.T) {
	node := NewNode()
	ep, err := node.AddEndpoint(2, DeviceType{ID: DeviceTypeTemperatureSensor, Revision: 2})
	require.NoError(t, err)

	h := &stubHandler{cluster: testCommandCluster, dv: NewDataver(3)}
	require.NoError(t, ep.AddCluster(h))
	assert.ErrorIs(t, ep.AddCluster(h), ErrDuplicateCluster)

	_, err = node.AddEndpoint(2)
	assert.ErrorIs(t, err, ErrDuplicateEndpoint)

	ex := NewExchange(context.Background(), "s1")

	enc := NewAttrEncoder(nil)
	require.NoError(t, node.Read(ex, &AttrDetails{EndpointID: 2, ClusterID: 0x0006, AttrID: AttrIDFeatureMap}, enc))
	assert.Equal(t, uint32(3), enc.Version())

	err = node.Read(ex, &AttrDetails{EndpointID: 9, ClusterID: 0x0006}, NewAttrEncoder(nil))
	assert.ErrorIs(t, err, ErrUnsupportedEndpoint)

	err = node.Read(ex, &AttrDetails{EndpointID: 2, ClusterID: 0x0402}, NewAttrEncoder(nil))
	assert.ErrorIs(t, err, ErrUnsupportedCluster)

	_, err = node.Invoke(ex, &CmdDetails{EndpointID: 2, ClusterID: 0x0006, CommandID: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint8{2}, h.invoked)

	_, err = node.Invoke(ex, &CmdDetails{EndpointID: 2, ClusterID: 0x0006, CommandID: 9}, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedCommand))
}

func TestNodeInvokeWithoutInvoker(t *testing.T) {
	node := NewNode()
	ep, _ := node.AddEndpoint(1)
	require.NoError(t, ep.AddCluster(readOnly{testCluster}))

	_, err := node.Invoke(NewExchange(context.TODO(), ""), &CmdDetails{EndpointID: 1, ClusterID: 0x0402}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
	assert.Empty(t, node.Notifiers())
}

type readOnly struct{ c *Cluster }

func (r readOnly) Cluster() *Cluster { return r.c }

func (r readOnly) Read(*Exchange, *AttrDetails, *AttrEncoder) error { return nil }

func TestNodeEndpointsOrdered(t *testing.T) {
	node := NewNode()
	for _, id := range []uint16{3, 0, 2, 1} {
		_, err := node.AddEndpoint(id)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint16{0, 1, 2, 3}, node.EndpointIDs())

	ep, err := node.Endpoint(2)
	require.NoError(t, err)
	require.NoError(t, ep.AddCluster(&stubHandler{cluster: testCommandCluster, dv: NewDataver(0)}))
	require.NoError(t, ep.AddCluster(readOnly{testCluster}))
	assert.Equal(t, []uint32{0x0006, 0x0402}, ep.ClusterIDs())

	notifiers := node.Notifiers()
	require.Len(t, notifiers, 1)
	assert.Equal(t, uint16(2), notifiers[0].EndpointID)
	assert.Equal(t, uint32(0x0006), notifiers[0].ClusterID)
}
