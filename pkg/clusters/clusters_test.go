package clusters

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

var testExchange = model.NewExchange(context.Background(), "test")

// read performs a single attribute read without a data version filter.
func read(t *testing.T, h model.Handler, attrID uint16) wire.AttributeData {
	t.Helper()
	enc := model.NewAttrEncoder(nil)
	err := h.Read(testExchange, &model.AttrDetails{ClusterID: h.Cluster().ID, AttrID: attrID}, enc)
	require.NoError(t, err)
	data, ok := enc.Data()
	require.True(t, ok, "nothing encoded for attribute 0x%04X", attrID)
	return data
}

func decode[T any](t *testing.T, data wire.AttributeData) T {
	t.Helper()
	var v T
	require.NoError(t, data.Decode(&v))
	return v
}

func TestMeasuredValueSetCountsDistinctChanges(t *testing.T) {
	tests := []struct {
		name  string
		steps []*float32
		want  uint32
	}{
		{"absent to absent", []*float32{nil, nil}, 0},
		{"single value", []*float32{ptr(21.5)}, 1},
		{"duplicate value", []*float32{ptr(21.5), ptr(21.5), ptr(21.5)}, 1},
		{"value then absent", []*float32{ptr(21.5), nil, nil}, 2},
		{"alternating", []*float32{ptr(1), ptr(2), ptr(1), ptr(2)}, 4},
		{"negative zero equals zero", []*float32{ptr(0), ptr(float32(negZero()))}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dv := model.NewDataver(1000)
			cell := NewMeasuredValue(dv)
			for _, s := range tt.steps {
				if s == nil {
					cell.Set(0, false)
				} else {
					cell.Set(*s, true)
				}
			}
			assert.Equal(t, 1000+tt.want, dv.Get())
		})
	}
}

func TestMeasuredValueGet(t *testing.T) {
	cell := NewMeasuredValue(model.NewDataver(0))

	_, ok := cell.Get()
	assert.False(t, ok, "new cell must be absent")

	assert.True(t, cell.Set(-12.25, true))
	v, ok := cell.Get()
	require.True(t, ok)
	assert.Equal(t, float32(-12.25), v)

	assert.False(t, cell.Set(-12.25, true))
	assert.True(t, cell.Set(0, false))
	_, ok = cell.Get()
	assert.False(t, ok)
}

func TestMeasuredValueConcurrentReads(t *testing.T) {
	dv := model.NewDataver(0)
	cell := NewMeasuredValue(dv)
	values := []float32{10.5, 20.25, 30.125}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 3000 {
			cell.Set(values[i%len(values)], true)
		}
	}()

	for range 3000 {
		v, ok := cell.Get()
		if ok {
			assert.Contains(t, values, v, "torn read")
		}
	}
	wg.Wait()
}

func TestDuplicateSetsSignalTwice(t *testing.T) {
	dv := model.NewDataver(7)
	temp := NewTemperature(dv)

	changes := 0
	drain := func() {
		// Poll more often than values change.
		for range 3 {
			if temp.ConsumeChange() {
				changes++
			}
		}
	}

	temp.Set(24.97, true)
	drain()
	temp.Set(24.97, true)
	drain()
	temp.Set(25.10, true)
	drain()

	assert.Equal(t, uint32(9), temp.DataVersion())
	assert.Equal(t, 2, changes)
}

func TestTemperatureRead(t *testing.T) {
	temp := NewTemperature(model.NewDataver(1))

	t.Run("absent is null", func(t *testing.T) {
		data := read(t, temp, uint16(AttrMeasuredValue))
		assert.True(t, data.IsNull())
	})

	t.Run("scaled value", func(t *testing.T) {
		temp.Set(24.97, true)
		data := read(t, temp, uint16(AttrMeasuredValue))
		assert.Equal(t, int16(2497), decode[int16](t, data))
		assert.Equal(t, temp.DataVersion(), data.DataVersion)
	})

	t.Run("negative value", func(t *testing.T) {
		temp.Set(-10.006, true)
		assert.Equal(t, int16(-1001), decode[int16](t, read(t, temp, uint16(AttrMeasuredValue))))
	})

	t.Run("min and max always null", func(t *testing.T) {
		temp.Set(30, true)
		assert.True(t, read(t, temp, uint16(AttrMinMeasuredValue)).IsNull())
		assert.True(t, read(t, temp, uint16(AttrMaxMeasuredValue)).IsNull())
	})

	t.Run("system attributes", func(t *testing.T) {
		assert.Equal(t, uint32(0), decode[uint32](t, read(t, temp, model.AttrIDFeatureMap)))
		assert.Equal(t,
			[]uint16{model.AttrIDFeatureMap, model.AttrIDAttributeList, 0, 1, 2},
			decode[[]uint16](t, read(t, temp, model.AttrIDAttributeList)))
	})
}

func TestHumidityRead(t *testing.T) {
	hum := NewHumidity(model.NewDataver(1))

	assert.True(t, read(t, hum, uint16(AttrMeasuredValue)).IsNull())

	hum.Set(39.35, true)
	assert.Equal(t, uint16(3935), decode[uint16](t, read(t, hum, uint16(AttrMeasuredValue))))

	hum.Set(103.0, true)
	assert.Equal(t, uint16(10000), decode[uint16](t, read(t, hum, uint16(AttrMeasuredValue))))

	assert.True(t, read(t, hum, uint16(AttrMinMeasuredValue)).IsNull())
	assert.True(t, read(t, hum, uint16(AttrMaxMeasuredValue)).IsNull())
}

func TestMeasurementUnsupportedAttribute(t *testing.T) {
	for _, h := range []model.Handler{NewTemperature(model.NewDataver(0)), NewHumidity(model.NewDataver(0))} {
		for _, id := range []uint16{3, 0x0010, model.AttrIDAcceptedCommandList, 0xFFFD} {
			enc := model.NewAttrEncoder(nil)
			err := h.Read(testExchange, &model.AttrDetails{AttrID: id}, enc)
			assert.ErrorIs(t, err, model.ErrUnsupportedAttribute, "cluster %s attr 0x%04X", h.Cluster(), id)
			_, ok := enc.Value()
			assert.False(t, ok)
		}
	}
}

func TestMeasurementDataverFilter(t *testing.T) {
	dv := model.NewDataver(41)
	temp := NewTemperature(dv)
	temp.Set(20, true) // version 42

	known := uint32(42)
	enc := model.NewAttrEncoder(&known)
	require.NoError(t, temp.Read(testExchange, &model.AttrDetails{AttrID: uint16(AttrMeasuredValue)}, enc))
	assert.True(t, enc.Skipped())
	_, ok := enc.Value()
	assert.False(t, ok)

	// The filter short-circuits before the attribute ID is checked.
	enc = model.NewAttrEncoder(&known)
	assert.NoError(t, temp.Read(testExchange, &model.AttrDetails{AttrID: 0x0099}, enc))

	temp.Set(21, true)
	enc = model.NewAttrEncoder(&known)
	require.NoError(t, temp.Read(testExchange, &model.AttrDetails{AttrID: uint16(AttrMeasuredValue)}, enc))
	data, ok := enc.Data()
	require.True(t, ok)
	assert.Equal(t, uint32(43), data.DataVersion)
}

func TestReadDoesNotMutate(t *testing.T) {
	dv := model.NewDataver(5)
	hum := NewHumidity(dv)
	hum.Set(50, true)
	hum.ConsumeChange()

	for range 5 {
		read(t, hum, uint16(AttrMeasuredValue))
		read(t, hum, model.AttrIDAttributeList)
	}
	assert.Equal(t, uint32(6), dv.Get())
	assert.False(t, hum.ConsumeChange())
}

func TestEncodeTemperature(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{24.97, 2497},
		{0, 0},
		{-45, -4500},
		{130, 13000},
		{0.004, 0},
		{0.006, 1},
		{-0.006, -1},
		{400, 32767},
		{-400, -32768},
	}
	for _, tt := range tests {
		if got := EncodeTemperature(tt.in); got != tt.want {
			t.Errorf("EncodeTemperature(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncodeHumidity(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{39.35, 3935},
		{0, 0},
		{-3, 0},
		{100, 10000},
		{103, 10000},
		{1000, 10000},
		{55.555, 5556},
	}
	for _, tt := range tests {
		if got := EncodeHumidity(tt.in); got != tt.want {
			t.Errorf("EncodeHumidity(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMeasurementAttributeFromID(t *testing.T) {
	a, err := MeasurementAttributeFromID(2)
	require.NoError(t, err)
	assert.Equal(t, AttrMaxMeasuredValue, a)
	assert.Equal(t, "MaxMeasuredValue", a.String())

	_, err = MeasurementAttributeFromID(3)
	assert.ErrorIs(t, err, model.ErrUnsupportedAttribute)
}

func TestMeasurementDescriptors(t *testing.T) {
	for _, c := range []*model.Cluster{TemperatureMeasurementCluster, RelativeHumidityMeasurementCluster} {
		assert.Equal(t, uint32(0), c.FeatureMap)
		assert.Empty(t, c.Commands)

		mv, ok := c.Attribute(uint16(AttrMeasuredValue))
		require.True(t, ok)
		assert.Equal(t, model.AccessRV, mv.Access)
		assert.Equal(t, model.QualityNullable|model.QualityPersistent, mv.Quality)

		for _, id := range []MeasurementAttribute{AttrMinMeasuredValue, AttrMaxMeasuredValue} {
			a, ok := c.Attribute(uint16(id))
			require.True(t, ok)
			assert.Equal(t, model.AccessRV, a.Access)
			assert.Equal(t, model.QualityNone, a.Quality)
		}
	}
	assert.Equal(t, uint32(0x0402), TemperatureMeasurementCluster.ID)
	assert.Equal(t, uint32(0x0405), RelativeHumidityMeasurementCluster.ID)
}

func TestOnOff(t *testing.T) {
	dv := model.NewDataver(0)
	light := NewOnOff(dv, false)

	assert.False(t, decode[bool](t, read(t, light, AttrOnOff)))

	assert.True(t, light.Set(true))
	assert.False(t, light.Set(true))
	assert.True(t, decode[bool](t, read(t, light, AttrOnOff)))
	assert.Equal(t, uint32(1), dv.Get())

	assert.False(t, light.Toggle())
	assert.True(t, light.Toggle())
	assert.Equal(t, uint32(3), dv.Get())
	assert.True(t, light.ConsumeChange())
	assert.False(t, light.ConsumeChange())

	assert.Equal(t, []uint32{0, 1, 2}, decode[[]uint32](t, read(t, light, model.AttrIDAcceptedCommandList)))

	enc := model.NewAttrEncoder(nil)
	err := light.Read(testExchange, &model.AttrDetails{AttrID: 1}, enc)
	assert.ErrorIs(t, err, model.ErrUnsupportedAttribute)
}

func TestOnOffInvoke(t *testing.T) {
	light := NewOnOff(model.NewDataver(0), false)
	invoke := func(id uint8) error {
		_, err := light.Invoke(testExchange, &model.CmdDetails{ClusterID: OnOffID, CommandID: id}, nil)
		return err
	}

	require.NoError(t, invoke(CmdOn))
	assert.True(t, light.Get())
	require.NoError(t, invoke(CmdToggle))
	assert.False(t, light.Get())
	require.NoError(t, invoke(CmdToggle))
	assert.True(t, light.Get())
	require.NoError(t, invoke(CmdOff))
	assert.False(t, light.Get())

	assert.ErrorIs(t, invoke(7), model.ErrUnsupportedCommand)
}

func TestOnOffConcurrentToggle(t *testing.T) {
	dv := model.NewDataver(0)
	light := NewOnOff(dv, false)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				light.Toggle()
			}
		}()
	}
	wg.Wait()

	// An even number of toggles returns to the initial state.
	assert.False(t, light.Get())
	assert.Equal(t, uint32(1000), dv.Get())
}

func buildNode(t *testing.T) *model.Node {
	t.Helper()
	node := model.NewNode()

	root, err := node.AddEndpoint(model.RootEndpointID, model.DeviceType{ID: model.DeviceTypeRootNode, Revision: 1})
	require.NoError(t, err)
	require.NoError(t, root.AddCluster(NewBasicInformation(DefaultBasicInfoConfig(), model.NewDataver(0))))
	require.NoError(t, root.AddCluster(NewDescriptor(node, 0, model.NewDataver(0))))

	light, err := node.AddEndpoint(1, model.DeviceType{ID: model.DeviceTypeOnOffLight, Revision: 2})
	require.NoError(t, err)
	require.NoError(t, light.AddCluster(NewOnOff(model.NewDataver(0), false)))
	require.NoError(t, light.AddCluster(NewDescriptor(node, 1, model.NewDataver(0))))

	temp, err := node.AddEndpoint(2, model.DeviceType{ID: model.DeviceTypeTemperatureSensor, Revision: 2})
	require.NoError(t, err)
	require.NoError(t, temp.AddCluster(NewTemperature(model.NewDataver(0))))
	require.NoError(t, temp.AddCluster(NewDescriptor(node, 2, model.NewDataver(0))))
	return node
}

func TestDescriptor(t *testing.T) {
	node := buildNode(t)

	rootDesc, err := node.Handler(0, DescriptorID)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, decode[[]uint16](t, read(t, rootDesc, AttrPartsList)))
	assert.Equal(t, []uint32{DescriptorID, BasicInformationID}, decode[[]uint32](t, read(t, rootDesc, AttrServerList)))

	lightDesc, err := node.Handler(1, DescriptorID)
	require.NoError(t, err)
	types := decode[[]model.DeviceType](t, read(t, lightDesc, AttrDeviceTypeList))
	assert.Equal(t, []model.DeviceType{{ID: model.DeviceTypeOnOffLight, Revision: 2}}, types)
	assert.Equal(t, []uint32{OnOffID, DescriptorID}, decode[[]uint32](t, read(t, lightDesc, AttrServerList)))
	assert.Empty(t, decode[[]uint16](t, read(t, lightDesc, AttrPartsList)))
	assert.Empty(t, decode[[]uint32](t, read(t, lightDesc, AttrClientList)))

	enc := model.NewAttrEncoder(nil)
	assert.ErrorIs(t, lightDesc.Read(testExchange, &model.AttrDetails{AttrID: 9}, enc), model.ErrUnsupportedAttribute)
}

func TestBasicInformation(t *testing.T) {
	bi := NewBasicInformation(DefaultBasicInfoConfig(), model.NewDataver(0))

	assert.Equal(t, "ACME", decode[string](t, read(t, bi, AttrVendorName)))
	assert.Equal(t, TestVendorID, decode[uint16](t, read(t, bi, AttrVendorID)))
	assert.Equal(t, "ACME Light", decode[string](t, read(t, bi, AttrProductName)))
	assert.Equal(t, TestProductID, decode[uint16](t, read(t, bi, AttrProductID)))
	assert.Equal(t, "MyLight", decode[string](t, read(t, bi, AttrNodeLabel)))
	assert.Equal(t, uint16(2), decode[uint16](t, read(t, bi, AttrHardwareVersion)))
	assert.Equal(t, "v2", decode[string](t, read(t, bi, AttrHardwareVersionString)))
	assert.Equal(t, uint32(1), decode[uint32](t, read(t, bi, AttrSoftwareVersion)))
	assert.Equal(t, "1", decode[string](t, read(t, bi, AttrSoftwareVersionString)))
	assert.Equal(t, "aabbccdd", decode[string](t, read(t, bi, AttrSerialNumber)))
	assert.Equal(t, DataModelRevision, decode[uint16](t, read(t, bi, AttrDataModelRevision)))

	enc := model.NewAttrEncoder(nil)
	assert.ErrorIs(t, bi.Read(testExchange, &model.AttrDetails{AttrID: 0x0006}, enc), model.ErrUnsupportedAttribute)
}

func ptr(v float32) *float32 { return &v }

func negZero() float64 {
	z := 0.0
	return -z
}
