package clusters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

func TestNewDeviceLayout(t *testing.T) {
	d, err := NewDevice(DeviceOptions{BasicInfo: DefaultBasicInfoConfig(), InitialOnOff: true})
	require.NoError(t, err)

	assert.Equal(t, []uint16{0, 1, 2, 3}, d.Node.EndpointIDs())
	assert.True(t, d.OnOff.Get())

	want := map[uint16][]uint32{
		0:                     {DescriptorID, BasicInformationID},
		LightEndpointID:       {OnOffID, DescriptorID},
		TemperatureEndpointID: {DescriptorID, TemperatureMeasurementID},
		HumidityEndpointID:    {DescriptorID, RelativeHumidityMeasurementID},
	}
	for id, clusters := range want {
		ep, err := d.Node.Endpoint(id)
		require.NoError(t, err)
		assert.Equal(t, clusters, ep.ClusterIDs(), "endpoint %d", id)
	}

	desc, err := d.Node.Handler(HumidityEndpointID, DescriptorID)
	require.NoError(t, err)
	types := decode[[]model.DeviceType](t, read(t, desc, AttrDeviceTypeList))
	assert.Equal(t, []model.DeviceType{{ID: model.DeviceTypeHumiditySensor, Revision: 2}}, types)

	root, err := d.Node.Handler(0, DescriptorID)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3}, decode[[]uint16](t, read(t, root, AttrPartsList)))
}

func TestNewDeviceNotifiers(t *testing.T) {
	d, err := NewDevice(DeviceOptions{NewDataver: func() *model.Dataver { return model.NewDataver(0) }})
	require.NoError(t, err)

	entries := d.Node.Notifiers()
	byCluster := map[uint32]uint16{}
	for _, e := range entries {
		if e.ClusterID != DescriptorID {
			byCluster[e.ClusterID] = e.EndpointID
		}
	}
	assert.Equal(t, LightEndpointID, byCluster[OnOffID])
	assert.Equal(t, TemperatureEndpointID, byCluster[TemperatureMeasurementID])
	assert.Equal(t, HumidityEndpointID, byCluster[RelativeHumidityMeasurementID])

	d.Temperature.Set(21.5, true)
	for _, e := range entries {
		assert.Equal(t, e.ClusterID == TemperatureMeasurementID, e.Notifier.ConsumeChange(), "cluster 0x%04X", e.ClusterID)
	}
}
