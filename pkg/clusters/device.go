package clusters

import (
	"fmt"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

// Endpoint layout of the sensor light.
const (
	LightEndpointID       uint16 = 1
	TemperatureEndpointID uint16 = 2
	HumidityEndpointID    uint16 = 3
)

// Device type revisions announced in the Descriptor clusters.
const (
	rootNodeRevision    uint16 = 1
	applicationRevision uint16 = 2
)

// DeviceOptions configures NewDevice.
type DeviceOptions struct {
	BasicInfo BasicInfoConfig

	// InitialOnOff is the light state at start, usually restored from the
	// store.
	InitialOnOff bool

	// NewDataver creates the data version of each cluster instance.
	// Defaults to model.NewRandDataver.
	NewDataver func() *model.Dataver
}

// Device is the composed node with direct access to its mutable clusters.
type Device struct {
	Node        *model.Node
	BasicInfo   *BasicInformation
	OnOff       *OnOff
	Temperature *Temperature
	Humidity    *Humidity
}

// NewDevice builds the node: root endpoint 0 with BasicInformation, an
// On/Off light on endpoint 1, a temperature sensor on endpoint 2 and a
// humidity sensor on endpoint 3. Every endpoint carries a Descriptor.
func NewDevice(opts DeviceOptions) (*Device, error) {
	newDV := opts.NewDataver
	if newDV == nil {
		newDV = model.NewRandDataver
	}

	d := &Device{
		Node:        model.NewNode(),
		BasicInfo:   NewBasicInformation(opts.BasicInfo, newDV()),
		OnOff:       NewOnOff(newDV(), opts.InitialOnOff),
		Temperature: NewTemperature(newDV()),
		Humidity:    NewHumidity(newDV()),
	}

	layout := []struct {
		id       uint16
		devType  model.DeviceType
		clusters []model.Handler
	}{
		{model.RootEndpointID, model.DeviceType{ID: model.DeviceTypeRootNode, Revision: rootNodeRevision}, []model.Handler{d.BasicInfo}},
		{LightEndpointID, model.DeviceType{ID: model.DeviceTypeOnOffLight, Revision: applicationRevision}, []model.Handler{d.OnOff}},
		{TemperatureEndpointID, model.DeviceType{ID: model.DeviceTypeTemperatureSensor, Revision: applicationRevision}, []model.Handler{d.Temperature}},
		{HumidityEndpointID, model.DeviceType{ID: model.DeviceTypeHumiditySensor, Revision: applicationRevision}, []model.Handler{d.Humidity}},
	}

	for _, l := range layout {
		ep, err := d.Node.AddEndpoint(l.id, l.devType)
		if err != nil {
			return nil, fmt.Errorf("endpoint %d: %w", l.id, err)
		}
		for _, h := range append(l.clusters, NewDescriptor(d.Node, l.id, newDV())) {
			if err := ep.AddCluster(h); err != nil {
				return nil, fmt.Errorf("endpoint %d: %w", l.id, err)
			}
		}
	}
	return d, nil
}
