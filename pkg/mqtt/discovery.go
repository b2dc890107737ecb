package mqtt

import "github.com/mash-protocol/mash-sensor/pkg/clusters"

// DefaultDiscoveryPrefix is the Home Assistant discovery prefix.
const DefaultDiscoveryPrefix = "homeassistant"

// discoveryMsg is a Home Assistant MQTT discovery document.
type discoveryMsg struct {
	Topic   string
	Payload []byte
}

type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	AvailabilityTopic string   `json:"availability_topic"`
	ValueTemplate     string   `json:"value_template"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	PayloadOn         string   `json:"payload_on,omitempty"`
	PayloadOff        string   `json:"payload_off,omitempty"`
	Device            haDevice `json:"device"`
}

// buildDiscovery returns the discovery documents of the mirrored properties.
func (m *Mirror) buildDiscovery(prefix string, info clusters.BasicInfoConfig) []discoveryMsg {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	id := "mash_" + topicName(info.SerialNumber)
	name := info.DeviceName
	if name == "" {
		name = info.ProductName
	}
	dev := haDevice{
		Identifiers:  []string{id},
		Manufacturer: info.VendorName,
		Model:        info.ProductName,
		Name:         name,
		SWVersion:    info.SoftwareVersionString,
	}

	base := func(prop, label string) haDiscovery {
		return haDiscovery{
			Name:              name + " " + label,
			UniqueID:          id + "_" + prop,
			StateTopic:        m.StateTopic(),
			AvailabilityTopic: m.AvailabilityTopic(),
			ValueTemplate:     "{{ value_json." + prop + " }}",
			Device:            dev,
		}
	}

	temp := base("temperature", "Temperature")
	temp.DeviceClass = "temperature"
	temp.StateClass = "measurement"
	temp.UnitOfMeasurement = "°C"

	hum := base("humidity", "Humidity")
	hum.DeviceClass = "humidity"
	hum.StateClass = "measurement"
	hum.UnitOfMeasurement = "%"

	light := base("state", "Light")
	light.DeviceClass = "light"
	light.PayloadOn = "ON"
	light.PayloadOff = "OFF"

	return []discoveryMsg{
		{Topic: prefix + "/sensor/" + id + "/temperature/config", Payload: mustJSON(temp)},
		{Topic: prefix + "/sensor/" + id + "/humidity/config", Payload: mustJSON(hum)},
		{Topic: prefix + "/binary_sensor/" + id + "/light/config", Payload: mustJSON(light)},
	}
}

// PublishDiscovery publishes the retained discovery documents.
func (m *Mirror) PublishDiscovery(prefix string, info clusters.BasicInfoConfig) {
	for _, msg := range m.buildDiscovery(prefix, info) {
		m.pub.Publish(msg.Topic, msg.Payload, true)
	}
	m.logger.Info("published HA discovery", "node", m.node)
}
