package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mash-protocol/mash-sensor/pkg/clusters"
	"github.com/mash-protocol/mash-sensor/pkg/model"
	"github.com/mash-protocol/mash-sensor/pkg/wire"
)

// Point names one readable value of the node.
type Point struct {
	Name       string
	EndpointID uint16
	ClusterID  uint32
	AttrID     uint16
	format     func(wire.AttributeData) (string, error)
}

// Points lists the values mash-ctl can read and watch.
var Points = []Point{
	{"temperature", clusters.TemperatureEndpointID, clusters.TemperatureMeasurementID, 0, formatTemperature},
	{"humidity", clusters.HumidityEndpointID, clusters.RelativeHumidityMeasurementID, 0, formatHumidity},
	{"light", clusters.LightEndpointID, clusters.OnOffID, clusters.AttrOnOff, formatOnOff},
}

// FindPoint looks up a point by name (case-insensitive).
func FindPoint(name string) (Point, error) {
	for _, p := range Points {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Point{}, fmt.Errorf("unknown value %q (must be temperature, humidity or light)", name)
}

func pointAt(endpointID uint16, clusterID uint32) (Point, bool) {
	for _, p := range Points {
		if p.EndpointID == endpointID && p.ClusterID == clusterID {
			return p, true
		}
	}
	return Point{}, false
}

// Format renders a reported value of p.
func (p Point) Format(d wire.AttributeData) (string, error) {
	return p.format(d)
}

func formatTemperature(d wire.AttributeData) (string, error) {
	if d.IsNull() {
		return "null", nil
	}
	var v int16
	if err := d.Decode(&v); err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f °C", float64(v)/100), nil
}

func formatHumidity(d wire.AttributeData) (string, error) {
	if d.IsNull() {
		return "null", nil
	}
	var v uint16
	if err := d.Decode(&v); err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f %%RH", float64(v)/100), nil
}

func formatOnOff(d wire.AttributeData) (string, error) {
	var on bool
	if err := d.Decode(&on); err != nil {
		return "", err
	}
	if on {
		return "on", nil
	}
	return "off", nil
}

// RunRead reads the named values and prints one line each.
func RunRead(ctx context.Context, s *Session, names []string, w io.Writer) error {
	if len(names) == 0 {
		for _, p := range Points {
			names = append(names, p.Name)
		}
	}
	for _, name := range names {
		p, err := FindPoint(name)
		if err != nil {
			return err
		}
		res, err := s.client.Read(ctx, p.EndpointID, p.ClusterID, []uint16{p.AttrID})
		if err != nil {
			return fmt.Errorf("read %s: %w", p.Name, err)
		}
		data, ok := res.Attributes[p.AttrID]
		if !ok {
			return fmt.Errorf("read %s: status %s", p.Name, res.Statuses[p.AttrID])
		}
		text, err := p.Format(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", p.Name, err)
		}
		fmt.Fprintf(w, "%-12s %s (dataver %d)\n", p.Name, text, data.DataVersion)
	}
	return nil
}

// RunInfo prints the BasicInformation of the node.
func RunInfo(ctx context.Context, s *Session, w io.Writer) error {
	attrs := []struct {
		id   uint16
		name string
	}{
		{clusters.AttrVendorName, "Vendor"},
		{clusters.AttrProductName, "Product"},
		{clusters.AttrNodeLabel, "Name"},
		{clusters.AttrSerialNumber, "Serial"},
		{clusters.AttrSoftwareVersionString, "Software"},
	}
	ids := make([]uint16, len(attrs))
	for i, a := range attrs {
		ids[i] = a.id
	}

	res, err := s.client.Read(ctx, model.RootEndpointID, clusters.BasicInformationID, ids)
	if err != nil {
		return fmt.Errorf("read basic information: %w", err)
	}
	for _, a := range attrs {
		var v string
		if data, ok := res.Attributes[a.id]; ok {
			if err := data.Decode(&v); err != nil {
				return fmt.Errorf("decode %s: %w", a.name, err)
			}
		}
		fmt.Fprintf(w, "%-9s %s\n", a.name+":", v)
	}
	return nil
}

// RunLight sends on, off or toggle to the light.
func RunLight(ctx context.Context, s *Session, command string, w io.Writer) error {
	var cmd uint8
	switch strings.ToLower(command) {
	case "on":
		cmd = clusters.CmdOn
	case "off":
		cmd = clusters.CmdOff
	case "toggle":
		cmd = clusters.CmdToggle
	default:
		return fmt.Errorf("unknown light command %q (must be on, off or toggle)", command)
	}
	if err := s.client.Invoke(ctx, clusters.LightEndpointID, clusters.OnOffID, cmd, nil); err != nil {
		return fmt.Errorf("invoke %s: %w", command, err)
	}
	return RunRead(ctx, s, []string{"light"}, w)
}
