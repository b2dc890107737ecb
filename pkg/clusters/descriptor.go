package clusters

import (
	"fmt"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

// DescriptorID is the Descriptor cluster ID.
const DescriptorID uint32 = 0x001D

// Descriptor attribute IDs.
const (
	AttrDeviceTypeList uint16 = 0x0000
	AttrServerList     uint16 = 0x0001
	AttrClientList     uint16 = 0x0002
	AttrPartsList      uint16 = 0x0003
)

// DescriptorCluster is the Descriptor descriptor.
var DescriptorCluster = &model.Cluster{
	ID:   DescriptorID,
	Name: "Descriptor",
	Attributes: []model.Attribute{
		model.FeatureMapAttribute,
		model.AttributeListAttribute,
		{ID: AttrDeviceTypeList, Name: "DeviceTypeList", Access: model.AccessRV, Quality: model.QualityFixed | model.QualityList},
		{ID: AttrServerList, Name: "ServerList", Access: model.AccessRV, Quality: model.QualityFixed | model.QualityList},
		{ID: AttrClientList, Name: "ClientList", Access: model.AccessRV, Quality: model.QualityFixed | model.QualityList},
		{ID: AttrPartsList, Name: "PartsList", Access: model.AccessRV, Quality: model.QualityList},
	},
}

// Descriptor describes the composition of one endpoint.
type Descriptor struct {
	node       *model.Node
	endpointID uint16
	dataver    *model.Dataver
}

// NewDescriptor creates the Descriptor instance of endpointID. The lists are
// computed from node at read time.
func NewDescriptor(node *model.Node, endpointID uint16, dv *model.Dataver) *Descriptor {
	return &Descriptor{node: node, endpointID: endpointID, dataver: dv}
}

// Cluster returns the static descriptor.
func (d *Descriptor) Cluster() *model.Cluster { return DescriptorCluster }

// Read encodes one attribute of the cluster.
func (d *Descriptor) Read(_ *model.Exchange, attr *model.AttrDetails, enc *model.AttrEncoder) error {
	w, err := enc.WithDataver(d.dataver.Get())
	if err != nil || w == nil {
		return err
	}

	if attr.IsSystem() {
		return DescriptorCluster.ReadSystem(attr.AttrID, w)
	}

	ep, err := d.node.Endpoint(d.endpointID)
	if err != nil {
		return err
	}

	switch attr.AttrID {
	case AttrDeviceTypeList:
		types := ep.DeviceTypes()
		if types == nil {
			types = []model.DeviceType{}
		}
		return w.Encode(types)
	case AttrServerList:
		return w.Encode(ep.ClusterIDs())
	case AttrClientList:
		return w.Encode([]uint32{})
	case AttrPartsList:
		return w.Encode(d.parts())
	default:
		return fmt.Errorf("%w: 0x%04X", model.ErrUnsupportedAttribute, attr.AttrID)
	}
}

// parts lists the endpoints below this one. The node is flat, so only the
// root endpoint has parts.
func (d *Descriptor) parts() []uint16 {
	parts := []uint16{}
	if d.endpointID != model.RootEndpointID {
		return parts
	}
	for _, id := range d.node.EndpointIDs() {
		if id != model.RootEndpointID {
			parts = append(parts, id)
		}
	}
	return parts
}

var _ model.Handler = (*Descriptor)(nil)
