package model

import "fmt"

// Cluster is the static descriptor of a cluster type.
//
// Descriptors are declared as package-level values and never modified.
// AttributeList and AcceptedCommandList report Attributes and Commands in
// declaration order.
type Cluster struct {
	ID         uint32
	Name       string
	FeatureMap uint32
	Attributes []Attribute
	Commands   []Command
}

// Attribute looks up an attribute descriptor by ID.
func (c *Cluster) Attribute(id uint16) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}

// Command looks up a command descriptor by ID.
func (c *Cluster) Command(id uint8) (Command, bool) {
	for _, cmd := range c.Commands {
		if cmd.ID == id {
			return cmd, true
		}
	}
	return Command{}, false
}

// AttributeIDs returns the IDs of all declared attributes.
func (c *Cluster) AttributeIDs() []uint16 {
	ids := make([]uint16, len(c.Attributes))
	for i, a := range c.Attributes {
		ids[i] = a.ID
	}
	return ids
}

// CommandIDs returns the IDs of all accepted commands. They are widened to
// uint32 so the list encodes as a CBOR array rather than a byte string.
func (c *Cluster) CommandIDs() []uint32 {
	ids := make([]uint32, len(c.Commands))
	for i, cmd := range c.Commands {
		ids[i] = uint32(cmd.ID)
	}
	return ids
}

// ReadSystem answers a system attribute read on behalf of a cluster
// instance. It fails with ErrUnsupportedAttribute for system IDs the
// descriptor does not declare.
func (c *Cluster) ReadSystem(attrID uint16, w *AttrWriter) error {
	if _, ok := c.Attribute(attrID); !ok || !IsSystemAttribute(attrID) {
		return fmt.Errorf("%w: 0x%04X on cluster 0x%04X", ErrUnsupportedAttribute, attrID, c.ID)
	}

	switch attrID {
	case AttrIDFeatureMap:
		return w.Encode(c.FeatureMap)
	case AttrIDAttributeList:
		return w.Encode(c.AttributeIDs())
	case AttrIDAcceptedCommandList:
		return w.Encode(c.CommandIDs())
	default:
		return fmt.Errorf("%w: 0x%04X on cluster 0x%04X", ErrUnsupportedAttribute, attrID, c.ID)
	}
}

// String returns the cluster name and ID.
func (c *Cluster) String() string {
	return fmt.Sprintf("%s(0x%04X)", c.Name, c.ID)
}
