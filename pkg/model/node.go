package model

import (
	"fmt"
	"slices"
	"sync"
)

// Well-known endpoint and device type identifiers.
const (
	// RootEndpointID is the node's root endpoint.
	RootEndpointID uint16 = 0

	DeviceTypeRootNode          uint32 = 0x0016
	DeviceTypeOnOffLight        uint32 = 0x0100
	DeviceTypeTemperatureSensor uint32 = 0x0302
	DeviceTypeHumiditySensor    uint32 = 0x0307
)

// DeviceType tags an endpoint with a device type and its revision.
//
// CBOR encoding: {0: deviceType, 1: revision}
type DeviceType struct {
	ID       uint32 `cbor:"0,keyasint"`
	Revision uint16 `cbor:"1,keyasint"`
}

// Endpoint is a set of cluster instances under one or more device types.
type Endpoint struct {
	mu sync.RWMutex

	id          uint16
	deviceTypes []DeviceType
	clusters    []Handler
}

// ID returns the endpoint ID.
func (e *Endpoint) ID() uint16 { return e.id }

// DeviceTypes returns the endpoint's device types.
func (e *Endpoint) DeviceTypes() []DeviceType {
	return slices.Clone(e.deviceTypes)
}

// AddCluster adds a cluster instance to the endpoint.
func (e *Endpoint) AddCluster(h Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := h.Cluster().ID
	for _, c := range e.clusters {
		if c.Cluster().ID == id {
			return fmt.Errorf("%w: 0x%04X on endpoint %d", ErrDuplicateCluster, id, e.id)
		}
	}
	e.clusters = append(e.clusters, h)
	return nil
}

// Cluster returns the cluster instance with the given ID.
func (e *Endpoint) Cluster(id uint32) (Handler, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, c := range e.clusters {
		if c.Cluster().ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: 0x%04X on endpoint %d", ErrUnsupportedCluster, id, e.id)
}

// Clusters returns the endpoint's cluster instances in insertion order.
func (e *Endpoint) Clusters() []Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.clusters)
}

// ClusterIDs returns the IDs of the endpoint's clusters in ascending order.
func (e *Endpoint) ClusterIDs() []uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]uint32, len(e.clusters))
	for i, c := range e.clusters {
		ids[i] = c.Cluster().ID
	}
	slices.Sort(ids)
	return ids
}

// Node is the composed data model served to controllers.
//
// A Node is built once at startup. After that, only the state inside the
// cluster instances changes.
type Node struct {
	mu        sync.RWMutex
	endpoints []*Endpoint
}

// NewNode creates an empty node.
func NewNode() *Node {
	return &Node{}
}

// AddEndpoint creates an endpoint with the given device types.
func (n *Node) AddEndpoint(id uint16, deviceTypes ...DeviceType) (*Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ep := range n.endpoints {
		if ep.id == id {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateEndpoint, id)
		}
	}
	ep := &Endpoint{id: id, deviceTypes: slices.Clone(deviceTypes)}
	n.endpoints = append(n.endpoints, ep)
	slices.SortFunc(n.endpoints, func(a, b *Endpoint) int { return int(a.id) - int(b.id) })
	return ep, nil
}

// Endpoint returns the endpoint with the given ID.
func (n *Node) Endpoint(id uint16) (*Endpoint, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ep := range n.endpoints {
		if ep.id == id {
			return ep, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedEndpoint, id)
}

// Endpoints returns all endpoints in ascending ID order.
func (n *Node) Endpoints() []*Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.endpoints)
}

// EndpointIDs returns all endpoint IDs in ascending order.
func (n *Node) EndpointIDs() []uint16 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]uint16, len(n.endpoints))
	for i, ep := range n.endpoints {
		ids[i] = ep.id
	}
	return ids
}

// Handler returns the cluster instance addressed by endpoint and cluster ID.
func (n *Node) Handler(endpointID uint16, clusterID uint32) (Handler, error) {
	ep, err := n.Endpoint(endpointID)
	if err != nil {
		return nil, err
	}
	return ep.Cluster(clusterID)
}

// Read routes an attribute read to its cluster instance.
func (n *Node) Read(ex *Exchange, attr *AttrDetails, enc *AttrEncoder) error {
	h, err := n.Handler(attr.EndpointID, attr.ClusterID)
	if err != nil {
		return err
	}
	return h.Read(ex, attr, enc)
}

// Invoke routes a command to its cluster instance.
func (n *Node) Invoke(ex *Exchange, cmd *CmdDetails, fields []byte) (any, error) {
	h, err := n.Handler(cmd.EndpointID, cmd.ClusterID)
	if err != nil {
		return nil, err
	}
	inv, ok := h.(Invoker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd)
	}
	if _, ok := h.Cluster().Command(cmd.CommandID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd)
	}
	return inv.Invoke(ex, cmd, fields)
}

// NotifierEntry is a cluster instance that reports runtime changes.
type NotifierEntry struct {
	EndpointID uint16
	ClusterID  uint32
	Notifier   ChangeNotifier
}

// Notifiers returns every cluster instance implementing ChangeNotifier.
func (n *Node) Notifiers() []NotifierEntry {
	var out []NotifierEntry
	for _, ep := range n.Endpoints() {
		for _, h := range ep.Clusters() {
			if cn, ok := h.(ChangeNotifier); ok {
				out = append(out, NotifierEntry{EndpointID: ep.id, ClusterID: h.Cluster().ID, Notifier: cn})
			}
		}
	}
	return out
}
