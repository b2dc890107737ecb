package clusters

import (
	"fmt"
	"sync/atomic"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

// OnOffID is the OnOff cluster ID.
const OnOffID uint32 = 0x0006

// OnOff attribute and command IDs.
const (
	AttrOnOff uint16 = 0x0000

	CmdOff    uint8 = 0x00
	CmdOn     uint8 = 0x01
	CmdToggle uint8 = 0x02
)

// OnOffCluster is the OnOff descriptor.
var OnOffCluster = &model.Cluster{
	ID:         OnOffID,
	Name:       "OnOff",
	FeatureMap: 0,
	Attributes: []model.Attribute{
		model.FeatureMapAttribute,
		model.AttributeListAttribute,
		model.AcceptedCommandListAttribute,
		{ID: AttrOnOff, Name: "OnOff", Access: model.AccessRV, Quality: model.QualityReportable},
	},
	Commands: []model.Command{
		{ID: CmdOff, Name: "Off"},
		{ID: CmdOn, Name: "On"},
		{ID: CmdToggle, Name: "Toggle"},
	},
}

// OnOff is an OnOff cluster instance.
type OnOff struct {
	dataver *model.Dataver
	on      atomic.Bool
}

// NewOnOff creates an instance in the given state, versioned by dv.
func NewOnOff(dv *model.Dataver, on bool) *OnOff {
	c := &OnOff{dataver: dv}
	c.on.Store(on)
	return c
}

// Cluster returns the static descriptor.
func (c *OnOff) Cluster() *model.Cluster { return OnOffCluster }

// DataVersion returns the current data version.
func (c *OnOff) DataVersion() uint32 { return c.dataver.Get() }

// Get returns the current state.
func (c *OnOff) Get() bool { return c.on.Load() }

// Set changes the state and reports whether it changed.
func (c *OnOff) Set(on bool) bool {
	if !c.on.CompareAndSwap(!on, on) {
		return false
	}
	c.dataver.Changed()
	return true
}

// Toggle flips the state and returns the new state.
func (c *OnOff) Toggle() bool {
	for {
		old := c.on.Load()
		if c.on.CompareAndSwap(old, !old) {
			c.dataver.Changed()
			return !old
		}
	}
}

// ConsumeChange drains the change flag.
func (c *OnOff) ConsumeChange() bool { return c.dataver.ConsumeChange() }

// Read encodes one attribute of the cluster.
func (c *OnOff) Read(_ *model.Exchange, attr *model.AttrDetails, enc *model.AttrEncoder) error {
	w, err := enc.WithDataver(c.dataver.Get())
	if err != nil || w == nil {
		return err
	}

	if attr.IsSystem() {
		return OnOffCluster.ReadSystem(attr.AttrID, w)
	}
	if attr.AttrID != AttrOnOff {
		return fmt.Errorf("%w: 0x%04X", model.ErrUnsupportedAttribute, attr.AttrID)
	}
	return w.Encode(c.on.Load())
}

// Invoke executes Off, On or Toggle. None of them take fields or return data.
func (c *OnOff) Invoke(_ *model.Exchange, cmd *model.CmdDetails, _ []byte) (any, error) {
	switch cmd.CommandID {
	case CmdOff:
		c.Set(false)
	case CmdOn:
		c.Set(true)
	case CmdToggle:
		c.Toggle()
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedCommand, cmd)
	}
	return nil, nil
}

var (
	_ model.Handler        = (*OnOff)(nil)
	_ model.Invoker        = (*OnOff)(nil)
	_ model.ChangeNotifier = (*OnOff)(nil)
)
