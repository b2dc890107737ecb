package model

import (
	"math/rand/v2"
	"sync/atomic"
)

// Dataver is the data version of one cluster instance.
//
// The version advances once per visible change and is never advanced by a
// read. A change also arms a one-shot flag that ConsumeChange drains, so an
// outer reporting loop observes every change exactly once. Both parts are
// plain atomics; a Dataver is shared by the goroutine that updates cluster
// state and the goroutines that serve reads.
type Dataver struct {
	version atomic.Uint32
	changed atomic.Bool
}

// NewDataver creates a data version starting at initial.
func NewDataver(initial uint32) *Dataver {
	d := &Dataver{}
	d.version.Store(initial)
	return d
}

// NewRandDataver creates a data version with a random starting value, so a
// restarted node does not hand out versions a controller has cached.
func NewRandDataver() *Dataver {
	return NewDataver(rand.Uint32())
}

// Get returns the current version.
func (d *Dataver) Get() uint32 {
	return d.version.Load()
}

// Changed advances the version and arms the change flag. It returns the new
// version.
func (d *Dataver) Changed() uint32 {
	v := d.version.Add(1)
	d.changed.Store(true)
	return v
}

// ConsumeChange reports whether a change happened since the last call and
// clears the flag.
func (d *Dataver) ConsumeChange() bool {
	return d.changed.CompareAndSwap(true, false)
}
