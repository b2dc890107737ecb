package clusters

import (
	"math"
	"sync/atomic"

	"github.com/mash-protocol/mash-sensor/pkg/model"
)

// presentBit marks a stored reading in the packed cell word.
const presentBit = uint64(1) << 32

// MeasuredValue holds an optional physical reading.
//
// The reading and its presence are packed into one atomic word, so Get never
// observes a torn value. Set bumps the owning cluster's data version only when
// the stored value actually changes.
type MeasuredValue struct {
	word    atomic.Uint64
	dataver *model.Dataver
}

// NewMeasuredValue creates an empty cell whose changes advance dv.
func NewMeasuredValue(dv *model.Dataver) *MeasuredValue {
	return &MeasuredValue{dataver: dv}
}

func pack(v float32, ok bool) uint64 {
	if !ok {
		return 0
	}
	return presentBit | uint64(math.Float32bits(v))
}

func unpack(w uint64) (float32, bool) {
	if w&presentBit == 0 {
		return 0, false
	}
	return math.Float32frombits(uint32(w)), true
}

// Get returns the last stored reading. ok is false when there is none.
func (m *MeasuredValue) Get() (v float32, ok bool) {
	return unpack(m.word.Load())
}

// Set stores a reading, or clears it when ok is false. It reports whether the
// value changed. Equal readings, including two absent ones, are a no-op.
func (m *MeasuredValue) Set(v float32, ok bool) bool {
	oldV, oldOK := m.Get()
	if oldOK == ok && (!ok || oldV == v) {
		return false
	}
	m.word.Store(pack(v, ok))
	m.dataver.Changed()
	return true
}
