package sht4x

import (
	"fmt"
	"sync"

	"github.com/mash-protocol/mash-sensor/pkg/hal"
)

// Simulator is an I2C bus with one SHT4x on it. It answers the measure and
// reset commands with the configured reading and lets tests inject bus
// failures.
type Simulator struct {
	mu sync.Mutex

	addr     uint16
	raw      [ReadLength]byte
	armed    bool
	resets   int
	measures int

	writeErr error
	readErr  error
}

// NewSimulator creates a simulator at DefaultAddress reading celsius and rh.
func NewSimulator(celsius, rh float32) *Simulator {
	s := &Simulator{addr: DefaultAddress}
	s.Set(celsius, rh)
	return s
}

// Set changes the reading returned by later measurements.
func (s *Simulator) Set(celsius, rh float32) {
	s.SetRaw(Encode(CelsiusToRaw(celsius), HumidityToRaw(rh)))
}

// SetRaw sets the exact response bytes.
func (s *Simulator) SetRaw(raw [ReadLength]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
}

// FailWrites makes writes fail with err until cleared with nil.
func (s *Simulator) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailReads makes reads fail with err until cleared with nil.
func (s *Simulator) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// Resets returns the number of soft resets received.
func (s *Simulator) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Measures returns the number of measure commands received.
func (s *Simulator) Measures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measures
}

// Write implements hal.I2CBus.
func (s *Simulator) Write(addr uint16, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.addr {
		return fmt.Errorf("%w 0x%02X", hal.ErrNoDevice, addr)
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	if len(data) != 1 {
		return fmt.Errorf("sht4x sim: unexpected %d byte write", len(data))
	}
	switch data[0] {
	case CmdSoftReset:
		s.resets++
		s.armed = false
	case CmdMeasureHighPrecision:
		s.measures++
		s.armed = true
	default:
		return fmt.Errorf("sht4x sim: unknown command 0x%02X", data[0])
	}
	return nil
}

// Read implements hal.I2CBus. A read without a pending measurement is
// NACKed like the real part does.
func (s *Simulator) Read(addr uint16, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.addr {
		return fmt.Errorf("%w 0x%02X", hal.ErrNoDevice, addr)
	}
	if s.readErr != nil {
		// A NACKed read still consumes the conversion.
		s.armed = false
		return s.readErr
	}
	if !s.armed {
		return fmt.Errorf("%w 0x%02X: no measurement pending", hal.ErrNoDevice, addr)
	}
	s.armed = false
	copy(buf, s.raw[:])
	return nil
}

var _ hal.I2CBus = (*Simulator)(nil)
