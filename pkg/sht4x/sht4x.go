// Package sht4x talks to Sensirion SHT4x temperature and humidity sensors.
//
// A measurement is a two-step transaction: a one-byte command starts the
// conversion, and after the settle delay a six-byte read returns the raw
// temperature word, its CRC, the raw humidity word and its CRC.
package sht4x

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/hal"
)

// Bus address and commands.
const (
	DefaultAddress uint16 = 0x44

	CmdSoftReset            byte = 0x94
	CmdMeasureHighPrecision byte = 0xFD
)

// SettleDelay is the wait between the measure command and the read.
const SettleDelay = 10 * time.Millisecond

// ReadLength is the size of a measurement response.
const ReadLength = 6

// ErrCRC is returned when CRC checking is enabled and a word fails it.
var ErrCRC = errors.New("sht4x: crc mismatch")

// Measurement is one decoded reading.
type Measurement struct {
	// Temperature in degrees Celsius.
	Temperature float32

	// Humidity in %RH, clamped to [0, 100].
	Humidity float32
}

// Config configures a Sensor.
type Config struct {
	// Address is the 7-bit bus address (default 0x44).
	Address uint16

	// VerifyCRC rejects responses whose CRC bytes do not match.
	VerifyCRC bool

	// Settle overrides SettleDelay.
	Settle time.Duration
}

// Sensor is an SHT4x on an I2C bus.
type Sensor struct {
	bus    hal.I2CBus
	addr   uint16
	crc    bool
	settle time.Duration
}

// New creates a sensor on bus.
func New(bus hal.I2CBus, cfg Config) *Sensor {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.Settle == 0 {
		cfg.Settle = SettleDelay
	}
	return &Sensor{bus: bus, addr: cfg.Address, crc: cfg.VerifyCRC, settle: cfg.Settle}
}

// Address returns the bus address.
func (s *Sensor) Address() uint16 { return s.addr }

// Reset issues a soft reset.
func (s *Sensor) Reset() error {
	if err := s.bus.Write(s.addr, []byte{CmdSoftReset}); err != nil {
		return fmt.Errorf("sht4x reset: %w", err)
	}
	return nil
}

// RequestMeasurement starts a high precision conversion.
func (s *Sensor) RequestMeasurement() error {
	if err := s.bus.Write(s.addr, []byte{CmdMeasureHighPrecision}); err != nil {
		return fmt.Errorf("sht4x measure: %w", err)
	}
	return nil
}

// ReadMeasurement reads and decodes the result of the last conversion.
func (s *Sensor) ReadMeasurement() (Measurement, error) {
	var buf [ReadLength]byte
	if err := s.bus.Read(s.addr, buf[:]); err != nil {
		return Measurement{}, fmt.Errorf("sht4x read: %w", err)
	}
	if s.crc {
		if err := CheckCRC(buf); err != nil {
			return Measurement{}, err
		}
	}
	return Decode(buf), nil
}

// Measure runs the complete transaction. The settle wait ends early when
// ctx is cancelled.
func (s *Sensor) Measure(ctx context.Context) (Measurement, error) {
	if err := s.RequestMeasurement(); err != nil {
		return Measurement{}, err
	}

	t := time.NewTimer(s.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Measurement{}, ctx.Err()
	case <-t.C:
	}

	return s.ReadMeasurement()
}

// Decode converts a raw response. CRC bytes are ignored.
func Decode(buf [ReadLength]byte) Measurement {
	rawT := binary.BigEndian.Uint16(buf[0:2])
	rawRH := binary.BigEndian.Uint16(buf[3:5])
	return Measurement{
		Temperature: RawToCelsius(rawT),
		Humidity:    RawToHumidity(rawRH),
	}
}

// RawToCelsius converts a raw temperature word.
func RawToCelsius(raw uint16) float32 {
	return float32(raw)*175/65535 - 45
}

// RawToHumidity converts a raw humidity word, clamping to [0, 100].
func RawToHumidity(raw uint16) float32 {
	rh := float32(raw)*125/65535 - 6
	return min(max(rh, 0), 100)
}

// CelsiusToRaw is the inverse of RawToCelsius, saturating at the word range.
func CelsiusToRaw(c float32) uint16 {
	return toWord((float64(c) + 45) * 65535 / 175)
}

// HumidityToRaw is the inverse of RawToHumidity for values in [0, 100].
func HumidityToRaw(rh float32) uint16 {
	return toWord((float64(rh) + 6) * 65535 / 125)
}

func toWord(v float64) uint16 {
	v = math.Round(v)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(v)
	}
}
