// Package ws2812 encodes colours for WS2812 addressable LEDs.
//
// A WS2812 takes 24 bits, most significant bit first, each bit a high pulse
// followed by a low pulse whose lengths tell a 0 from a 1. The package gives
// the timing as a pulse train and as an SPI byte stream that reproduces it
// when clocked out at SPIClockHz.
package ws2812

import (
	"errors"
	"fmt"
	"time"
)

// Bit timing.
const (
	T0H = 350 * time.Nanosecond
	T0L = 800 * time.Nanosecond
	T1H = 700 * time.Nanosecond
	T1L = 600 * time.Nanosecond
)

// BitsPerColor is the number of data bits per LED.
const BitsPerColor = 24

// SPI encoding: every data bit becomes three SPI bits, 1 as 110 and 0 as 100.
// At 2.4 MHz an SPI bit lasts about 417 ns, which keeps both symbols inside
// the WS2812 tolerance window.
const (
	SPIClockHz     = 2_400_000
	spiBitsPerBit  = 3
	spiOne         = 0b110
	spiZero        = 0b100
	SPIDataBytes   = BitsPerColor * spiBitsPerBit / 8
	SPIResetBytes  = 96
	SPIFrameLength = SPIDataBytes + SPIResetBytes
)

// ErrInvalidFrame is returned when an SPI frame does not decode to a colour.
var ErrInvalidFrame = errors.New("ws2812: invalid SPI frame")

// Pulse is one encoded bit: the line is high for High, then low for Low.
type Pulse struct {
	High time.Duration
	Low  time.Duration
}

var (
	zeroPulse = Pulse{High: T0H, Low: T0L}
	onePulse  = Pulse{High: T1H, Low: T1L}
)

// Encode returns the pulse train for the low 24 bits of color, MSB first.
func Encode(color uint32) [BitsPerColor]Pulse {
	var train [BitsPerColor]Pulse
	for i := range BitsPerColor {
		if color&(1<<(BitsPerColor-1-i)) != 0 {
			train[i] = onePulse
		} else {
			train[i] = zeroPulse
		}
	}
	return train
}

// Duration returns the time a pulse train takes on the line.
func Duration(train [BitsPerColor]Pulse) time.Duration {
	var d time.Duration
	for _, p := range train {
		d += p.High + p.Low
	}
	return d
}

// SPIFrame returns the SPI bytes for color followed by the low reset latch.
func SPIFrame(color uint32) []byte {
	frame := make([]byte, SPIFrameLength)
	var acc uint32
	var nbits, pos int
	for i := range BitsPerColor {
		sym := uint32(spiZero)
		if color&(1<<(BitsPerColor-1-i)) != 0 {
			sym = spiOne
		}
		acc = acc<<spiBitsPerBit | sym
		nbits += spiBitsPerBit
		for nbits >= 8 {
			nbits -= 8
			frame[pos] = byte(acc >> nbits)
			pos++
		}
	}
	return frame
}

// DecodeSPI recovers the colour from the data bytes of an SPI frame.
func DecodeSPI(frame []byte) (uint32, error) {
	if len(frame) < SPIDataBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(frame))
	}
	var color uint32
	for i := range BitsPerColor {
		var sym byte
		for j := range spiBitsPerBit {
			bit := i*spiBitsPerBit + j
			sym = sym<<1 | (frame[bit/8]>>(7-bit%8))&1
		}
		switch sym {
		case spiOne:
			color = color<<1 | 1
		case spiZero:
			color <<= 1
		default:
			return 0, fmt.Errorf("%w: symbol %03b at bit %d", ErrInvalidFrame, sym, i)
		}
	}
	return color, nil
}
