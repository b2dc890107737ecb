package hal

import (
	"fmt"
	"sync"

	rpio "github.com/stianeikeland/go-rpio/v4"

	"github.com/mash-protocol/mash-sensor/pkg/ws2812"
)

var (
	gpioMu   sync.Mutex
	gpioRefs int
)

// OpenGPIO maps the Raspberry Pi GPIO registers. Calls are reference
// counted; each successful call must be paired with CloseGPIO.
func OpenGPIO() error {
	gpioMu.Lock()
	defer gpioMu.Unlock()
	if gpioRefs == 0 {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("open gpio: %w", err)
		}
	}
	gpioRefs++
	return nil
}

// CloseGPIO releases one OpenGPIO reference.
func CloseGPIO() error {
	gpioMu.Lock()
	defer gpioMu.Unlock()
	if gpioRefs == 0 {
		return nil
	}
	gpioRefs--
	if gpioRefs == 0 {
		return rpio.Close()
	}
	return nil
}

// GPIOButton is a push button between a GPIO and ground, read with the
// internal pull-up enabled.
type GPIOButton struct {
	pin rpio.Pin
}

// NewGPIOButton configures BCM pin as a pulled-up input. OpenGPIO must have
// been called.
func NewGPIOButton(pin int) *GPIOButton {
	p := rpio.Pin(pin)
	p.Input()
	p.PullUp()
	return &GPIOButton{pin: p}
}

// Read reports true while the line is low.
func (b *GPIOButton) Read() (bool, error) {
	return b.pin.Read() == rpio.Low, nil
}

// SPIIndicator drives one WS2812 from the SPI0 MOSI line.
type SPIIndicator struct {
	mu   sync.Mutex
	open bool
}

// OpenSPIIndicator starts SPI0 at the WS2812 symbol rate.
func OpenSPIIndicator() (*SPIIndicator, error) {
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return nil, fmt.Errorf("begin spi0: %w", err)
	}
	rpio.SpiSpeed(ws2812.SPIClockHz)
	rpio.SpiChipSelect(0)
	return &SPIIndicator{open: true}, nil
}

// Show clocks out color and the reset latch.
func (s *SPIIndicator) Show(color uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrClosed
	}
	rpio.SpiTransmit(ws2812.SPIFrame(color)...)
	return nil
}

// Close ends SPI0.
func (s *SPIIndicator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		rpio.SpiEnd(rpio.Spi0)
		s.open = false
	}
	return nil
}

var (
	_ InputPin  = (*GPIOButton)(nil)
	_ Indicator = (*SPIIndicator)(nil)
)
