package hal

import "errors"

// HAL errors.
var (
	ErrClosed      = errors.New("hal: device closed")
	ErrNoDevice    = errors.New("hal: no device at address")
	ErrUnsupported = errors.New("hal: not supported on this platform")
)

// I2CBus is an I2C master. Each call is one complete transaction.
type I2CBus interface {
	Write(addr uint16, data []byte) error
	Read(addr uint16, buf []byte) error
}

// InputPin is a digital input. Read reports true while the line is pulled
// low, which for the button wiring means pressed.
type InputPin interface {
	Read() (bool, error)
}

// Indicator shows a 24-bit 0xRRGGBB colour.
type Indicator interface {
	Show(color uint32) error
}
