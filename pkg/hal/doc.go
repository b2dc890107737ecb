// Package hal defines the hardware collaborators of the device and their
// implementations.
//
// Three interfaces cover everything the polling activity touches:
//
//   - I2CBus: raw write and read transactions addressed by 7-bit address
//   - InputPin: a push button, true while pressed
//   - Indicator: a single addressable colour LED
//
// On a Raspberry Pi the bus is the kernel i2c-dev interface, the button is a
// GPIO with pull-up through go-rpio and the LED is a WS2812 driven from the
// SPI MOSI line. The simulation implementations let the device run on a
// desktop and in tests.
package hal
