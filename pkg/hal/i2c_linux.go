//go:build linux

package hal

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// i2cSlave is the i2c-dev ioctl that sets the target address (linux/i2c-dev.h).
const i2cSlave = 0x0703

// LinuxI2C is an I2CBus on a kernel i2c-dev character device.
type LinuxI2C struct {
	mu   sync.Mutex
	fd   int
	path string
	addr int
}

// OpenI2C opens /dev/i2c-<bus>.
func OpenI2C(bus int) (*LinuxI2C, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &LinuxI2C{fd: fd, path: path, addr: -1}, nil
}

// setAddr must be called with mu held.
func (b *LinuxI2C) setAddr(addr uint16) error {
	if b.fd < 0 {
		return ErrClosed
	}
	if b.addr == int(addr) {
		return nil
	}
	if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("%s: select 0x%02X: %w", b.path, addr, err)
	}
	b.addr = int(addr)
	return nil
}

// Write sends data to addr in one transaction.
func (b *LinuxI2C) Write(addr uint16, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setAddr(addr); err != nil {
		return err
	}
	n, err := unix.Write(b.fd, data)
	if err != nil {
		if errors.Is(err, unix.EREMOTEIO) || errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%w 0x%02X: %v", ErrNoDevice, addr, err)
		}
		return fmt.Errorf("%s: write 0x%02X: %w", b.path, addr, err)
	}
	if n != len(data) {
		return fmt.Errorf("%s: short write to 0x%02X: %d of %d bytes", b.path, addr, n, len(data))
	}
	return nil
}

// Read fills buf from addr in one transaction.
func (b *LinuxI2C) Read(addr uint16, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setAddr(addr); err != nil {
		return err
	}
	n, err := unix.Read(b.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EREMOTEIO) || errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%w 0x%02X: %v", ErrNoDevice, addr, err)
		}
		return fmt.Errorf("%s: read 0x%02X: %w", b.path, addr, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%s: short read from 0x%02X: %d of %d bytes", b.path, addr, n, len(buf))
	}
	return nil
}

// Close releases the device. Further calls fail with ErrClosed.
func (b *LinuxI2C) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

var _ I2CBus = (*LinuxI2C)(nil)
