//go:build !linux

package hal

// LinuxI2C is unavailable off Linux.
type LinuxI2C struct{}

// OpenI2C fails with ErrUnsupported.
func OpenI2C(int) (*LinuxI2C, error) {
	return nil, ErrUnsupported
}

// Write fails with ErrUnsupported.
func (*LinuxI2C) Write(uint16, []byte) error { return ErrUnsupported }

// Read fails with ErrUnsupported.
func (*LinuxI2C) Read(uint16, []byte) error { return ErrUnsupported }

// Close does nothing.
func (*LinuxI2C) Close() error { return nil }

var _ I2CBus = (*LinuxI2C)(nil)
