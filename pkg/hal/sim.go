package hal

import (
	"sync"
	"sync/atomic"
)

// SimButton is an InputPin driven from code, for simulation mode and tests.
type SimButton struct {
	pressed atomic.Bool
	err     atomic.Pointer[error]
}

// NewSimButton creates a released button.
func NewSimButton() *SimButton {
	return &SimButton{}
}

// Press holds the button down.
func (b *SimButton) Press() { b.pressed.Store(true) }

// Release lets the button go.
func (b *SimButton) Release() { b.pressed.Store(false) }

// FailWith makes Read return err. A nil err clears the failure.
func (b *SimButton) FailWith(err error) {
	if err == nil {
		b.err.Store(nil)
		return
	}
	b.err.Store(&err)
}

// Read implements InputPin.
func (b *SimButton) Read() (bool, error) {
	if e := b.err.Load(); e != nil {
		return false, *e
	}
	return b.pressed.Load(), nil
}

// SimIndicator records every colour shown.
type SimIndicator struct {
	mu      sync.Mutex
	history []uint32
	err     error
}

// NewSimIndicator creates an indicator with an empty history.
func NewSimIndicator() *SimIndicator {
	return &SimIndicator{}
}

// FailWith makes Show return err. A nil err clears the failure.
func (s *SimIndicator) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Show implements Indicator.
func (s *SimIndicator) Show(color uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.history = append(s.history, color)
	return nil
}

// Last returns the most recent colour and whether any was shown.
func (s *SimIndicator) Last() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return 0, false
	}
	return s.history[len(s.history)-1], true
}

// History returns a copy of every colour shown, oldest first.
func (s *SimIndicator) History() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, len(s.history))
	copy(out, s.history)
	return out
}

var (
	_ InputPin  = (*SimButton)(nil)
	_ Indicator = (*SimIndicator)(nil)
)
