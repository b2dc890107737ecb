package hal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimButton(t *testing.T) {
	b := NewSimButton()

	pressed, err := b.Read()
	require.NoError(t, err)
	assert.False(t, pressed)

	b.Press()
	pressed, _ = b.Read()
	assert.True(t, pressed)

	b.Release()
	pressed, _ = b.Read()
	assert.False(t, pressed)

	fault := errors.New("gpio fault")
	b.FailWith(fault)
	_, err = b.Read()
	assert.ErrorIs(t, err, fault)

	b.FailWith(nil)
	_, err = b.Read()
	assert.NoError(t, err)
}

func TestSimIndicator(t *testing.T) {
	ind := NewSimIndicator()
	_, ok := ind.Last()
	assert.False(t, ok)

	require.NoError(t, ind.Show(0xFFFFFF))
	require.NoError(t, ind.Show(0x000000))

	last, ok := ind.Last()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), last)
	assert.Equal(t, []uint32{0xFFFFFF, 0x000000}, ind.History())

	ind.FailWith(ErrClosed)
	assert.ErrorIs(t, ind.Show(1), ErrClosed)
	assert.Len(t, ind.History(), 2)
}
