package eeprom

import (
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStartsErased(t *testing.T) {
	m := NewMemory(16)
	b, err := m.ReadBlock(0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, b)
}

func TestMemoryWriteRead(t *testing.T) {
	m := NewMemory(16)
	require.NoError(t, m.WriteBlock(4, []byte{1, 2, 3}))
	b, err := m.ReadBlock(4, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, 1, m.Writes())
}

func TestMemoryRange(t *testing.T) {
	m := NewMemory(4)
	_, err := m.ReadBlock(2, 3)
	assert.True(t, eris.Is(err, ErrOutOfRange))
	assert.True(t, eris.Is(m.WriteBlock(-1, []byte{0}), ErrOutOfRange))
}

func TestMemoryFailWrites(t *testing.T) {
	m := NewMemory(4)
	m.FailWrites(true)
	assert.ErrorIs(t, m.WriteBlock(0, []byte{1}), ErrWriteFailed)
	assert.Equal(t, 0, m.Writes())
	m.FailWrites(false)
	assert.NoError(t, m.WriteBlock(0, []byte{1}))
}

func TestFileMissingReadsErased(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "lamp.eeprom"), 8)
	b, err := f.ReadBlock(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF}, b)
}

func TestFilePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamp.eeprom")

	require.NoError(t, NewFile(path, 8).WriteBlock(1, []byte{0xAB, 0xCD}))

	b, err := NewFile(path, 8).ReadBlock(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xAB, 0xCD, 0xFF}, b)
}
