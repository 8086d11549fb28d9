// Package eeprom provides block storage backends for the persisted lamp
// config: an in-memory part and a file-backed image of one.
package eeprom

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/rotisserie/eris"
)

// DefaultSize matches the small EEPROM found on the lamp's microcontroller.
const DefaultSize = 256

// erased is the value of a cell that has never been written.
const erased = 0xFF

var (
	ErrOutOfRange  = eris.New("access outside eeprom")
	ErrWriteFailed = eris.New("eeprom write failed")
)

func checkRange(offset, size, capacity int) error {
	if offset < 0 || size < 0 || offset+size > capacity {
		return eris.Wrapf(ErrOutOfRange, "offset %d size %d capacity %d", offset, size, capacity)
	}
	return nil
}

// Memory is a volatile EEPROM used by the simulator and tests.
type Memory struct {
	mu     sync.Mutex
	cells  []byte
	writes int
	fail   bool
}

// NewMemory returns an erased part of the given size.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	return &Memory{cells: bytes.Repeat([]byte{erased}, size)}
}

// ReadBlock copies size bytes starting at offset.
func (m *Memory) ReadBlock(offset, size int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkRange(offset, size, len(m.cells)); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, m.cells[offset:])
	return out, nil
}

// WriteBlock stores data at offset.
func (m *Memory) WriteBlock(offset int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return ErrWriteFailed
	}
	if err := checkRange(offset, len(data), len(m.cells)); err != nil {
		return err
	}
	copy(m.cells[offset:], data)
	m.writes++
	return nil
}

// Writes returns how many successful writes the part has seen.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailWrites makes subsequent writes fail until called with false.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// File keeps an EEPROM image in a file so settings survive restarts of the
// host build. A missing file reads as an erased part.
type File struct {
	mu   sync.Mutex
	path string
	size int
}

// NewFile returns a file-backed part of the given size.
func NewFile(path string, size int) *File {
	if size <= 0 {
		size = DefaultSize
	}
	return &File{path: path, size: size}
}

func (f *File) image() ([]byte, error) {
	img := bytes.Repeat([]byte{erased}, f.size)
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return img, nil
		}
		return nil, eris.Wrapf(err, "read eeprom image %s", f.path)
	}
	copy(img, b)
	return img, nil
}

// ReadBlock copies size bytes starting at offset.
func (f *File) ReadBlock(offset, size int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkRange(offset, size, f.size); err != nil {
		return nil, err
	}
	img, err := f.image()
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, img[offset:])
	return out, nil
}

// WriteBlock stores data at offset, rewriting the image atomically.
func (f *File) WriteBlock(offset int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkRange(offset, len(data), f.size); err != nil {
		return err
	}
	img, err := f.image()
	if err != nil {
		return err
	}
	copy(img[offset:], data)

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, img, 0o644); err != nil {
		return eris.Wrapf(err, "write eeprom image %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return eris.Wrapf(err, "replace eeprom image %s", f.path)
	}
	return nil
}
