// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package regwin

import (
	"encoding/binary"
	"sync"
)

// Memory is a Window backed by a byte buffer.
//
// It behaves like a device whose registers read back what was last written,
// which makes it suitable to emulate hardware in tests. Registers are little
// endian, like on the PCI bus.
type Memory struct {
	mu     sync.Mutex
	b      []byte
	closed bool
}

// NewMemory returns a zero initialized Memory window of size bytes.
func NewMemory(size int) *Memory {
	return &Memory{b: make([]byte, size)}
}

// Size implements Window.
func (m *Memory) Size() int {
	return len(m.b)
}

// ReadUint8 implements Window.
func (m *Memory) ReadUint8(off int) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(off, 1); err != nil {
		return 0, err
	}
	return m.b[off], nil
}

// WriteUint8 implements Window.
func (m *Memory) WriteUint8(off int, v uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(off, 1); err != nil {
		return err
	}
	m.b[off] = v
	return nil
}

// ReadUint32 implements Window.
func (m *Memory) ReadUint32(off int) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.b[off:]), nil
}

// WriteUint32 implements Window.
func (m *Memory) WriteUint32(off int, v uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(off, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.b[off:], v)
	return nil
}

// Close implements Window.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) checkLocked(off, width int) error {
	if m.closed {
		return ErrClosed
	}
	return check(len(m.b), off, width)
}

var _ Window = &Memory{}
