// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !windows

package regwin

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapped is a Window over a memory mapped resource file, typically
// /sys/bus/pci/devices/<addr>/resource<n>.
//
// The owner must guarantee that no access is in flight when Close is called;
// the mapping is gone afterward.
type Mapped struct {
	path string
	f    *os.File
	mem  []byte
}

// Map maps the whole resource file at path for read and write access.
//
// The returned window size is the size of the file, which for a PCI resource
// file is the BAR length.
func Map(path string) (*Mapped, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, wrapMapErr(path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, wrapMapErr(path, err)
	}
	size := fi.Size()
	if size <= 0 {
		_ = f.Close()
		return nil, fmt.Errorf("regwin: map %s: %w: empty resource", path, ErrUnavailable)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, wrapMapErr(path, err)
	}
	return &Mapped{path: path, f: f, mem: mem}, nil
}

// String returns the path of the mapped resource.
func (m *Mapped) String() string {
	return m.path
}

// Size implements Window.
func (m *Mapped) Size() int {
	return len(m.mem)
}

// ReadUint8 implements Window.
func (m *Mapped) ReadUint8(off int) (uint8, error) {
	if err := m.check(off, 1); err != nil {
		return 0, err
	}
	return m.mem[off], nil
}

// WriteUint8 implements Window.
func (m *Mapped) WriteUint8(off int, v uint8) error {
	if err := m.check(off, 1); err != nil {
		return err
	}
	m.mem[off] = v
	return nil
}

// ReadUint32 implements Window.
func (m *Mapped) ReadUint32(off int) (uint32, error) {
	if err := m.check(off, 4); err != nil {
		return 0, err
	}
	return atomic.LoadUint32(m.word(off)), nil
}

// WriteUint32 implements Window.
func (m *Mapped) WriteUint32(off int, v uint32) error {
	if err := m.check(off, 4); err != nil {
		return err
	}
	atomic.StoreUint32(m.word(off), v)
	return nil
}

// Close implements Window.
func (m *Mapped) Close() error {
	if m.mem == nil {
		return ErrClosed
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	if err2 := m.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return fmt.Errorf("regwin: unmap %s: %w", m.path, err)
	}
	return nil
}

func (m *Mapped) check(off, width int) error {
	if m.mem == nil {
		return ErrClosed
	}
	return check(len(m.mem), off, width)
}

// word returns the address of the 32 bits register at off. off must have been
// validated.
func (m *Mapped) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mem[off]))
}

func wrapMapErr(path string, err error) error {
	if errors.Is(err, unix.ENOMEM) {
		return fmt.Errorf("regwin: map %s: %w: %w", path, ErrNoMemory, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("regwin: map %s: %w: need more access, try as root or setup udev rules: %w", path, ErrUnavailable, err)
	}
	return fmt.Errorf("regwin: map %s: %w: %w", path, ErrUnavailable, err)
}

var _ Window = &Mapped{}
