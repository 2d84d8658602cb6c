// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package regwin exposes a block of memory mapped device registers as a
// capability that only allows offset-validated accesses.
//
// A Window never hands out the underlying memory. Every access is checked for
// bounds and natural alignment, so a driver bug results in an error instead of
// a stray write into the device or the process address space.
//
// Two implementations are provided: Mapped, which maps a PCI BAR resource file
// exposed by sysfs, and Memory, a plain byte buffer used to fake hardware in
// tests.
package regwin

import (
	"errors"
	"fmt"
)

// Window is a fixed size register block.
//
// 32 bits accesses are performed as a single aligned load or store, so a
// reader never observes a partially written word.
type Window interface {
	// Size returns the size of the window in bytes.
	Size() int
	// ReadUint8 reads the byte register at offset off.
	ReadUint8(off int) (uint8, error)
	// WriteUint8 writes the byte register at offset off.
	WriteUint8(off int, v uint8) error
	// ReadUint32 reads the 32 bits register at offset off. off must be 4 bytes
	// aligned.
	ReadUint32(off int) (uint32, error)
	// WriteUint32 writes the 32 bits register at offset off. off must be 4
	// bytes aligned.
	WriteUint32(off int, v uint32) error
	// Close releases the window. Any access after Close fails with ErrClosed.
	Close() error
}

var (
	// ErrOutOfRange is returned when an access falls outside the window.
	ErrOutOfRange = errors.New("regwin: access out of range")
	// ErrUnaligned is returned when an access is not naturally aligned.
	ErrUnaligned = errors.New("regwin: unaligned access")
	// ErrClosed is returned when accessing a released window.
	ErrClosed = errors.New("regwin: window is closed")
	// ErrUnavailable is returned when the register region cannot be claimed,
	// for example because it is already in use or access is denied.
	ErrUnavailable = errors.New("regwin: region unavailable")
	// ErrNoMemory is returned when the host ran out of resources to map the
	// region.
	ErrNoMemory = errors.New("regwin: out of memory")
)

// check validates an access of width bytes at offset off in a window of size
// bytes.
func check(size, off, width int) error {
	if off < 0 || off > size-width {
		return fmt.Errorf("%w: %d bytes at %#x in a %d bytes window", ErrOutOfRange, width, off, size)
	}
	if off%width != 0 {
		return fmt.Errorf("%w: %d bytes at %#x", ErrUnaligned, width, off)
	}
	return nil
}
