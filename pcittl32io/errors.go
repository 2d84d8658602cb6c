// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import "errors"

var (
	// ErrInvalidWindowSize is returned by Attach when BAR0 is not exactly 256
	// bytes.
	ErrInvalidWindowSize = errors.New("pcittl32io: register window must be 256 bytes")
	// ErrMappingUnavailable is returned by Attach when BAR0 cannot be claimed or
	// mapped.
	ErrMappingUnavailable = errors.New("pcittl32io: register window unavailable")
	// ErrAllocationFailure is returned by Attach when the host ran out of
	// resources.
	ErrAllocationFailure = errors.New("pcittl32io: allocation failure")
	// ErrUnsupportedDevice is returned by Attach for a PCI function that is not
	// a PCITTL32IO.
	ErrUnsupportedDevice = errors.New("pcittl32io: unsupported device")
	// ErrInvalidLine is returned by line operations for an index outside
	// [0, 31]. The registers are not touched.
	ErrInvalidLine = errors.New("pcittl32io: invalid line")
	// ErrDetached is returned once the device was detached.
	ErrDetached = errors.New("pcittl32io: device detached")
)
