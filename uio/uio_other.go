// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package uio

import (
	"context"
	"errors"
	"os"
)

// Device is only supported on Linux.
type Device struct {
	st stats
}

// Open always fails outside of Linux.
func Open(path string) (*Device, error) {
	return nil, errors.New("uio: only supported on linux")
}

// String implements fmt.Stringer.
func (d *Device) String() string {
	return "uio"
}

// Serve implements the Linux API.
func (d *Device) Serve(ctx context.Context, handler func()) error {
	return os.ErrClosed
}

// Stats implements the Linux API.
func (d *Device) Stats() Stats {
	return d.st.get()
}

// Close implements the Linux API.
func (d *Device) Close() error {
	return os.ErrClosed
}
