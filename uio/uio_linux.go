// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Device is an opened /dev/uioN node.
type Device struct {
	path string
	st   stats

	mu sync.Mutex
	f  *os.File
	fd int
}

// Open opens the UIO character device at path.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("uio: need more access, try as root or setup udev rules: %w", err)
		}
		return nil, fmt.Errorf("uio: %w", err)
	}
	return &Device{path: path, f: f, fd: int(f.Fd())}, nil
}

// String returns the path of the device node.
func (d *Device) String() string {
	return d.path
}

// Serve calls handler for every interrupt until ctx is canceled or the device
// is closed.
//
// handler is called from the Serve goroutine; the interrupt line stays masked
// until it returns.
func (d *Device) Serve(ctx context.Context, handler func()) error {
	return serve(ctx, d, &d.st, handler)
}

// Stats returns the interrupt counters.
func (d *Device) Stats() Stats {
	return d.st.get()
}

// Close closes the device node. A pending Serve returns shortly after.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return os.ErrClosed
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func (d *Device) enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return os.ErrClosed
	}
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], 1)
	_, err := d.f.Write(b[:])
	return err
}

func (d *Device) wait(timeoutMS int) (uint32, bool, error) {
	d.mu.Lock()
	if d.f == nil {
		d.mu.Unlock()
		return 0, false, os.ErrClosed
	}
	fd := d.fd
	d.mu.Unlock()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMS)
	if err == unix.EINTR || n == 0 {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return 0, false, os.ErrClosed
	}
	var b [4]byte
	if _, err := d.f.Read(b[:]); err != nil {
		return 0, false, err
	}
	return binary.NativeEndian.Uint32(b[:]), true, nil
}
