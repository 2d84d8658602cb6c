// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uio delivers the interrupts of a device bound to a Linux userspace
// I/O driver, like uio_pci_generic, to a Go handler.
//
// Reading the /dev/uioN character device blocks until the next interrupt and
// returns the total interrupt count. Writing a 32 bits 1 re-enables the
// interrupt line, which the kernel masks after each delivery.
//
// https://www.kernel.org/doc/html/latest/driver-api/uio-howto.html
package uio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// pollMS bounds how long Serve waits before checking its context again.
const pollMS = 100

// source is the interrupt event source. It is implemented by Device and
// mocked in tests.
type source interface {
	// enable unmasks the interrupt line.
	enable() error
	// wait waits for at most timeoutMS for an interrupt. Returns the total
	// interrupt count and true if one occurred.
	wait(timeoutMS int) (uint32, bool, error)
}

// Stats counts the interrupts handled by Serve.
type Stats struct {
	// Handled is the number of handler calls.
	Handled uint64
	// Missed is the number of interrupts coalesced into a previous handler
	// call, as reported by the kernel counter.
	Missed uint64
}

func serve(ctx context.Context, s source, st *stats, handler func()) error {
	first := true
	var last uint32
	for {
		if err := s.enable(); err != nil {
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("uio: enable: %w", err)
		}
		for {
			if ctx.Err() != nil {
				return nil
			}
			count, ok, err := s.wait(pollMS)
			if err != nil {
				if errors.Is(err, os.ErrClosed) {
					return nil
				}
				return fmt.Errorf("uio: wait: %w", err)
			}
			if !ok {
				continue
			}
			if !first && count-last > 1 {
				atomic.AddUint64(&st.missed, uint64(count-last-1))
			}
			first = false
			last = count
			break
		}
		handler()
		atomic.AddUint64(&st.handled, 1)
	}
}

type stats struct {
	handled uint64
	missed  uint64
}

func (s *stats) get() Stats {
	return Stats{Handled: atomic.LoadUint64(&s.handled), Missed: atomic.LoadUint64(&s.missed)}
}
