// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"math/bits"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/quancom/regwin"
)

// IRQReturn is the status returned by an interrupt handler.
type IRQReturn int

const (
	IRQNone IRQReturn = iota
	IRQHandled
)

func (r IRQReturn) String() string {
	if r == IRQHandled {
		return "Handled"
	}
	return "None"
}

// HandleInterrupt acknowledges a pending interrupt and re-arms the card.
//
// It only writes the interrupt enable register and never blocks for longer
// than a concurrent register access. It always returns IRQHandled, shared
// interrupt lines are not disambiguated.
//
// Goroutines blocked in WaitForEdge are woken up after the acknowledgment.
func (c *Chip) HandleInterrupt() IRQReturn {
	c.mu.Lock()
	if w := c.w; w != nil {
		// The register trace logs, which is not allowed here.
		if l, ok := w.(*regwin.Log); ok {
			w = l.W
		}
		_ = w.WriteUint8(regIRQEnable, irqArm)
	}
	c.mu.Unlock()
	c.edges.broadcast()
	return IRQHandled
}

// edgeNotifier wakes up all the waiters on each interrupt.
type edgeNotifier struct {
	mu   sync.Mutex
	ch   chan struct{}
	done bool
}

// wait returns a channel closed on the next interrupt, or already closed if the
// chip was released.
func (e *edgeNotifier) wait() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ch == nil {
		e.ch = make(chan struct{})
		if e.done {
			close(e.ch)
		}
	}
	return e.ch
}

func (e *edgeNotifier) broadcast() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ch != nil && !e.done {
		close(e.ch)
		e.ch = nil
	}
}

func (e *edgeNotifier) shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	if e.ch != nil {
		close(e.ch)
	}
}

// waitEdge blocks until an interrupt is followed by a transition on one of the
// lines selected by rising or falling.
//
// Transitions are detected by comparing the state word before and after each
// interrupt, so a pulse shorter than the interrupt latency is missed.
//
// A negative timeout waits forever. On timeout or halt, it returns NoEdge and
// no error. Otherwise it returns the lowest line that transitioned.
func (c *Chip) waitEdge(rising, falling uint32, timeout time.Duration, halt <-chan struct{}) (int, gpio.Edge, error) {
	var deadline <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	ch := c.edges.wait()
	prev, err := c.GetMultiple(allLines)
	if err != nil {
		return 0, gpio.NoEdge, err
	}
	for {
		select {
		case <-ch:
		case <-deadline:
			return 0, gpio.NoEdge, nil
		case <-halt:
			return 0, gpio.NoEdge, nil
		}
		ch = c.edges.wait()
		cur, err := c.GetMultiple(allLines)
		if err != nil {
			return 0, gpio.NoEdge, err
		}
		changed := prev ^ cur
		if hit := changed & (cur&rising | ^cur&falling); hit != 0 {
			line := bits.TrailingZeros32(hit)
			if cur&lineMask(line) != 0 {
				return line, gpio.RisingEdge, nil
			}
			return line, gpio.FallingEdge, nil
		}
		prev = cur
	}
}

// edgeMasks returns the rising and falling masks for the lines in mask.
func edgeMasks(mask uint32, edge gpio.Edge) (uint32, uint32) {
	switch edge {
	case gpio.RisingEdge:
		return mask, 0
	case gpio.FallingEdge:
		return 0, mask
	case gpio.BothEdges:
		return mask, mask
	default:
		return 0, 0
	}
}

// haltSignal interrupts the WaitForEdge calls in flight.
type haltSignal struct {
	mu sync.Mutex
	ch chan struct{}
}

func (h *haltSignal) get() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ch == nil {
		h.ch = make(chan struct{})
	}
	return h.ch
}

func (h *haltSignal) fire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ch != nil {
		close(h.ch)
		h.ch = nil
	}
}
