// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/quancom/regwin"
)

// Chip is the line controller of one card.
//
// The 32 lines share the same registers, so every access, including plain
// reads, is done with mu held. This serializes the read-modify-write
// sequences against each other and against HandleInterrupt.
type Chip struct {
	name  string
	edges edgeNotifier
	irq   atomic.Bool // an interrupt source is wired

	mu   sync.Mutex
	w    regwin.Window // nil once released
	edge [NumLines]gpio.Edge
}

func newChip(name string, w regwin.Window) *Chip {
	return &Chip{name: name, w: w}
}

// String implements conn.Resource.
func (c *Chip) String() string {
	return c.name
}

// Direction returns the direction of line's group.
func (c *Chip) Direction(line int) (Direction, error) {
	b, err := directionBit(line)
	if err != nil {
		return Input, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return Input, ErrDetached
	}
	v, err := c.w.ReadUint8(regDirection)
	if err != nil {
		return Input, err
	}
	if v&(1<<b) != 0 {
		return Output, nil
	}
	return Input, nil
}

// SetDirectionInput makes line's group an input.
//
// The 7 other lines of the group become inputs too. The state word is left
// untouched.
func (c *Chip) SetDirectionInput(line int) error {
	return c.setInput(line, gpio.NoEdge, false)
}

// setInput makes line's group an input. If setEdge is true, the edge
// detection of line is updated in the same critical section.
func (c *Chip) setInput(line int, edge gpio.Edge, setEdge bool) error {
	b, err := directionBit(line)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return ErrDetached
	}
	v, err := c.w.ReadUint8(regDirection)
	if err != nil {
		return err
	}
	if err := c.w.WriteUint8(regDirection, v&^(1<<b)); err != nil {
		return err
	}
	if setEdge {
		c.edge[line] = edge
	}
	return nil
}

// SetDirectionOutput makes line's group an output and drives line to l.
//
// The 7 other lines of the group become outputs too; their levels are not
// changed.
func (c *Chip) SetDirectionOutput(line int, l gpio.Level) error {
	b, err := directionBit(line)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return ErrDetached
	}
	v, err := c.w.ReadUint8(regDirection)
	if err != nil {
		return err
	}
	if err := c.w.WriteUint8(regDirection, v|1<<b); err != nil {
		return err
	}
	// Outputs don't report edges.
	for i := b * LinesPerGroup; i < (b+1)*LinesPerGroup; i++ {
		c.edge[i] = gpio.NoEdge
	}
	return c.setMultipleLocked(^lineMask(line), levelBits(line, l))
}

// Get returns the level of line.
func (c *Chip) Get(line int) (gpio.Level, error) {
	b, err := stateBit(line)
	if err != nil {
		return gpio.Low, err
	}
	v, err := c.GetMultiple(1 << b)
	return v != 0, err
}

// GetMultiple returns the state word masked with mask.
func (c *Chip) GetMultiple(mask uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return 0, ErrDetached
	}
	v, err := c.w.ReadUint32(regState)
	return v & mask, err
}

// Set drives line to l, leaving the other lines unchanged.
func (c *Chip) Set(line int, l gpio.Level) error {
	if _, err := stateBit(line); err != nil {
		return err
	}
	return c.SetMultiple(^lineMask(line), levelBits(line, l))
}

// SetMultiple replaces the state word with (current & mask) | bits.
//
// mask selects the bits to keep: to change lines 0 and 1 only, use
// mask=^uint32(3).
func (c *Chip) SetMultiple(mask, bits uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return ErrDetached
	}
	return c.setMultipleLocked(mask, bits)
}

// Snapshot returns the direction register and the state word, read together.
func (c *Chip) Snapshot() (uint8, uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return 0, 0, ErrDetached
	}
	d, err := c.w.ReadUint8(regDirection)
	if err != nil {
		return 0, 0, err
	}
	s, err := c.w.ReadUint32(regState)
	return d, s, err
}

// HasInterrupt returns true if an interrupt source delivers to this chip, which
// is needed for edge detection.
func (c *Chip) HasInterrupt() bool {
	return c.irq.Load()
}

//

func (c *Chip) setMultipleLocked(mask, bits uint32) error {
	v, err := c.w.ReadUint32(regState)
	if err != nil {
		return err
	}
	return c.w.WriteUint32(regState, composeWrite(v, mask, bits))
}

// writeDirection overwrites the direction register.
func (c *Chip) writeDirection(v uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return ErrDetached
	}
	return c.w.WriteUint8(regDirection, v)
}

// writeIRQEnable overwrites the interrupt enable register.
func (c *Chip) writeIRQEnable(v uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return ErrDetached
	}
	return c.w.WriteUint8(regIRQEnable, v)
}

// release detaches the window from the chip and returns it. All subsequent
// operations fail with ErrDetached.
func (c *Chip) release() regwin.Window {
	c.mu.Lock()
	w := c.w
	c.w = nil
	c.mu.Unlock()
	c.edges.shutdown()
	return w
}

// edgeOf returns the edge detection configured on line.
func (c *Chip) edgeOf(line int) gpio.Edge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edge[line]
}

func levelBits(line int, l gpio.Level) uint32 {
	if l {
		return lineMask(line)
	}
	return 0
}
