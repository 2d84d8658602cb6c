// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"
)

// Group is the bank of the 32 lines of a card, read and written as one 32 bits
// word. Bit n of a value is line n.
//
// Out does not change the direction of the lines: groups written to must have
// been switched to output first, via Pin.Out or Chip.SetDirectionOutput.
//
// Group implements gpio.Group.
type Group struct {
	name string
	chip *Chip
	pins []*Pin
	halt haltSignal
}

func newGroup(name string, c *Chip, pins []*Pin) *Group {
	return &Group{name: name, chip: c, pins: pins}
}

// String implements conn.Resource.
func (g *Group) String() string {
	return g.name
}

// LineCount returns the number of lines in the group.
func (g *Group) LineCount() int {
	return len(g.pins)
}

// Pins implements gpio.Group.
func (g *Group) Pins() []pin.Pin {
	out := make([]pin.Pin, len(g.pins))
	for i, p := range g.pins {
		out[i] = p
	}
	return out
}

// ByOffset implements gpio.Group.
func (g *Group) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(g.pins) {
		return nil
	}
	return g.pins[offset]
}

// ByName implements gpio.Group.
//
// Both the full name "PCITTL32IO.IO5" and the short name "IO5" are accepted.
func (g *Group) ByName(name string) pin.Pin {
	for _, p := range g.pins {
		if p.Name() == name || lineName(p.num) == name {
			return p
		}
	}
	return nil
}

// ByNumber implements gpio.Group.
func (g *Group) ByNumber(number int) pin.Pin {
	// Offsets and line numbers are the same.
	return g.ByOffset(number)
}

// Out implements gpio.Group.
//
// mask selects the lines to change; the others keep their level. If mask is 0,
// all the lines are written.
func (g *Group) Out(bits, mask gpio.GPIOValue) error {
	m := uint32(mask)
	if m == 0 {
		m = allLines
	}
	return g.chip.SetMultiple(^m, uint32(bits)&m)
}

// Read implements gpio.Group.
//
// mask selects the lines to read. If mask is 0, all the lines are read.
func (g *Group) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	m := uint32(mask)
	if m == 0 {
		m = allLines
	}
	v, err := g.chip.GetMultiple(m)
	return gpio.GPIOValue(v), err
}

// WaitForEdge implements gpio.Group.
//
// It returns the lowest line that changed level after an interrupt. On timeout
// or Halt, edge is gpio.NoEdge and err is nil. Use -1 to wait forever.
func (g *Group) WaitForEdge(timeout time.Duration) (number int, edge gpio.Edge, err error) {
	if !g.chip.HasInterrupt() {
		return 0, gpio.NoEdge, errors.New("pcittl32io: edge detection requires an interrupt source")
	}
	return g.chip.waitEdge(allLines, allLines, timeout, g.halt.get())
}

// Halt implements gpio.Group.
//
// It interrupts the WaitForEdge calls in progress.
func (g *Group) Halt() error {
	g.halt.fire()
	return nil
}

var _ gpio.Group = &Group{}
