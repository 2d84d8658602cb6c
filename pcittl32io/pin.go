// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Pin is one of the 32 TTL lines of a card.
//
// The direction is shared by the 8 lines of a group: changing the direction of
// a Pin changes it for the 7 other pins of its group.
//
// Pin implements gpio.PinIO.
type Pin struct {
	name string
	num  int
	chip *Chip
	halt haltSignal

	mu sync.Mutex
}

func newPin(dev string, num int, c *Chip) *Pin {
	return &Pin{name: dev + "." + lineName(num), num: num, chip: c}
}

// lineName returns the short name of a line, e.g. "IO5".
func lineName(num int) string {
	return "IO" + strconv.Itoa(num)
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name
}

// Halt implements conn.Resource.
//
// It interrupts the WaitForEdge calls in progress.
func (p *Pin) Halt() error {
	p.halt.fire()
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
//
// It is the line index on the card, [0, 31].
func (p *Pin) Number() int {
	return p.num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	return string(p.Func())
}

// Func implements pin.PinFunc.
func (p *Pin) Func() pin.Func {
	d, err := p.chip.Direction(p.num)
	if err != nil {
		return pin.FuncNone
	}
	l, err := p.chip.Get(p.num)
	if err != nil {
		return pin.FuncNone
	}
	if d == Output {
		if l {
			return gpio.OUT_HIGH
		}
		return gpio.OUT_LOW
	}
	if l {
		return gpio.IN_HIGH
	}
	return gpio.IN_LOW
}

// SupportedFuncs implements pin.PinFunc.
func (p *Pin) SupportedFuncs() []pin.Func {
	return []pin.Func{gpio.IN, gpio.OUT}
}

// SetFunc implements pin.PinFunc.
func (p *Pin) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return p.In(gpio.PullNoChange, gpio.NoEdge)
	case gpio.OUT_HIGH:
		return p.Out(gpio.High)
	case gpio.OUT, gpio.OUT_LOW:
		return p.Out(gpio.Low)
	default:
		return p.wrap(errors.New("unsupported function"))
	}
}

// In implements gpio.PinIn.
//
// The lines have no pull resistor. Edge detection requires the interrupt of
// the card to be wired, see Dev.ServeInterrupts.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if pull != gpio.PullNoChange && pull != gpio.Float {
		return p.wrap(errors.New("doesn't support pull-up/pull-down"))
	}
	if edge != gpio.NoEdge && !p.chip.HasInterrupt() {
		return p.wrap(errors.New("edge detection requires an interrupt source"))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.chip.setInput(p.num, edge, true); err != nil {
		return p.wrap(err)
	}
	return nil
}

// Read implements gpio.PinIn.
//
// It returns the level of the line whatever its direction.
func (p *Pin) Read() gpio.Level {
	l, err := p.chip.Get(p.num)
	if err != nil {
		Logger.WithError(err).Warnf("%s: read failed", p)
		return gpio.Low
	}
	return l
}

// WaitForEdge implements gpio.PinIn.
//
// Use -1 to wait forever.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	edge := p.chip.edgeOf(p.num)
	if edge == gpio.NoEdge {
		return false
	}
	rising, falling := edgeMasks(lineMask(p.num), edge)
	_, got, err := p.chip.waitEdge(rising, falling, timeout, p.halt.get())
	return err == nil && got != gpio.NoEdge
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return gpio.PullNoChange
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out implements gpio.PinOut.
//
// If the group is an input, it is switched to output. The line level is set
// in the same register transaction.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, err := p.chip.Direction(p.num)
	if err != nil {
		return p.wrap(err)
	}
	if d == Output {
		err = p.chip.Set(p.num, l)
	} else {
		err = p.chip.SetDirectionOutput(p.num, l)
	}
	if err != nil {
		return p.wrap(err)
	}
	return nil
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return p.wrap(errors.New("pwm is not supported"))
}

//

func (p *Pin) wrap(err error) error {
	return fmt.Errorf("pcittl32io (%s): %w", p, err)
}

var _ gpio.PinIO = &Pin{}
var _ pin.PinFunc = &Pin{}
