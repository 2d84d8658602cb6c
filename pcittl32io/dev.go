// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/pin/pinreg"
	"periph.io/x/quancom/pcibus"
	"periph.io/x/quancom/regwin"
)

// ID is the PCI identity of the card.
var ID = pcibus.ID{Vendor: 0x8008, Device: 0x3301}

// State is the lifecycle state of a Dev.
type State int

const (
	Unattached State = iota
	Attaching
	Attached
	Detaching
	Detached
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "Unattached"
	case Attaching:
		return "Attaching"
	case Attached:
		return "Attached"
	case Detaching:
		return "Detaching"
	case Detached:
		return "Detached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resource is a PCI function as handed out by the bus manager.
//
// *pcibus.Device implements it.
type Resource interface {
	String() string
	Identity() pcibus.ID
	BARSize(i int) (uint64, error)
	MapBAR(i int) (regwin.Window, error)
}

// InterruptSource delivers the interrupts of a card.
//
// *uio.Device implements it.
type InterruptSource interface {
	// Serve calls handler for each interrupt until ctx is canceled or the
	// source is closed.
	Serve(ctx context.Context, handler func()) error
	Close() error
}

// Opts is the configuration of a Dev.
type Opts struct {
	// Name prefixes the pin names and names the header in pinreg.
	Name string
	// Aliases registers the short names "IO0" to "IO31" in gpioreg.
	Aliases bool
	// PrimeDirection writes Direction to the direction register on attach.
	// Otherwise the direction set by a previous user is kept.
	PrimeDirection bool
	// Direction has bit g set to make lines 8g to 8g+7 outputs.
	Direction uint8
	// NoArmInterrupt leaves the interrupt enable register untouched on
	// attach. By default 0b11 is written to arm the card interrupt.
	NoArmInterrupt bool
}

// DefaultOpts is the configuration used when Attach is called with nil.
var DefaultOpts = Opts{
	Name: "PCITTL32IO",
}

// Dev is an attached PCITTL32IO card.
//
// It owns the register window of the card until Detach is called.
type Dev struct {
	name  string
	addr  string
	id    pcibus.ID
	chip  *Chip
	pins  []*Pin
	group *Group

	mu         sync.Mutex
	state      State
	w          regwin.Window
	registered []string // gpioreg names, in registration order
	header     bool     // registered in pinreg
	irqSrc     InterruptSource
	irqCancel  context.CancelFunc
	irqDone    chan struct{}
}

// Attach takes ownership of the register window of r and publishes its 32
// lines in gpioreg and pinreg.
//
// opts can be nil, in which case DefaultOpts is used.
//
// On failure, everything done so far is undone and nothing stays published.
func Attach(r Resource, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	name := opts.Name
	if name == "" {
		name = DefaultOpts.Name
	}
	if id := r.Identity(); id != ID {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedDevice, r, id)
	}
	size, err := r.BARSize(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMappingUnavailable, err)
	}
	if size != WindowSize {
		return nil, fmt.Errorf("%w: %s BAR0 is %d bytes", ErrInvalidWindowSize, r, size)
	}
	w, err := r.MapBAR(0)
	if err != nil {
		if errors.Is(err, regwin.ErrNoMemory) {
			return nil, fmt.Errorf("%w: %w", ErrAllocationFailure, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMappingUnavailable, err)
	}
	if w.Size() != WindowSize {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %s mapped %d bytes", ErrInvalidWindowSize, r, w.Size())
	}
	w = wrapWindow(w)

	d := &Dev{name: name, addr: r.String(), id: r.Identity(), state: Attaching, w: w}
	d.chip = newChip(name, w)
	if err := d.prime(opts); err != nil {
		d.rollback()
		return nil, err
	}
	d.pins = make([]*Pin, NumLines)
	for i := range d.pins {
		d.pins[i] = newPin(name, i, d.chip)
	}
	d.group = newGroup(name, d.chip, d.pins)
	if err := d.register(opts.Aliases); err != nil {
		d.rollback()
		return nil, err
	}
	d.state = Attached
	Logger.Debugf("%s: attached %s", d, r)
	return d, nil
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return d.name
}

// Halt implements conn.Resource.
//
// It interrupts the WaitForEdge calls in progress on the pins and the group.
func (d *Dev) Halt() error {
	for _, p := range d.pins {
		_ = p.Halt()
	}
	return d.group.Halt()
}

// State returns the lifecycle state.
func (d *Dev) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Addr returns the bus address of the card, as reported by its Resource.
func (d *Dev) Addr() string {
	return d.addr
}

// ID returns the PCI identity of the card.
func (d *Dev) ID() pcibus.ID {
	return d.id
}

// Chip returns the line controller.
func (d *Dev) Chip() *Chip {
	return d.chip
}

// Group returns the 32 lines as one gpio.Group.
func (d *Dev) Group() *Group {
	return d.group
}

// Header returns the 32 lines, in line order.
func (d *Dev) Header() []gpio.PinIO {
	out := make([]gpio.PinIO, len(d.pins))
	for i, p := range d.pins {
		out[i] = p
	}
	return out
}

// Pin returns line n.
func (d *Dev) Pin(n int) (*Pin, error) {
	if err := checkLine(n); err != nil {
		return nil, err
	}
	return d.pins[n], nil
}

// RegisterAlias registers name in gpioreg as an alias of line. It is
// unregistered on Detach.
func (d *Dev) RegisterAlias(name string, line int) error {
	if err := checkLine(line); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Attached {
		return ErrDetached
	}
	if err := gpioreg.RegisterAlias(name, d.pins[line].Name()); err != nil {
		return err
	}
	d.registered = append(d.registered, name)
	return nil
}

// HandleInterrupt acknowledges an interrupt of the card. See
// Chip.HandleInterrupt.
func (d *Dev) HandleInterrupt() IRQReturn {
	return d.chip.HandleInterrupt()
}

// ServeInterrupts dispatches the interrupts delivered by src to the card,
// enabling edge detection on the pins and the group.
//
// The Dev takes ownership of src; it is closed on Detach.
func (d *Dev) ServeInterrupts(src InterruptSource) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Attached {
		return ErrDetached
	}
	if d.irqSrc != nil {
		return errors.New("pcittl32io: interrupts are already served")
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.irqSrc = src
	d.irqCancel = cancel
	d.irqDone = make(chan struct{})
	d.chip.irq.Store(true)
	go func() {
		defer close(d.irqDone)
		defer d.chip.irq.Store(false)
		if err := src.Serve(ctx, func() { d.chip.HandleInterrupt() }); err != nil {
			Logger.WithError(err).Warnf("%s: interrupt delivery stopped", d)
		}
	}()
	Logger.Debugf("%s: serving interrupts from %v", d, src)
	return nil
}

// Detach unpublishes the lines, stops the interrupt delivery, disarms the
// card interrupt and releases the register window.
//
// Any subsequent operation on the Dev, its pins or its group returns
// ErrDetached.
func (d *Dev) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Attached {
		return ErrDetached
	}
	d.state = Detaching
	err := d.unregister()
	if d.irqSrc != nil {
		d.irqCancel()
		if err2 := d.irqSrc.Close(); err == nil {
			err = err2
		}
		<-d.irqDone
		d.irqSrc = nil
	}
	_ = d.Halt()
	if err2 := d.chip.writeIRQEnable(irqDisarm); err == nil {
		err = err2
	}
	if err2 := d.chip.release().Close(); err == nil {
		err = err2
	}
	d.w = nil
	d.state = Detached
	Logger.Debugf("%s: detached", d)
	return err
}

//

// prime writes the initial register values requested by opts.
func (d *Dev) prime(opts *Opts) error {
	if opts.PrimeDirection {
		if err := d.chip.writeDirection(opts.Direction); err != nil {
			return fmt.Errorf("%w: %w", ErrMappingUnavailable, err)
		}
	}
	if !opts.NoArmInterrupt {
		if err := d.chip.writeIRQEnable(irqArm); err != nil {
			return fmt.Errorf("%w: %w", ErrMappingUnavailable, err)
		}
	}
	return nil
}

// register publishes the pins and the header.
func (d *Dev) register(aliases bool) error {
	for _, p := range d.pins {
		if err := gpioreg.Register(p); err != nil {
			return err
		}
		d.registered = append(d.registered, p.Name())
	}
	if aliases {
		for _, p := range d.pins {
			a := lineName(p.num)
			if err := gpioreg.RegisterAlias(a, p.Name()); err != nil {
				return err
			}
			d.registered = append(d.registered, a)
		}
	}
	// One row per direction group, i.e. ports A to D.
	rows := make([][]pin.Pin, NumGroups)
	for i := range rows {
		rows[i] = make([]pin.Pin, LinesPerGroup)
		for j := range rows[i] {
			rows[i][j] = d.pins[i*LinesPerGroup+j]
		}
	}
	if err := pinreg.Register(d.name, rows); err != nil {
		return err
	}
	d.header = true
	return nil
}

// unregister undoes register, in reverse order.
func (d *Dev) unregister() error {
	var err error
	if d.header {
		err = pinreg.Unregister(d.name)
		d.header = false
	}
	for i := len(d.registered) - 1; i >= 0; i-- {
		if err2 := gpioreg.Unregister(d.registered[i]); err == nil {
			err = err2
		}
	}
	d.registered = nil
	return err
}

// rollback undoes a partial Attach.
func (d *Dev) rollback() {
	_ = d.unregister()
	if w := d.chip.release(); w != nil {
		_ = w.Close()
	}
	d.w = nil
	d.state = Unattached
}
