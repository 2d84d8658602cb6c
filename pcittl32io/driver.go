// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/quancom/pcibus"
	"periph.io/x/quancom/uio"
)

// Logger receives the log entries of the package.
//
// Entries carry the field "prefix" so they can be rendered by
// logrus-prefixed-formatter.
var Logger = logrus.WithField("prefix", "pcittl32io")

// All returns the cards attached by the driver.
func All() []*Dev {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	out := make([]*Dev, len(drv.all))
	copy(out, drv.all)
	return out
}

// Hotplug attaches the cards plugged or bound after Init and detaches the ones
// removed, until ctx is canceled.
func Hotplug(ctx context.Context) error {
	return pcibus.Watch(ctx, drv.onEvent)
}

//

// driver implements driver.Impl.
type driver struct {
	mu      sync.Mutex
	root    string
	all     []*Dev
	openIRQ func(path string) (InterruptSource, error)
}

func (d *driver) String() string {
	return "pcittl32io"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

func (d *driver) Init() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	found, err := pcibus.Find(d.root, ID)
	if err != nil {
		return false, err
	}
	if len(found) == 0 {
		return false, errors.New("pcittl32io: no card found")
	}
	multi := len(found) > 1
	for _, pd := range found {
		if _, err1 := d.attachLocked(pd, !multi); err1 != nil {
			// Keep going, the other cards may work.
			err = err1
		}
	}
	return true, err
}

// attachLocked enables pd, attaches it and wires its interrupt.
//
// Must be called with mu held.
func (d *driver) attachLocked(pd *pcibus.Device, aliases bool) (*Dev, error) {
	logf("pcittl32io: %s %s", pd, pd.Identity())
	if err := pd.Enable(); err != nil {
		// Enabling requires root but the device may already be enabled.
		Logger.WithError(err).Debugf("%s: enable failed", pd)
	}
	opts := DefaultOpts
	opts.Name = d.nameLocked()
	opts.Aliases = aliases
	dev, err := Attach(pd, &opts)
	if err != nil {
		Logger.WithError(err).Warnf("%s: attach failed", pd)
		return nil, err
	}
	d.all = append(d.all, dev)
	if p, err := pd.UIO(); err == nil {
		if src, err := d.openIRQ(p); err != nil {
			Logger.WithError(err).Warnf("%s: no interrupt", dev)
		} else if err := dev.ServeInterrupts(src); err != nil {
			_ = src.Close()
		}
	} else {
		Logger.WithError(err).Debugf("%s: edge detection unavailable", dev)
	}
	return dev, nil
}

// nameLocked returns the first free device name. When more than one card is
// present, the second one gets the "(1)" suffix and so on.
//
// Must be called with mu held.
func (d *driver) nameLocked() string {
	for i := 0; ; i++ {
		n := DefaultOpts.Name
		if i > 0 {
			n += "(" + strconv.Itoa(i) + ")"
		}
		used := false
		for _, dev := range d.all {
			if dev.String() == n {
				used = true
				break
			}
		}
		if !used {
			return n
		}
	}
}

func (d *driver) onEvent(e pcibus.Event) {
	if e.ID != ID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch e.Action {
	case pcibus.Add, pcibus.Bind:
		for _, dev := range d.all {
			if dev.Addr() == e.Addr {
				return
			}
		}
		pd, err := pcibus.Open(d.root, e.Addr)
		if err != nil {
			Logger.WithError(err).Warnf("%s: hotplug", e.Addr)
			return
		}
		_, _ = d.attachLocked(pd, false)
	case pcibus.Remove, pcibus.Unbind:
		for i, dev := range d.all {
			if dev.Addr() == e.Addr {
				if err := dev.Detach(); err != nil {
					Logger.WithError(err).Warnf("%s: detach", dev)
				}
				d.all = append(d.all[:i], d.all[i+1:]...)
				return
			}
		}
	}
}

func (d *driver) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dev := range d.all {
		_ = dev.Detach()
	}
	d.all = nil
	// root and openIRQ are mocked in tests.
	d.root = pcibus.DefaultRoot
	d.openIRQ = func(path string) (InterruptSource, error) {
		return uio.Open(path)
	}
}

func init() {
	drv.reset()
	driverreg.MustRegister(&drv)
}

var drv driver
