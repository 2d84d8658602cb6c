// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/quancom/pcibus"
	"periph.io/x/quancom/pcittl32io"
)

var errUsage = errors.New("invalid usage")

// session runs commands against an attached card.
type session struct {
	dev *pcittl32io.Dev
	w   io.Writer
	// watch is called by the watch command in place of pcibus.Watch.
	watch func(ctx context.Context, fn func(pcibus.Event)) error
}

const sessionHelp = `Commands:
  info                      show the directions and the levels
  read [line]               read one line or all of them
  write <line> <0|1>        drive a line, switching its group to output
  writeall <mask> <bits>    drive the lines selected by mask to bits
  dir <line> [in|out [0|1]] show or set the direction of a line's group
  watch [-timeout d]        print the edges and the hotplug events
Lines are numbers, IO<n> or the names from the configuration file.
`

// run executes one command.
func (s *session) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "info":
		return s.info()
	case "read":
		return s.read(args[1:])
	case "write":
		return s.write(args[1:])
	case "writeall":
		return s.writeAll(args[1:])
	case "dir":
		return s.dir(args[1:])
	case "watch":
		return s.watchEdges(ctx, args[1:])
	case "help":
		_, err := io.WriteString(s.w, sessionHelp)
		return err
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (s *session) info() error {
	c := s.dev.Chip()
	d, st, err := c.Snapshot()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "%s: %s at %s, %s\n", s.dev, s.dev.ID(), s.dev.Addr(), s.dev.State())
	fmt.Fprintf(s.w, "  direction: 0x%02x  state: 0x%08x  interrupt: %t\n", d, st, c.HasInterrupt())
	for g := 0; g < pcittl32io.NumGroups; g++ {
		dir := pcittl32io.Input
		if d&(1<<uint(g)) != 0 {
			dir = pcittl32io.Output
		}
		first := g * pcittl32io.LinesPerGroup
		fmt.Fprintf(s.w, "  %c IO%-2d-IO%-2d %-3s %08b\n", 'A'+g, first, first+pcittl32io.LinesPerGroup-1, dir, byte(st>>uint(first)))
	}
	return nil
}

func (s *session) read(args []string) error {
	switch len(args) {
	case 0:
		v, err := s.dev.Group().Read(0)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.w, "0x%08x\n", uint32(v))
		return nil
	case 1:
		p, err := s.line(args[0])
		if err != nil {
			return err
		}
		l, err := s.dev.Chip().Get(p.Number())
		if err != nil {
			return err
		}
		fmt.Fprintf(s.w, "%s: %s\n", p, l)
		return nil
	default:
		return errUsage
	}
}

func (s *session) write(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	p, err := s.line(args[0])
	if err != nil {
		return err
	}
	l, err := parseLevel(args[1])
	if err != nil {
		return err
	}
	return p.Out(l)
}

func (s *session) writeAll(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	mask, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return err
	}
	bits, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return err
	}
	return s.dev.Group().Out(gpio.GPIOValue(bits), gpio.GPIOValue(mask))
}

func (s *session) dir(args []string) error {
	if len(args) == 0 || len(args) > 3 {
		return errUsage
	}
	p, err := s.line(args[0])
	if err != nil {
		return err
	}
	c := s.dev.Chip()
	if len(args) == 1 {
		d, err := c.Direction(p.Number())
		if err != nil {
			return err
		}
		g, _ := pcittl32io.DirectionGroup(p.Number())
		fmt.Fprintf(s.w, "%s: %s (group %c)\n", p, d, 'A'+g)
		return nil
	}
	switch args[1] {
	case "in":
		if len(args) != 2 {
			return errUsage
		}
		return c.SetDirectionInput(p.Number())
	case "out":
		l := gpio.Low
		if len(args) == 3 {
			if l, err = parseLevel(args[2]); err != nil {
				return err
			}
		}
		return c.SetDirectionOutput(p.Number(), l)
	default:
		return errUsage
	}
}

// watchEdges prints the edges reported by the group and the PCI hotplug
// events until ctx is canceled or timeout expires.
func (s *session) watchEdges(ctx context.Context, args []string) error {
	f := flag.NewFlagSet("watch", flag.ContinueOnError)
	f.SetOutput(s.w)
	timeout := f.Duration("timeout", 0, "stop after this duration, 0 means never")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		return errUsage
	}
	if !s.dev.Chip().HasInterrupt() {
		return errors.New("edge detection requires the card to be bound to uio_pci_generic")
	}
	var cancel context.CancelFunc
	if *timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, *timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	var mu sync.Mutex
	printf := func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(s.w, format, v...)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if s.watch == nil {
			return
		}
		err := s.watch(ctx, func(e pcibus.Event) {
			printf("%s %s %s\n", e.Addr, e.ID, e.Action)
		})
		if err != nil {
			pcittl32io.Logger.WithError(err).Warn("hotplug events unavailable")
		}
	}()
	defer func() {
		cancel()
		<-done
	}()
	g := s.dev.Group()
	for ctx.Err() == nil {
		n, e, err := g.WaitForEdge(100 * time.Millisecond)
		if err != nil {
			return err
		}
		if e != gpio.NoEdge {
			printf("%s IO%d %s\n", time.Now().Format("15:04:05.000000"), n, e)
		}
	}
	return nil
}

// line resolves a line number, IO<n> or a registered alias to a pin of the
// card.
func (s *session) line(name string) (gpio.PinIO, error) {
	if n, err := strconv.Atoi(name); err == nil {
		return s.dev.Pin(n)
	}
	if p := s.dev.Group().ByName(name); p != nil {
		return p.(gpio.PinIO), nil
	}
	if p := gpioreg.ByName(name); p != nil {
		if r, ok := p.(gpio.RealPin); ok {
			p = r.Real()
		}
		if p2 := s.dev.Group().ByName(p.Name()); p2 != nil {
			return p2.(gpio.PinIO), nil
		}
	}
	return nil, fmt.Errorf("unknown line %q", name)
}

func parseLevel(s string) (gpio.Level, error) {
	switch strings.ToLower(s) {
	case "0", "low", "l":
		return gpio.Low, nil
	case "1", "high", "h":
		return gpio.High, nil
	default:
		return gpio.Low, fmt.Errorf("invalid level %q", s)
	}
}

// list prints the cards found under root.
func list(w io.Writer, root string) error {
	all, err := pcibus.Find(root, pcittl32io.ID)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintf(w, "no card found\n")
		return nil
	}
	for _, d := range all {
		size, _ := d.BARSize(0)
		irq, err := d.UIO()
		if err != nil {
			irq = "no interrupt"
		}
		fmt.Fprintf(w, "%s %s BAR0=%d bytes %s\n", d, d.Identity(), size, irq)
	}
	return nil
}
