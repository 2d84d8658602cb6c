// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcittl32iosmoketest verifies that a PCITTL32IO card is working as
// expected.
//
// It requires two lines of different groups to be wired together.
package pcittl32iosmoketest

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/quancom/pcittl32io"
)

// SmokeTest is imported by periph-smoketest.
type SmokeTest struct {
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "pcittl32io"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Tests a PCITTL32IO with two lines wired together"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) error {
	out := f.Int("out", 0, "line driven by the test")
	in := f.Int("in", 8, "line wired to -out, in another group")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}
	all := pcittl32io.All()
	if len(all) != 1 {
		return fmt.Errorf("exactly one device is expected, got %d", len(all))
	}
	return Test(all[0], *out, *in)
}

// Test runs the loopback tests on d, with line out wired to line in.
func Test(d *pcittl32io.Dev, out, in int) error {
	gOut, err := pcittl32io.DirectionGroup(out)
	if err != nil {
		return err
	}
	gIn, err := pcittl32io.DirectionGroup(in)
	if err != nil {
		return err
	}
	if gOut == gIn {
		return fmt.Errorf("lines %d and %d share the same direction group", out, in)
	}
	pOut, _ := d.Pin(out)
	pIn, _ := d.Pin(in)
	if err := gpioTest(&loggingPin{pIn}, &loggingPin{pOut}); err != nil {
		return err
	}
	if err := groupTest(d.Group(), out, in); err != nil {
		return err
	}
	if d.Chip().HasInterrupt() {
		if err := edgeTest(pIn, pOut); err != nil {
			return err
		}
	} else {
		fmt.Printf("  Edge detection: skipped, no interrupt source\n")
	}
	return gpioPerfTest(pOut)
}

// gpioTest ensures connectivity works.
func gpioTest(p1, p2 gpio.PinIO) error {
	fmt.Printf("  GPIO functionality on %s and %s:\n", p1, p2)
	if err := p1.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return err
	}
	for _, l := range []gpio.Level{gpio.Low, gpio.High, gpio.Low} {
		if err := p2.Out(l); err != nil {
			return err
		}
		// There can be a small amount of skew. This should inject just enough time.
		time.Sleep(10 * time.Microsecond)
		if got := p1.Read(); got != l {
			return fmt.Errorf("%s: expected to read %s but got %s", p1, l, got)
		}
	}
	return nil
}

// groupTest drives the output line through the group and reads both lines
// back in one access.
func groupTest(g *pcittl32io.Group, out, in int) error {
	fmt.Printf("  Group functionality on %s:\n", g)
	mOut := gpio.GPIOValue(1) << uint(out)
	mIn := gpio.GPIOValue(1) << uint(in)
	for _, v := range []gpio.GPIOValue{mOut, 0, mOut} {
		if err := g.Out(v, mOut); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
		got, err := g.Read(mOut | mIn)
		if err != nil {
			return err
		}
		want := gpio.GPIOValue(0)
		if v != 0 {
			want = mOut | mIn
		}
		if got != want {
			return fmt.Errorf("%s: expected to read %#x but got %#x", g, want, got)
		}
	}
	fmt.Printf("    OK\n")
	return nil
}

// edgeTest verifies that a transition on the output line is reported on the
// input line.
func edgeTest(pIn, pOut gpio.PinIO) error {
	fmt.Printf("  Edge detection on %s:\n", pIn)
	if err := pOut.Out(gpio.Low); err != nil {
		return err
	}
	if err := pIn.In(gpio.PullNoChange, gpio.RisingEdge); err != nil {
		return err
	}
	defer pIn.In(gpio.PullNoChange, gpio.NoEdge)
	done := make(chan bool)
	go func() {
		done <- pIn.WaitForEdge(time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	if err := pOut.Out(gpio.High); err != nil {
		return err
	}
	if !<-done {
		return fmt.Errorf("%s: expected a rising edge", pIn)
	}
	fmt.Printf("    OK\n")
	return nil
}

// gpioPerfTest reads and write in a tight loop to evaluate performance.
//
// It doesn't evaluate correctness.
func gpioPerfTest(p gpio.PinIO) error {
	fmt.Printf("  GPIO performance on %s:\n", p)
	const loops = 100000
	fmt.Printf("    %d reads:  ", loops)
	start := time.Now()
	for i := 0; i < loops; i++ {
		p.Read()
	}
	s := time.Since(start)
	fmt.Printf("%s; %s/op\n", s, s/loops)
	fmt.Printf("    %d writes: ", loops)
	start = time.Now()
	for i := 0; i < loops; i++ {
		if err := p.Out(i&1 == 0); err != nil {
			return err
		}
	}
	s = time.Since(start)
	fmt.Printf("%s; %s/op\n", s, s/loops)
	return nil
}

// loggingPin logs when its state changes.
type loggingPin struct {
	gpio.PinIO
}

func (p *loggingPin) In(pull gpio.Pull, edge gpio.Edge) error {
	start := time.Now()
	if err := p.PinIO.In(pull, edge); err != nil {
		fmt.Printf("    %s %s.In(%s, %s) = %v\n", time.Since(start), p, pull, edge, err)
		return err
	}
	fmt.Printf("    %s %s.In(%s, %s)\n", time.Since(start), p, pull, edge)
	return nil
}

func (p *loggingPin) Read() gpio.Level {
	start := time.Now()
	l := p.PinIO.Read()
	fmt.Printf("    %s %s.Read() = %s\n", time.Since(start), p, l)
	return l
}

func (p *loggingPin) Out(l gpio.Level) error {
	start := time.Now()
	if err := p.PinIO.Out(l); err != nil {
		fmt.Printf("    %s %s.Out(%s) = %v\n", time.Since(start), p, l, err)
		return err
	}
	fmt.Printf("    %s %s.Out(%s)\n", time.Since(start), p, l)
	return nil
}
