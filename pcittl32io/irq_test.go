// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/quancom/regwin"
)

func TestHandleInterrupt(t *testing.T) {
	c, m := newTestChip(t)
	writeState(t, m, 0x12345678)
	if r := c.HandleInterrupt(); r != IRQHandled {
		t.Fatalf("HandleInterrupt() = %s", r)
	}
	if v, _ := m.ReadUint8(regIRQEnable); v != irqArm {
		t.Fatalf("irq = %#02x", v)
	}
	// Nothing else is touched.
	if v := readState(t, m); v != 0x12345678 {
		t.Fatalf("state = %#08x", v)
	}
	if v := readDirection(t, m); v != 0 {
		t.Fatalf("direction = %#02x", v)
	}
}

func TestHandleInterrupt_traced(t *testing.T) {
	m := regwin.NewMemory(WindowSize)
	var logged []string
	c := newChip("test", &regwin.Log{W: m, Printf: func(format string, v ...interface{}) {
		logged = append(logged, format)
	}})
	if r := c.HandleInterrupt(); r != IRQHandled {
		t.Fatalf("HandleInterrupt() = %s", r)
	}
	if v, _ := m.ReadUint8(regIRQEnable); v != irqArm {
		t.Fatalf("irq = %#02x", v)
	}
	if len(logged) != 0 {
		t.Fatalf("logged %q", logged)
	}
	// Other accesses are still traced.
	if _, err := c.Get(0); err != nil {
		t.Fatal(err)
	}
	if len(logged) != 1 {
		t.Fatalf("logged %q", logged)
	}
}

func TestIRQReturn_String(t *testing.T) {
	if s := IRQHandled.String(); s != "Handled" {
		t.Fatal(s)
	}
	if s := IRQNone.String(); s != "None" {
		t.Fatal(s)
	}
}

func TestWaitEdge(t *testing.T) {
	data := []struct {
		rising, falling uint32
		want            gpio.Edge
	}{
		{1 << 3, 1 << 3, gpio.NoEdge},
		{1 << 3, 0, gpio.RisingEdge},
		{0, 1 << 3, gpio.FallingEdge},
	}
	for i, line := range data {
		c, m := newTestChip(t)
		type result struct {
			line int
			edge gpio.Edge
			err  error
		}
		done := make(chan result)
		go func() {
			l, e, err := c.waitEdge(line.rising, line.falling, 10*time.Second, nil)
			done <- result{l, e, err}
		}()
		// Toggle line 3 and raise an interrupt until the waiter notices. The
		// other lines flip too but are not watched.
		var r result
	loop:
		for {
			v := readState(t, m)
			writeState(t, m, v^(1<<3|1<<20))
			c.HandleInterrupt()
			select {
			case r = <-done:
				break loop
			case <-time.After(time.Millisecond):
			}
		}
		if r.err != nil || r.line != 3 {
			t.Fatalf("#%d: waitEdge() = %d, %s, %v", i, r.line, r.edge, r.err)
		}
		if line.want != gpio.NoEdge && r.edge != line.want {
			t.Fatalf("#%d: waitEdge() = %s; want %s", i, r.edge, line.want)
		}
		if r.edge == gpio.NoEdge {
			t.Fatalf("#%d: no edge", i)
		}
	}
}

func TestWaitEdge_noInterrupt(t *testing.T) {
	c, m := newTestChip(t)
	// A level change without interrupt is not reported.
	writeState(t, m, 1)
	l, e, err := c.waitEdge(allLines, allLines, 10*time.Millisecond, nil)
	if err != nil || l != 0 || e != gpio.NoEdge {
		t.Fatalf("waitEdge() = %d, %s, %v", l, e, err)
	}
}

func TestWaitEdge_noChange(t *testing.T) {
	c, _ := newTestChip(t)
	done := make(chan gpio.Edge)
	go func() {
		_, e, _ := c.waitEdge(allLines, allLines, 50*time.Millisecond, nil)
		done <- e
	}()
	// Interrupts without a level change are ignored.
	for i := 0; i < 5; i++ {
		c.HandleInterrupt()
	}
	if e := <-done; e != gpio.NoEdge {
		t.Fatal(e)
	}
}

func TestWaitEdge_halt(t *testing.T) {
	c, _ := newTestChip(t)
	var h haltSignal
	halt := h.get()
	done := make(chan error)
	go func() {
		_, _, err := c.waitEdge(allLines, allLines, -1, halt)
		done <- err
	}()
	h.fire()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestWaitEdge_released(t *testing.T) {
	c, _ := newTestChip(t)
	done := make(chan error)
	go func() {
		_, _, err := c.waitEdge(allLines, allLines, -1, nil)
		done <- err
	}()
	time.Sleep(time.Millisecond)
	c.release()
	if err := <-done; !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
	// Later waits fail right away.
	if _, _, err := c.waitEdge(allLines, allLines, -1, nil); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
}

func TestEdgeNotifier(t *testing.T) {
	var e edgeNotifier
	ch := e.wait()
	if ch2 := e.wait(); ch2 != ch {
		t.Fatal("expected same channel")
	}
	e.broadcast()
	select {
	case <-ch:
	default:
		t.Fatal("expected closed channel")
	}
	ch = e.wait()
	select {
	case <-ch:
		t.Fatal("expected open channel")
	default:
	}
	e.shutdown()
	e.shutdown()
	e.broadcast()
	<-ch
	<-e.wait()
}

func TestEdgeMasks(t *testing.T) {
	data := []struct {
		edge            gpio.Edge
		rising, falling uint32
	}{
		{gpio.NoEdge, 0, 0},
		{gpio.RisingEdge, 0xF0, 0},
		{gpio.FallingEdge, 0, 0xF0},
		{gpio.BothEdges, 0xF0, 0xF0},
	}
	for _, line := range data {
		if r, f := edgeMasks(0xF0, line.edge); r != line.rising || f != line.falling {
			t.Fatalf("edgeMasks(%s) = %#x, %#x", line.edge, r, f)
		}
	}
}
