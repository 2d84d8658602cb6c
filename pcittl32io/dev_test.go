// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/pin/pinreg"
	"periph.io/x/quancom/pcibus"
	"periph.io/x/quancom/regwin"
)

func TestAttach(t *testing.T) {
	r := newFakeResource()
	d, err := Attach(r, &Opts{Name: "A1"})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Detach()
	if s := d.State(); s != Attached {
		t.Fatal(s)
	}
	if s := d.String(); s != "A1" {
		t.Fatal(s)
	}
	if s := d.Addr(); s != "0000:03:00.0" {
		t.Fatal(s)
	}
	if d.ID() != ID {
		t.Fatal(d.ID())
	}
	if h := d.Header(); len(h) != NumLines || h[5].Name() != "A1.IO5" {
		t.Fatal(h)
	}
	if p, err := d.Pin(31); err != nil || p.Name() != "A1.IO31" {
		t.Fatal(p, err)
	}
	if _, err := d.Pin(32); !errors.Is(err, ErrInvalidLine) {
		t.Fatal(err)
	}
	if d.Group().LineCount() != NumLines || d.Chip().String() != "A1" {
		t.Fatal("unexpected group or chip")
	}
	for i := 0; i < NumLines; i++ {
		n := fmt.Sprintf("A1.IO%d", i)
		if p := gpioreg.ByName(n); p == nil || p.Name() != n {
			t.Fatalf("gpioreg.ByName(%q) = %v", n, p)
		}
	}
	// Aliases were not requested.
	if p := gpioreg.ByName("IO5"); p != nil {
		t.Fatal(p)
	}
	hdr := pinreg.All()["A1"]
	if len(hdr) != NumGroups {
		t.Fatalf("header has %d rows", len(hdr))
	}
	for i, row := range hdr {
		if len(row) != LinesPerGroup || row[0].Number() != i*LinesPerGroup {
			t.Fatalf("row %d: %v", i, row)
		}
	}
	// The interrupt is armed, the direction is left as is.
	if v, _ := r.mem.ReadUint8(regIRQEnable); v != irqArm {
		t.Fatalf("irq = %#02x", v)
	}
	if v, _ := r.mem.ReadUint8(regDirection); v != 0x0C {
		t.Fatalf("direction = %#02x", v)
	}
}

func TestAttach_defaults(t *testing.T) {
	r := newFakeResource()
	d, err := Attach(r, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Detach()
	if s := d.String(); s != "PCITTL32IO" {
		t.Fatal(s)
	}
	if p := gpioreg.ByName("PCITTL32IO.IO0"); p == nil {
		t.Fatal("expected pin")
	}
}

func TestAttach_opts(t *testing.T) {
	r := newFakeResource()
	d, err := Attach(r, &Opts{Name: "A2", Aliases: true, PrimeDirection: true, Direction: 0x05, NoArmInterrupt: true})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := r.mem.ReadUint8(regDirection); v != 0x05 {
		t.Fatalf("direction = %#02x", v)
	}
	if v, _ := r.mem.ReadUint8(regIRQEnable); v != 0 {
		t.Fatalf("irq = %#02x", v)
	}
	if p, ok := gpioreg.ByName("IO7").(gpio.RealPin); !ok || p.Real().Name() != "A2.IO7" {
		t.Fatal(p)
	}
	if err := d.Detach(); err != nil {
		t.Fatal(err)
	}
	if p := gpioreg.ByName("IO7"); p != nil {
		t.Fatal(p)
	}
}

func TestAttach_invalidWindowSize(t *testing.T) {
	r := newFakeResource()
	r.size = 128
	if _, err := Attach(r, &Opts{Name: "A3"}); !errors.Is(err, ErrInvalidWindowSize) {
		t.Fatal(err)
	}
	if r.mapped {
		t.Fatal("window must not be mapped")
	}
	if p := gpioreg.ByName("A3.IO0"); p != nil {
		t.Fatal(p)
	}

	// The bus reports 256 bytes but the mapping is smaller.
	r = newFakeResource()
	r.mem = regwin.NewMemory(128)
	if _, err := Attach(r, &Opts{Name: "A3"}); !errors.Is(err, ErrInvalidWindowSize) {
		t.Fatal(err)
	}
	if !r.mem.Closed() {
		t.Fatal("window must be released")
	}
	if p := gpioreg.ByName("A3.IO0"); p != nil {
		t.Fatal(p)
	}
}

func TestAttach_errors(t *testing.T) {
	data := []struct {
		mutate func(r *fakeResource)
		want   error
	}{
		{func(r *fakeResource) { r.id.Device = 0x3302 }, ErrUnsupportedDevice},
		{func(r *fakeResource) { r.sizeErr = errors.New("no BAR") }, ErrMappingUnavailable},
		{func(r *fakeResource) { r.mapErr = regwin.ErrUnavailable }, ErrMappingUnavailable},
		{func(r *fakeResource) { r.mapErr = fmt.Errorf("mmap: %w", regwin.ErrNoMemory) }, ErrAllocationFailure},
	}
	for i, line := range data {
		r := newFakeResource()
		line.mutate(r)
		d, err := Attach(r, &Opts{Name: "A4"})
		if !errors.Is(err, line.want) || d != nil {
			t.Fatalf("#%d: Attach() = %v, %v; want %v", i, d, err, line.want)
		}
		if p := gpioreg.ByName("A4.IO0"); p != nil {
			t.Fatalf("#%d: %v", i, p)
		}
	}
}

func TestAttach_rollback(t *testing.T) {
	// Take the header name so the last registration step fails.
	if err := pinreg.Register("A5", [][]pin.Pin{{pin.GROUND}}); err != nil {
		t.Fatal(err)
	}
	defer pinreg.Unregister("A5")
	r := newFakeResource()
	if _, err := Attach(r, &Opts{Name: "A5", Aliases: true}); err == nil {
		t.Fatal("expected failure")
	}
	for _, n := range []string{"A5.IO0", "A5.IO31", "IO0", "IO31"} {
		if p := gpioreg.ByName(n); p != nil {
			t.Fatalf("%s is still registered", n)
		}
	}
	if !r.mem.Closed() {
		t.Fatal("window must be released")
	}
}

func TestDetach(t *testing.T) {
	r := newFakeResource()
	var mu sync.Mutex
	var trace []string
	r.wrap = func(w regwin.Window) regwin.Window {
		return &regwin.Log{W: w, Printf: func(f string, v ...interface{}) {
			mu.Lock()
			trace = append(trace, fmt.Sprintf(f, v...))
			mu.Unlock()
		}}
	}
	d, err := Attach(r, &Opts{Name: "A6"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := d.Pin(0)
	if err := d.Detach(); err != nil {
		t.Fatal(err)
	}
	if s := d.State(); s != Detached {
		t.Fatal(s)
	}
	if p := gpioreg.ByName("A6.IO0"); p != nil {
		t.Fatal(p)
	}
	if _, ok := pinreg.All()["A6"]; ok {
		t.Fatal("header is still registered")
	}
	if !r.mem.Closed() {
		t.Fatal("window must be released")
	}
	mu.Lock()
	got := strings.Join(trace, "\n")
	mu.Unlock()
	// Disarmed before the window is closed.
	if !strings.HasSuffix(got, "WriteUint8(0xf9, 0x00) = <nil>\nClose() = <nil>") {
		t.Fatalf("unexpected trace:\n%s", got)
	}
	if err := d.Detach(); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
	if err := p.Out(gpio.High); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
	if _, err := d.Chip().Get(0); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
	if _, err := d.Group().Read(0); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
	if err := d.ServeInterrupts(&fakeSource{}); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
	// The name can be reused.
	d, err = Attach(newFakeResource(), &Opts{Name: "A6"})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Detach(); err != nil {
		t.Fatal(err)
	}
}

func TestDev_RegisterAlias(t *testing.T) {
	d, err := Attach(newFakeResource(), &Opts{Name: "A9"})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterAlias("door", 12); err != nil {
		t.Fatal(err)
	}
	if p, ok := gpioreg.ByName("door").(gpio.RealPin); !ok || p.Real().Name() != "A9.IO12" {
		t.Fatal(p)
	}
	if err := d.RegisterAlias("bad", NumLines); !errors.Is(err, ErrInvalidLine) {
		t.Fatal(err)
	}
	if err := d.Detach(); err != nil {
		t.Fatal(err)
	}
	if p := gpioreg.ByName("door"); p != nil {
		t.Fatal(p)
	}
	if err := d.RegisterAlias("door", 12); !errors.Is(err, ErrDetached) {
		t.Fatal(err)
	}
}

func TestServeInterrupts(t *testing.T) {
	r := newFakeResource()
	d, err := Attach(r, &Opts{Name: "A7"})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := d.Pin(2)
	if err := p.In(gpio.PullNoChange, gpio.BothEdges); err == nil {
		t.Fatal("edge requires an interrupt source")
	}
	src := newFakeSource()
	if err := d.ServeInterrupts(src); err != nil {
		t.Fatal(err)
	}
	if err := d.ServeInterrupts(newFakeSource()); err == nil {
		t.Fatal("expected failure")
	}
	if !d.Chip().HasInterrupt() {
		t.Fatal("expected interrupt")
	}
	if err := p.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		t.Fatal(err)
	}
	// Each interrupt is acknowledged.
	if err := r.mem.WriteUint8(regIRQEnable, 0); err != nil {
		t.Fatal(err)
	}
	src.fire <- struct{}{}
	src.fire <- struct{}{}
	if v, _ := r.mem.ReadUint8(regIRQEnable); v != irqArm {
		t.Fatalf("irq = %#02x", v)
	}

	// A waiter blocked forever is released by Detach.
	done := make(chan error)
	go func() {
		_, _, err := d.Group().WaitForEdge(-1)
		done <- err
	}()
	time.Sleep(time.Millisecond)
	if err := d.Detach(); err != nil {
		t.Fatal(err)
	}
	// Either halted or detached, depending on timing.
	<-done
	if !src.isClosed() {
		t.Fatal("source must be closed")
	}
	if d.Chip().HasInterrupt() {
		t.Fatal("unexpected interrupt")
	}
}

func TestState_String(t *testing.T) {
	if s := Detaching.String(); s != "Detaching" {
		t.Fatal(s)
	}
	if s := State(10).String(); s != "State(10)" {
		t.Fatal(s)
	}
}

//

type fakeResource struct {
	addr    string
	id      pcibus.ID
	size    uint64
	mem     *regwin.Memory
	sizeErr error
	mapErr  error
	mapped  bool
	wrap    func(w regwin.Window) regwin.Window
}

func newFakeResource() *fakeResource {
	m := regwin.NewMemory(WindowSize)
	// Some previous state.
	_ = m.WriteUint8(regDirection, 0x0C)
	return &fakeResource{addr: "0000:03:00.0", id: ID, size: WindowSize, mem: m}
}

func (f *fakeResource) String() string {
	return f.addr
}

func (f *fakeResource) Identity() pcibus.ID {
	return f.id
}

func (f *fakeResource) BARSize(i int) (uint64, error) {
	if i != 0 {
		return 0, errors.New("unexpected BAR")
	}
	return f.size, f.sizeErr
}

func (f *fakeResource) MapBAR(i int) (regwin.Window, error) {
	if i != 0 {
		return nil, errors.New("unexpected BAR")
	}
	if f.mapErr != nil {
		return nil, f.mapErr
	}
	f.mapped = true
	if f.wrap != nil {
		return f.wrap(f.mem), nil
	}
	return f.mem, nil
}

// fakeSource delivers an interrupt for each value sent on fire.
type fakeSource struct {
	fire   chan struct{}
	mu     sync.Mutex
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{fire: make(chan struct{})}
}

func (f *fakeSource) Serve(ctx context.Context, handler func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.fire:
			handler()
		}
	}
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
