// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import (
	"errors"
	"testing"
)

func TestComposeWrite(t *testing.T) {
	data := []struct {
		cur, mask, bits uint32
		want            uint32
	}{
		{0, 0, 0, 0},
		{0xFFFFFFFF, 0, 0, 0},
		{0xFFFFFFFF, 0xFFFFFFFF, 0, 0xFFFFFFFF},
		{0xAAAAAAAA, 0xFFFFFFFE, 1, 0xAAAAAAAB},
		{0x0000FFFF, 0xFFFF0000, 0x12345678, 0x12345678},
		{0x80000000, ^uint32(1 << 5), 1 << 5, 0x80000020},
		{0x80000020, ^uint32(1 << 5), 0, 0x80000000},
	}
	for i, line := range data {
		if got := composeWrite(line.cur, line.mask, line.bits); got != line.want {
			t.Fatalf("#%d: composeWrite(%#x, %#x, %#x) = %#x; want %#x", i, line.cur, line.mask, line.bits, got, line.want)
		}
	}
}

func TestStateBit(t *testing.T) {
	for l := 0; l < NumLines; l++ {
		b, err := stateBit(l)
		if err != nil || b != uint(l) {
			t.Fatalf("stateBit(%d) = %d, %v", l, b, err)
		}
		if m := lineMask(l); m != 1<<uint(l) {
			t.Fatalf("lineMask(%d) = %#x", l, m)
		}
	}
	for _, l := range []int{-1, 32, 100} {
		if _, err := stateBit(l); !errors.Is(err, ErrInvalidLine) {
			t.Fatalf("stateBit(%d) = %v", l, err)
		}
	}
}

func TestDirectionGroup(t *testing.T) {
	data := []struct {
		line, want int
	}{
		{0, 0}, {7, 0}, {8, 1}, {15, 1}, {16, 2}, {23, 2}, {24, 3}, {31, 3},
	}
	for _, line := range data {
		if g, err := DirectionGroup(line.line); err != nil || g != line.want {
			t.Fatalf("DirectionGroup(%d) = %d, %v; want %d", line.line, g, err, line.want)
		}
	}
	if _, err := DirectionGroup(32); !errors.Is(err, ErrInvalidLine) {
		t.Fatal(err)
	}
}

func TestDirection_String(t *testing.T) {
	if s := Input.String(); s != "In" {
		t.Fatal(s)
	}
	if s := Output.String(); s != "Out" {
		t.Fatal(s)
	}
	if s := Direction(5).String(); s != "Direction(5)" {
		t.Fatal(s)
	}
}
