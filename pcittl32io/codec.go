// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcittl32io

import "fmt"

// Register map of BAR0.
const (
	WindowSize = 256 // BAR0 length

	regDirection = 0xF8 // 1 byte; bit g set means lines 8g..8g+7 are outputs
	regIRQEnable = 0xF9 // 1 byte; write irqArm to arm or acknowledge
	regState     = 0xFC // 4 bytes; bit n is the level of line n

	irqArm    uint8 = 0x03
	irqDisarm uint8 = 0x00
)

// Line layout.
const (
	NumLines      = 32
	LinesPerGroup = 8
	NumGroups     = NumLines / LinesPerGroup

	allLines uint32 = 0xFFFFFFFF
)

// Direction is the direction of a group of lines.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "In"
	case Output:
		return "Out"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func checkLine(line int) error {
	if line < 0 || line >= NumLines {
		return fmt.Errorf("%w: %d", ErrInvalidLine, line)
	}
	return nil
}

// stateBit returns the bit of line in the state word.
func stateBit(line int) (uint, error) {
	if err := checkLine(line); err != nil {
		return 0, err
	}
	return uint(line), nil
}

// directionBit returns the bit of the direction register controlling the group
// line belongs to.
func directionBit(line int) (uint, error) {
	if err := checkLine(line); err != nil {
		return 0, err
	}
	return uint(line / LinesPerGroup), nil
}

// DirectionGroup returns the index of the group of 8 lines sharing line's
// direction.
func DirectionGroup(line int) (int, error) {
	b, err := directionBit(line)
	return int(b), err
}

// lineMask returns the state word bit of a valid line.
func lineMask(line int) uint32 {
	return 1 << uint(line)
}

// composeWrite returns the new state word: bits set in mask are kept from cur,
// the others come from bits.
//
// Note that mask selects the bits to keep, not the bits to change.
func composeWrite(cur, mask, bits uint32) uint32 {
	return cur&mask | bits
}
