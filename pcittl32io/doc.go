// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcittl32io implements support for the Quancom PCITTL32IO card, a PCI
// card exposing 32 TTL lines.
//
// The lines are split in 4 groups of 8 sharing one direction bit. Each line is
// registered in gpioreg as "PCITTL32IO.IO<n>", and as "IO<n>" when a single
// card is present. The header is registered in pinreg as 4 rows of 8 lines,
// one row per group.
//
// The card is driven from userspace: its 256 bytes register window (BAR0) is
// mapped through sysfs, and its interrupt is received through UIO when the
// card is bound to uio_pci_generic. Without UIO, the lines work but edge
// detection is not available.
//
// Use build tag periph_pcittl32io_debug to trace every register access.
//
// # Registers
//
//	0xF8  direction, 1 byte; bit g set makes lines 8g..8g+7 outputs
//	0xF9  interrupt enable, 1 byte; 0x03 arms or acknowledges
//	0xFC  state, 4 bytes; bit n is the level of line n
//
// # Host setup
//
//	echo 8008 3301 > /sys/bus/pci/drivers/uio_pci_generic/new_id
package pcittl32io
