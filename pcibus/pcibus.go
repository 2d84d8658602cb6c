// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcibus enumerates PCI functions through the Linux sysfs and hands
// out their memory BARs as register windows.
//
// It plays the role of the bus manager for userspace drivers: it identifies
// functions by vendor and device ID, reports BAR lengths, enables the function
// and maps BARs via the sysfs resource files.
//
// # More details
//
// https://www.kernel.org/doc/Documentation/filesystems/sysfs-pci.txt
package pcibus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"periph.io/x/quancom/regwin"
)

// DefaultRoot is where the kernel lists PCI functions.
const DefaultRoot = "/sys/bus/pci/devices"

// NumBARs is the number of base address registers of a type 0 header.
const NumBARs = 6

// ErrNoUIO is returned by Device.UIO when the function is not bound to a UIO
// driver like uio_pci_generic.
var ErrNoUIO = errors.New("pcibus: no uio device bound")

// ID is the vendor/device pair found in the configuration header.
type ID struct {
	Vendor uint16
	Device uint16
}

func (i ID) String() string {
	return fmt.Sprintf("%04x:%04x", i.Vendor, i.Device)
}

// ParseID parses the "vvvv:dddd" hexadecimal form used by lspci and uevents.
func ParseID(s string) (ID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ID{}, fmt.Errorf("pcibus: invalid id %q", s)
	}
	v, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("pcibus: invalid vendor in %q: %w", s, err)
	}
	d, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("pcibus: invalid device in %q: %w", s, err)
	}
	return ID{Vendor: uint16(v), Device: uint16(d)}, nil
}

// BAR is one line of the sysfs resource file.
type BAR struct {
	Start uint64
	End   uint64
	Flags uint64
}

// Size returns the length of the region, 0 if it is not implemented.
func (b BAR) Size() uint64 {
	if b.Start == 0 && b.End == 0 {
		return 0
	}
	return b.End - b.Start + 1
}

// IsIO returns true for an I/O port region.
func (b BAR) IsIO() bool {
	// IORESOURCE_IO
	return b.Flags&0x100 != 0
}

// Device is a PCI function as seen in sysfs.
type Device struct {
	// Addr is the domain:bus:device.function address, e.g. "0000:03:00.0".
	Addr string
	// ID is the vendor and device ID.
	ID ID

	root string
	bars [NumBARs]BAR
}

// Open reads the function at addr under root.
func Open(root, addr string) (*Device, error) {
	d := &Device{Addr: addr, root: filepath.Join(root, addr)}
	v, err := readHex(filepath.Join(d.root, "vendor"))
	if err != nil {
		return nil, fmt.Errorf("pcibus: %s: %w", addr, err)
	}
	dev, err := readHex(filepath.Join(d.root, "device"))
	if err != nil {
		return nil, fmt.Errorf("pcibus: %s: %w", addr, err)
	}
	d.ID = ID{Vendor: uint16(v), Device: uint16(dev)}
	if err := d.readResources(); err != nil {
		return nil, fmt.Errorf("pcibus: %s: %w", addr, err)
	}
	return d, nil
}

// Scan returns all the PCI functions listed under root.
//
// Functions that cannot be parsed are skipped.
func Scan(root string) ([]*Device, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("pcibus: %w", err)
	}
	var out []*Device
	for _, item := range items {
		// Entries are symlinks into /sys/devices.
		if fi, err := os.Stat(filepath.Join(root, item.Name())); err != nil || !fi.IsDir() {
			continue
		}
		if d, err := Open(root, item.Name()); err == nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// Find returns the functions under root matching id.
func Find(root string, id ID) ([]*Device, error) {
	all, err := Scan(root)
	if err != nil {
		return nil, err
	}
	var out []*Device
	for _, d := range all {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

// String returns the function address.
func (d *Device) String() string {
	return d.Addr
}

// Identity returns the vendor and device ID.
func (d *Device) Identity() ID {
	return d.ID
}

// Path returns the sysfs directory of the function.
func (d *Device) Path() string {
	return d.root
}

// BAR returns the i-th base address region.
func (d *Device) BAR(i int) (BAR, error) {
	if i < 0 || i >= NumBARs {
		return BAR{}, fmt.Errorf("pcibus: %s: invalid BAR %d", d.Addr, i)
	}
	return d.bars[i], nil
}

// BARSize returns the length in bytes of the i-th base address region.
func (d *Device) BARSize(i int) (uint64, error) {
	b, err := d.BAR(i)
	if err != nil {
		return 0, err
	}
	return b.Size(), nil
}

// MapBAR maps the i-th memory region.
func (d *Device) MapBAR(i int) (regwin.Window, error) {
	b, err := d.BAR(i)
	if err != nil {
		return nil, err
	}
	if b.IsIO() {
		return nil, fmt.Errorf("pcibus: %s: BAR%d is an I/O port region: %w", d.Addr, i, regwin.ErrUnavailable)
	}
	m, err := regwin.Map(filepath.Join(d.root, "resource"+strconv.Itoa(i)))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Enable enables the function's memory decoding.
func (d *Device) Enable() error {
	f, err := os.OpenFile(filepath.Join(d.root, "enable"), os.O_WRONLY, 0)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("pcibus: %s: need more access, try as root or setup udev rules: %w", d.Addr, err)
		}
		return fmt.Errorf("pcibus: %s: %w", d.Addr, err)
	}
	defer f.Close()
	if _, err = f.Write([]byte("1")); err != nil {
		return fmt.Errorf("pcibus: %s: enable: %w", d.Addr, err)
	}
	return nil
}

// UIO returns the character device used to receive the function's
// interrupts, e.g. /dev/uio0.
func (d *Device) UIO() (string, error) {
	items, err := filepath.Glob(filepath.Join(d.root, "uio", "uio*"))
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", fmt.Errorf("%w for %s", ErrNoUIO, d.Addr)
	}
	return "/dev/" + filepath.Base(items[0]), nil
}

func (d *Device) readResources() error {
	raw, err := os.ReadFile(filepath.Join(d.root, "resource"))
	if err != nil {
		return err
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		// Bridges and virtual functions may have no region at all.
		return nil
	}
	lines := strings.Split(content, "\n")
	for i := 0; i < NumBARs && i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) != 3 {
			return fmt.Errorf("invalid resource line %q", lines[i])
		}
		var v [3]uint64
		for j, f := range fields {
			if v[j], err = strconv.ParseUint(f, 0, 64); err != nil {
				return fmt.Errorf("invalid resource line %q: %w", lines[i], err)
			}
		}
		d.bars[i] = BAR{Start: v[0], End: v[1], Flags: v[2]}
	}
	return nil
}

// readHex reads a pseudo-file (sysfs) that is known to contain a 0x prefixed
// hexadecimal number and returns the parsed number.
func readHex(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		return 0, errors.New("invalid value")
	}
	return strconv.ParseUint(string(raw[:len(raw)-1]), 0, 64)
}
