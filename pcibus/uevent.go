// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcibus

import (
	"bytes"
	"strings"
)

// Action is the kind of hotplug event.
type Action string

const (
	Add    Action = "add"
	Remove Action = "remove"
	Bind   Action = "bind"
	Unbind Action = "unbind"
)

// Event is a PCI hotplug notification sent by the kernel.
type Event struct {
	Action Action
	// Addr is the function address, e.g. "0000:03:00.0".
	Addr string
	ID   ID
	// DevPath is the path of the function under /sys.
	DevPath string
}

// parseUevent decodes a kernel uevent datagram.
//
// It returns false if the message is not about a PCI function.
func parseUevent(b []byte) (Event, bool) {
	var e Event
	var subsystem string
	fields := bytes.Split(b, []byte{0})
	if len(fields) < 2 {
		return e, false
	}
	// The first field is "action@devpath", the rest are KEY=value pairs.
	for _, f := range fields[1:] {
		kv := strings.SplitN(string(f), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ACTION":
			e.Action = Action(kv[1])
		case "DEVPATH":
			e.DevPath = kv[1]
		case "SUBSYSTEM":
			subsystem = kv[1]
		case "PCI_SLOT_NAME":
			e.Addr = kv[1]
		case "PCI_ID":
			if id, err := ParseID(kv[1]); err == nil {
				e.ID = id
			}
		}
	}
	if subsystem != "pci" || e.Action == "" || e.Addr == "" {
		return e, false
	}
	return e, true
}
