// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package quancom loads the drivers for Quancom PCI cards.
package quancom

import (
	"periph.io/x/conn/v3/driver/driverreg"

	// Make sure the card drivers are registered.
	_ "periph.io/x/quancom/pcittl32io"
)

// Init calls driverreg.Init() and returns it as-is.
//
// The only difference is that by calling quancom.Init(), you are guaranteed
// to have all the drivers implemented in this library to be implicitly
// loaded.
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}
