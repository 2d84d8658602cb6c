// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !periph_pcittl32io_debug
// +build !periph_pcittl32io_debug

package pcittl32io

import "periph.io/x/quancom/regwin"

// logf is disabled when the build tag periph_pcittl32io_debug is not specified.
func logf(fmt string, v ...interface{}) {
}

func wrapWindow(w regwin.Window) regwin.Window {
	return w
}
