// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package regwin

import "fmt"

// Mapped is not supported on Windows.
type Mapped struct {
	Memory
}

// Map always fails on Windows.
func Map(path string) (*Mapped, error) {
	return nil, fmt.Errorf("regwin: map %s: %w: not supported on windows", path, ErrUnavailable)
}

// String implements fmt.Stringer.
func (m *Mapped) String() string {
	return "unsupported"
}
