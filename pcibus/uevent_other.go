// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package pcibus

import (
	"context"
	"errors"
)

// Watch is only supported on Linux.
func Watch(ctx context.Context, fn func(Event)) error {
	return errors.New("pcibus: uevents are only supported on linux")
}
