// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package regwin

// Log logs all the accesses done on the wrapped Window.
type Log struct {
	W      Window
	Printf func(format string, v ...interface{})
}

// Size implements Window.
func (l *Log) Size() int {
	return l.W.Size()
}

// ReadUint8 implements Window.
func (l *Log) ReadUint8(off int) (uint8, error) {
	v, err := l.W.ReadUint8(off)
	l.Printf("ReadUint8(0x%02x) = 0x%02x, %v", off, v, err)
	return v, err
}

// WriteUint8 implements Window.
func (l *Log) WriteUint8(off int, v uint8) error {
	err := l.W.WriteUint8(off, v)
	l.Printf("WriteUint8(0x%02x, 0x%02x) = %v", off, v, err)
	return err
}

// ReadUint32 implements Window.
func (l *Log) ReadUint32(off int) (uint32, error) {
	v, err := l.W.ReadUint32(off)
	l.Printf("ReadUint32(0x%02x) = 0x%08x, %v", off, v, err)
	return v, err
}

// WriteUint32 implements Window.
func (l *Log) WriteUint32(off int, v uint32) error {
	err := l.W.WriteUint32(off, v)
	l.Printf("WriteUint32(0x%02x, 0x%08x) = %v", off, v, err)
	return err
}

// Close implements Window.
func (l *Log) Close() error {
	err := l.W.Close()
	l.Printf("Close() = %v", err)
	return err
}

var _ Window = &Log{}
