// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcibus

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// ueventSocket is a netlink socket subscribed to kernel uevents.
type ueventSocket struct {
	fd int
}

func newUeventSocket() (*ueventSocket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("failed to open netlink socket: %w", err)
	}
	// Group 1 carries the messages emitted by the kernel itself.
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to bind netlink socket: %w", err)
	}
	return &ueventSocket{fd: fd}, nil
}

// recv waits up to timeoutMS for a datagram and reads it into r. Returns 0 on
// timeout.
func (s *ueventSocket) recv(r []byte, timeoutMS int) (int, error) {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMS)
	if err == unix.EINTR || n == 0 {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, _, err = unix.Recvfrom(s.fd, r, 0)
	return n, err
}

func (s *ueventSocket) close() error {
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// Watch calls fn for every PCI hotplug event until ctx is canceled.
func Watch(ctx context.Context, fn func(Event)) error {
	s, err := newUeventSocket()
	if err != nil {
		return fmt.Errorf("pcibus: %w", err)
	}
	defer s.close()
	buf := make([]byte, 8192)
	for ctx.Err() == nil {
		n, err := s.recv(buf, 100)
		if err != nil {
			return fmt.Errorf("pcibus: uevent: %w", err)
		}
		if n == 0 {
			continue
		}
		if e, ok := parseUevent(buf[:n]); ok {
			fn(e)
		}
	}
	return nil
}
