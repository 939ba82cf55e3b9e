// go-corelink
// Copyright (c) 2025 The Corelink Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-corelink.
//
// go-corelink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-corelink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-corelink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package corelink

import (
	"fmt"

	"github.com/corelink-io/go-corelink/internal/frame"
)

// Option is a functional option for configuring a Bus
type Option func(*Bus) error

// WithLogger sets the logger for the bus and every component under it
func WithLogger(log Logger) Option {
	return func(b *Bus) error {
		if log == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidParameter)
		}
		b.log = log
		return nil
	}
}

// WithScheduler replaces the timer scheduler; tests use a manually fired
// fake to drive the bootstrap watchdog deterministically
func WithScheduler(sched Scheduler) Option {
	return func(b *Bus) error {
		if sched == nil {
			return fmt.Errorf("%w: nil scheduler", ErrInvalidParameter)
		}
		b.sched = sched
		return nil
	}
}

// WithReadBuffer sets the read buffer size for HandleReadable
func WithReadBuffer(size int) Option {
	return func(b *Bus) error {
		if size <= 0 {
			return fmt.Errorf("%w: read buffer size %d", ErrInvalidParameter, size)
		}
		b.readBuf = make([]byte, size)
		return nil
	}
}

// WithCoreCount narrows the validated core range below the full 16 slots,
// for board images known to expose fewer cores
func WithCoreCount(n int) Option {
	return func(b *Bus) error {
		if n < 1 || n > frame.MaxCores {
			return fmt.Errorf("%w: core count %d", ErrInvalidParameter, n)
		}
		b.coreLimit = n
		return nil
	}
}

// WithDriverLookup replaces the package-level driver factory table for
// this bus, mainly so tests can load drivers without touching global state
func WithDriverLookup(lookup func(name string) (DriverFactory, bool)) Option {
	return func(b *Bus) error {
		if lookup == nil {
			return fmt.Errorf("%w: nil driver lookup", ErrInvalidParameter)
		}
		b.lookup = lookup
		return nil
	}
}
