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

// Package led is the driver for the LED bank core
package led

import (
	corelink "github.com/corelink-io/go-corelink"
)

// LED core registers. The bank exposes one brightness register per LED
// at consecutive addresses starting at RegBrightness.
const (
	RegControl    = 0x00
	RegBrightness = 0x01

	// Count is the number of LEDs in the bank.
	Count = 8
)

func init() {
	corelink.RegisterDriver("led", func() corelink.Driver { return &Driver{} })
}

// Driver drives one LED bank core. LED writes are fire-and-forget; the
// board does not acknowledge them.
type Driver struct {
	handle *corelink.CoreHandle
	log    corelink.Logger
	slot   int
}

// Init wires the driver to its core and registers its frame sink.
func (d *Driver) Init(slot int, _ byte, handle *corelink.CoreHandle) error {
	d.slot = slot
	d.handle = handle
	d.log = handle.Logger()
	return handle.RegisterSink(d)
}

// Slot returns the host slot id assigned at load.
func (d *Driver) Slot() int { return d.slot }

// HandleFrame implements corelink.FrameSink. The LED core never sends
// anything on its own; completions only show up if somebody read the
// registers manually, so they are just logged.
func (d *Driver) HandleFrame(f *corelink.Frame) {
	d.log.Debugf("led: unexpected frame cmd=0x%02X reg=0x%02X", f.Cmd, f.Reg)
}

// Set switches a single LED on or off.
func (d *Driver) Set(index int, on bool) error {
	if index < 0 || index >= Count {
		return corelink.ErrInvalidParameter
	}
	var v byte
	if on {
		v = 0xFF
	}
	return d.handle.WriteRegister(RegBrightness+byte(index), []byte{v})
}

// SetBrightness sets one LED to an 8-bit brightness level.
func (d *Driver) SetBrightness(index int, level byte) error {
	if index < 0 || index >= Count {
		return corelink.ErrInvalidParameter
	}
	return d.handle.WriteRegister(RegBrightness+byte(index), []byte{level})
}

// SetAll writes the whole bank in one auto-incrementing burst.
func (d *Driver) SetAll(levels [Count]byte) error {
	return d.handle.WriteRegister(RegBrightness, levels[:])
}
