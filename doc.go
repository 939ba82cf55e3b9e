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

/*
Package corelink is the transport and bootstrap layer for FPGA I/O boards
that expose a register bus of up to 16 logical cores over a single
serial/USB link.

The library turns the unreliable byte stream into validated, addressed
frames (SLIP framing, header sanity checks, count verification), routes
each frame to the driver registered for its core, and drives the one-time
enumeration bootstrap: pull the board's ROM table down in chunks, parse
the peripheral names out of it, and load one driver per populated core
slot. A 5 second watchdog restarts the whole enumeration if the board
stalls or is not powered yet; there is no retry cap.

Features:
  - Stateful SLIP decoder tolerant of arbitrarily split reads
  - Transport-level frame validation before anything trusts a packet
  - Fixed 16-slot core registry with synchronous in-order dispatch
  - Timer-guarded enumeration bootstrap with unlimited restart
  - UART (go.bug.st/serial) and I2C (periph.io) byte channels
  - Static driver factory table keyed by ROM-advertised names

Basic Usage:

	import (
	    "github.com/corelink-io/go-corelink"
	    "github.com/corelink-io/go-corelink/transport/uart"

	    _ "github.com/corelink-io/go-corelink/drivers/gpio"
	    _ "github.com/corelink-io/go-corelink/drivers/led"
	)

	channel, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	bus, err := corelink.New(channel)
	if err != nil {
	    log.Fatal(err)
	}
	defer bus.Close()

	if err := bus.Start(); err != nil {
	    log.Fatal(err)
	}
	for {
	    if err := bus.HandleReadable(); err != nil {
	        log.Fatal(err) // channel is gone
	    }
	}

All protocol work is event-driven and serialized: frame sinks and
scheduler callbacks already run in bus context, other goroutines enter it
through Bus.Do. No call in the hot path blocks; a pending operation is
explicit state plus a live timer, never a blocked goroutine.
*/
package corelink
