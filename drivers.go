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
	"sort"
	"sync"
)

// Driver is the single initialization entry point of a peripheral driver.
// The bus calls Init exactly once per enumerated core, passing the assigned
// host slot id, the core id the driver serves, and the bus handle it sends
// frames through. A driver that wants inbound frames registers its own
// sink via CoreHandle.RegisterSink; nothing is registered on its behalf.
type Driver interface {
	Init(slot int, core byte, bus *CoreHandle) error
}

// DriverFactory constructs a fresh driver instance for one core.
type DriverFactory func() Driver

var (
	driversMu sync.RWMutex
	drivers   = map[string]DriverFactory{}
)

// RegisterDriver makes a driver factory available under the name the board
// ROM advertises. It is typically called from a driver package's init
// function. Registering twice under one name panics, matching the stakes:
// two drivers claiming a name is a build mistake, not a runtime condition.
func RegisterDriver(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if factory == nil {
		panic("corelink: RegisterDriver with nil factory")
	}
	if _, dup := drivers[name]; dup {
		panic("corelink: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = factory
}

// DriverNames returns the registered driver names, sorted.
func DriverNames() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDriver(name string) (DriverFactory, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	f, ok := drivers[name]
	return f, ok
}

// CoreHandle is the capability a loaded driver holds: it can transmit
// frames on its own core id and register the sink that receives frames
// addressed to it. It deliberately exposes nothing else of the bus.
type CoreHandle struct {
	bus  *Bus
	core byte
}

// Core returns the core id the handle is bound to.
func (h *CoreHandle) Core() byte { return h.core }

// ReadRegister issues a read request for count bytes at reg. The completion
// arrives asynchronously at the driver's registered sink.
func (h *CoreHandle) ReadRegister(reg, count byte) error {
	return h.bus.ReadRegister(h.core, reg, count)
}

// WriteRegister issues a write of data starting at reg.
func (h *CoreHandle) WriteRegister(reg byte, data []byte) error {
	return h.bus.WriteRegister(h.core, reg, data)
}

// RegisterSink attaches the driver's frame sink to its core.
func (h *CoreHandle) RegisterSink(sink FrameSink) error {
	return h.bus.RegisterSink(h.core, sink)
}

// Scheduler exposes a scheduler whose callbacks run in bus context, so
// drivers can arm acknowledgement timers that transmit directly on expiry.
func (h *CoreHandle) Scheduler() Scheduler { return lockedScheduler{bus: h.bus} }

// Logger exposes the bus logger.
func (h *CoreHandle) Logger() Logger { return h.bus.log }
