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

// FrameSink receives validated frames addressed to one core. Dispatch is
// synchronous and in arrival order; implementations must not block.
type FrameSink interface {
	HandleFrame(f *Frame)
}

// FrameSinkFunc adapts a function to the FrameSink interface.
type FrameSinkFunc func(f *Frame)

// HandleFrame calls fn(f).
func (fn FrameSinkFunc) HandleFrame(f *Frame) { fn(f) }

// CoreEntry describes one core slot in the registry.
type CoreEntry struct {
	sink FrameSink
	// Name is the driver name enumerated from the board ROM; empty until
	// enumeration completes.
	Name string
	// Slot is the host-side slot id assigned when the driver is loaded,
	// or -1 while unloaded.
	Slot int
}

// Registered reports whether a packet sink is attached to the entry.
func (e CoreEntry) Registered() bool { return e.sink != nil }

// Registry is the fixed table mapping core ids to driver names, host slot
// ids, and packet sinks. It is allocated once at startup, mutated only by
// the enumeration logic and driver loading, and read on every inbound
// frame. The owning Bus serializes all access.
type Registry struct {
	log     Logger
	entries [frame.MaxCores]CoreEntry
}

// NewRegistry creates a registry with all slots unassigned except core 0,
// whose name is fixed to the enumeration logic.
func NewRegistry(log Logger) *Registry {
	if log == nil {
		log = NopLogger()
	}
	r := &Registry{log: log}
	for i := range r.entries {
		r.entries[i].Slot = -1
	}
	r.entries[frame.EnumCore].Name = "enum"
	return r
}

// Register attaches a packet sink to a core. A sink, once registered, stays
// registered for the life of the process.
func (r *Registry) Register(core byte, sink FrameSink) error {
	if int(core) >= len(r.entries) {
		return fmt.Errorf("%w: core %d", ErrBadCore, core)
	}
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrInvalidParameter)
	}
	if r.entries[core].sink != nil {
		return fmt.Errorf("%w: core %d", ErrSinkRegistered, core)
	}
	r.entries[core].sink = sink
	return nil
}

// Dispatch routes a validated frame to the sink registered for its core.
//
// A frame for an unregistered core is dropped. While core 0 itself has no
// sink yet the drop is silent: that is the expected startup window before
// enumeration begins. Once core 0 is live, an unregistered core means a
// missing or not-yet-loaded driver and is an operator-visible error.
func (r *Registry) Dispatch(f *Frame) {
	entry := &r.entries[f.Core]
	if entry.sink != nil {
		entry.sink.HandleFrame(f)
		return
	}

	if !r.entries[frame.EnumCore].Registered() {
		return
	}
	r.log.Errorf("frame for core %d dropped: no driver registered (name %q)",
		f.Core, entry.Name)
}

// SetName records the enumerated driver name for a core.
func (r *Registry) SetName(core byte, name string) {
	if int(core) < len(r.entries) {
		r.entries[core].Name = name
	}
}

// SetSlot records the host slot id assigned at driver load.
func (r *Registry) SetSlot(core byte, slot int) {
	if int(core) < len(r.entries) {
		r.entries[core].Slot = slot
	}
}

// Entry returns a copy of the registry entry for a core.
func (r *Registry) Entry(core byte) CoreEntry {
	if int(core) >= len(r.entries) {
		return CoreEntry{Slot: -1}
	}
	return r.entries[core]
}

// Len returns the number of core slots.
func (r *Registry) Len() int { return len(r.entries) }
