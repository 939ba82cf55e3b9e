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
	"bytes"
	"time"

	"github.com/corelink-io/go-corelink/internal/frame"
)

// EnumTimeout is how long the bootstrap watchdog waits for forward
// progress before restarting the whole enumeration sequence. There is no
// retry ceiling: a board may power on long after the host process starts.
const EnumTimeout = 5000 * time.Millisecond

type enumState int

const (
	enumInit enumState = iota
	enumResetSent
	enumAwaitingChunk
	enumDone
)

// BusInfo is the build metadata enumerated from the board ROM.
type BusInfo struct {
	Copyright string
	Licensee  string
	BuildDate string
}

// Enumerator drives the one-time bootstrap against the board's ROM table:
// reset the ROM read counter, pull the image down in chunks, parse the
// peripheral names out of it, and load a driver per populated core slot.
//
// It is the frame sink for core 0 and the only mutator of core names in
// the registry. All entry points run under the bus lock.
type Enumerator struct {
	bus      *Bus
	log      Logger
	rom      []byte
	info     BusInfo
	state    enumState
	watchdog pendingTimer
	attempts int
	loaded   bool
}

func newEnumerator(bus *Bus) *Enumerator {
	return &Enumerator{
		bus:      bus,
		log:      bus.log,
		rom:      make([]byte, 0, frame.ROMSize),
		watchdog: pendingTimer{sched: bus.sched},
	}
}

// start kicks off the enumeration sequence. Called once from Bus.Start,
// and again from the watchdog on every stalled attempt.
func (e *Enumerator) start() {
	e.attempts++
	e.rom = e.rom[:0]
	e.bus.clearPending(frame.EnumCore)

	// Reset the board's ROM read address counter; any payload byte works.
	if err := e.bus.WriteRegister(frame.EnumCore, frame.RegROMReset, []byte{0x00}); err != nil {
		e.log.Warnf("enum attempt %d: ROM reset write failed: %v", e.attempts, err)
	}
	e.state = enumResetSent
	e.requestChunk()
	e.watchdog.Rearm(EnumTimeout, e.onWatchdog)
}

// requestChunk asks for the next slice of the ROM image.
func (e *Enumerator) requestChunk() {
	remaining := frame.ROMSize - len(e.rom)
	count := remaining
	if count > frame.MaxChunk {
		count = frame.MaxChunk
	}
	if err := e.bus.ReadRegister(frame.EnumCore, frame.RegROMData, byte(count)); err != nil {
		// The watchdog recovers from a lost request the same way it
		// recovers from a lost reply.
		e.log.Warnf("enum: chunk request failed at offset %d: %v", len(e.rom), err)
	}
	e.state = enumAwaitingChunk
}

// HandleFrame implements FrameSink for core 0. Each validated read
// completion appends one chunk to the ROM image.
func (e *Enumerator) HandleFrame(f *Frame) {
	if e.state != enumAwaitingChunk && e.state != enumResetSent {
		e.log.Debugf("enum: frame ignored in state %d", e.state)
		return
	}
	if !f.IsCompletion() {
		return
	}

	room := frame.ROMSize - len(e.rom)
	data := f.Data
	if len(data) > room {
		data = data[:room]
	}
	e.rom = append(e.rom, data...)

	if len(e.rom) < frame.ROMSize {
		e.requestChunk()
		e.watchdog.Rearm(EnumTimeout, e.onWatchdog)
		return
	}
	e.parseROM()
}

// onWatchdog fires when a chunk never arrived. The whole sequence restarts
// from the ROM reset; there is deliberately no retry cap.
func (e *Enumerator) onWatchdog(gen uint64) {
	e.bus.runLocked(func() {
		if !e.watchdog.fired(gen) {
			// A chunk made progress and rearmed the watchdog while this
			// callback was waiting for the bus lock.
			return
		}
		if e.state == enumDone && e.loaded {
			return
		}
		e.log.Infof("enum: no progress after %v (attempt %d), restarting", EnumTimeout, e.attempts)
		e.start()
	})
}

// parseROM walks the assembled image as NUL-terminated strings and commits
// the results. The watchdog is cancelled exactly here, on success; a parse
// failure leaves it armed so the sequence retries.
func (e *Enumerator) parseROM() {
	info, names, ok := parseROMImage(e.rom)
	if !ok {
		e.log.Errorf("enum: ROM image unparseable (string without terminator), awaiting retry")
		e.state = enumDone
		return
	}

	e.watchdog.Cancel()
	e.info = info
	for core, name := range names {
		e.bus.registry.SetName(byte(core+1), name)
	}
	e.log.Infof("enum: board %q built %s, %d core slots named",
		info.Copyright, info.BuildDate, countNamed(names))

	e.loadDrivers()
	e.state = enumDone
}

// loadDrivers instantiates and initializes one driver per populated core
// slot, exactly once, assigning host slot ids in discovery order.
func (e *Enumerator) loadDrivers() {
	if e.loaded {
		return
	}
	e.loaded = true

	for core := 1; core < frame.MaxCores; core++ {
		name := e.bus.registry.Entry(byte(core)).Name
		if name == "" || name == frame.ROMNullName {
			continue
		}
		factory, ok := e.bus.lookup(name)
		if !ok {
			e.log.Warnf("enum: core %d names driver %q: %v", core, name, ErrUnknownDriver)
			continue
		}

		slot := e.bus.nextSlot
		handle := &CoreHandle{bus: e.bus, core: byte(core)}
		if err := factory().Init(slot, byte(core), handle); err != nil {
			e.log.Errorf("enum: driver %q init failed on core %d: %v", name, core, err)
			continue
		}
		e.bus.nextSlot++
		e.bus.registry.SetSlot(byte(core), slot)
		e.log.Infof("enum: driver %q loaded on core %d, slot %d", name, core, slot)
	}
}

// Info returns the ROM build metadata (zero value before enumeration).
func (e *Enumerator) Info() BusInfo { return e.info }

// parseROMImage splits rom into the build metadata triple and the per-slot
// driver names. It fails if any string run reaches the end of the image
// without a NUL terminator.
func parseROMImage(rom []byte) (info BusInfo, names []string, ok bool) {
	off := 0
	next := func() (string, bool) {
		if off >= len(rom) {
			return "", false
		}
		i := bytes.IndexByte(rom[off:], 0)
		if i < 0 {
			return "", false
		}
		s := string(rom[off : off+i])
		off += i + 1
		return s, true
	}

	meta := make([]string, 0, frame.ROMMetaStrings)
	for i := 0; i < frame.ROMMetaStrings; i++ {
		s, found := next()
		if !found {
			return BusInfo{}, nil, false
		}
		meta = append(meta, s)
	}
	for i := 0; i < frame.ROMReservedSlots; i++ {
		if _, found := next(); !found {
			return BusInfo{}, nil, false
		}
	}

	names = make([]string, 0, frame.MaxCores-1)
	for core := 1; core < frame.MaxCores; core++ {
		if off >= len(rom) {
			break
		}
		s, found := next()
		if !found {
			return BusInfo{}, nil, false
		}
		names = append(names, s)
	}

	info = BusInfo{Copyright: meta[0], Licensee: meta[1], BuildDate: meta[2]}
	return info, names, true
}

func countNamed(names []string) int {
	n := 0
	for _, name := range names {
		if name != "" && name != frame.ROMNullName {
			n++
		}
	}
	return n
}
