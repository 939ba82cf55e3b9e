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
	"sync"
	"time"

	"github.com/corelink-io/go-corelink/internal/frame"
)

// Bus owns the byte channel and everything above it: decode, validation,
// dispatch, and the enumeration bootstrap.
//
// Execution model: all protocol work is event-driven. The two external
// events are "channel has data" (HandleReadable, called by the owner's
// read loop) and timer expiry (scheduler callbacks). One mutex serializes
// both, so inside a frame sink or a scheduler callback the bus context is
// already held; transmit methods must only be called from such a context,
// or through Do from anywhere else.
type Bus struct {
	channel   Channel
	decoder   *Decoder
	validator *Validator
	registry  *Registry
	enum      *Enumerator
	sched     Scheduler
	log       Logger

	mu      sync.Mutex
	readBuf []byte
	// pending holds the requested byte count of the in-flight read per
	// core, -1 when none. At most one read is outstanding per core.
	pending   [frame.MaxCores]int
	coreLimit int
	nextSlot  int
	started   bool
	observer  func(*Frame)
	lookup    func(name string) (DriverFactory, bool)
}

// New creates a Bus on the given byte channel.
func New(channel Channel, opts ...Option) (*Bus, error) {
	if channel == nil {
		return nil, fmt.Errorf("%w: nil channel", ErrInvalidParameter)
	}

	b := &Bus{
		channel:   channel,
		sched:     NewScheduler(),
		log:       NopLogger(),
		readBuf:   make([]byte, 4096),
		coreLimit: frame.MaxCores,
		lookup:    lookupDriver,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	b.decoder = NewDecoder(b.log)
	b.validator = &Validator{Cores: b.coreLimit}
	b.registry = NewRegistry(b.log)
	b.enum = newEnumerator(b)
	for i := range b.pending {
		b.pending[i] = -1
	}
	return b, nil
}

// Start registers the enumeration logic as core 0's sink and begins the
// bootstrap sequence. Frames arriving before Start are dropped silently;
// that is the expected startup window.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	if err := b.registry.Register(frame.EnumCore, b.enum); err != nil {
		return err
	}
	b.started = true
	b.enum.start()
	return nil
}

// HandleReadable services the "channel has data" event: it reads whatever
// is available, decodes it, and dispatches every completed frame in
// arrival order before returning. A zero-length read with no error is a
// quiet poll interval; a read error that is not transient is fatal.
func (b *Bus) HandleReadable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.channel.Read(b.readBuf)
	if err != nil {
		if IsRetryable(err) {
			return nil
		}
		return NewFatalError("read", b.channel.Port(), err)
	}
	if n == 0 {
		return nil
	}

	for _, raw := range b.decoder.Feed(b.readBuf[:n]) {
		b.handleFrame(raw)
	}
	return nil
}

func (b *Bus) handleFrame(raw []byte) {
	f, err := b.validator.Validate(raw)
	if err != nil {
		b.log.Warnf("frame rejected: %v", err)
		return
	}

	if f.IsCompletion() {
		if requested := b.pending[f.Core]; requested >= 0 {
			if err := b.validator.CheckCompletion(f, requested); err != nil {
				// Drop and let the requester's timer recover.
				b.log.Warnf("frame rejected: %v", err)
				return
			}
			b.pending[f.Core] = -1
		}
	}

	if b.observer != nil {
		b.observer(f)
	}
	b.registry.Dispatch(f)
}

// SetObserver installs a tap that sees every validated frame before
// dispatch, or removes it when fn is nil. Useful for monitoring and for
// tools that read cores they do not drive. Bus context required.
func (b *Bus) SetObserver(fn func(*Frame)) {
	b.observer = fn
}

// Do runs fn serialized against frame dispatch and timer callbacks. It is
// the entry point for callers outside the bus context (an interactive
// shell, a driver's own goroutine) and must not be nested.
func (b *Bus) Do(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// runLocked is the internal spelling of Do for scheduler callbacks.
func (b *Bus) runLocked(fn func()) { b.Do(fn) }

// Send encodes and transmits one frame. Bus context required.
func (b *Bus) Send(core, reg, flags, count byte, payload []byte) error {
	if err := b.send(core, reg, flags, count, payload); err != nil {
		return err
	}
	if flags&frame.FlagRead != 0 {
		b.pending[core] = int(count)
	}
	return nil
}

// ReadRegister issues a read request for count bytes at reg on a core. The
// completion frame arrives asynchronously at the core's sink. Bus context
// required.
func (b *Bus) ReadRegister(core, reg, count byte) error {
	return b.Send(core, reg, frame.FlagRead|frame.FlagAutoInc, count, nil)
}

// WriteRegister issues a register write on a core. Bus context required.
func (b *Bus) WriteRegister(core, reg byte, data []byte) error {
	if len(data) > frame.MaxChunk {
		return fmt.Errorf("%w: %d payload bytes, max %d", ErrInvalidParameter,
			len(data), frame.MaxChunk)
	}
	return b.Send(core, reg, frame.FlagWrite|frame.FlagAutoInc, byte(len(data)), data)
}

// RegisterSink attaches a frame sink to a core. This is the one call
// drivers make back into the bus contract. Bus context required.
func (b *Bus) RegisterSink(core byte, sink FrameSink) error {
	return b.registry.Register(core, sink)
}

// Handle returns the transmit/receive capability for one core, as passed
// to drivers at load time.
func (b *Bus) Handle(core byte) (*CoreHandle, error) {
	if core >= frame.MaxCores {
		return nil, fmt.Errorf("%w: core %d", ErrBadCore, core)
	}
	return &CoreHandle{bus: b, core: core}, nil
}

// clearPending forgets the in-flight read for a core, if any.
func (b *Bus) clearPending(core byte) {
	b.pending[core] = -1
}

// Info returns the board build metadata once enumeration has parsed it.
func (b *Bus) Info() BusInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enum.Info()
}

// CoreSummary describes one core slot for inspection.
type CoreSummary struct {
	Name       string
	Core       byte
	Slot       int
	Registered bool
}

// Cores returns a snapshot of the core table.
func (b *Bus) Cores() []CoreSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]CoreSummary, b.registry.Len())
	for i := range out {
		e := b.registry.Entry(byte(i))
		out[i] = CoreSummary{
			Core:       byte(i),
			Name:       e.Name,
			Slot:       e.Slot,
			Registered: e.Registered(),
		}
	}
	return out
}

// Channel returns the underlying byte channel.
func (b *Bus) Channel() Channel { return b.channel }

// Close cancels the bootstrap watchdog and closes the channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.enum.watchdog.Cancel()
	if err := b.channel.Close(); err != nil {
		return fmt.Errorf("failed to close channel: %w", err)
	}
	return nil
}

// lockedScheduler hands out timers whose callbacks run in bus context, so
// a driver's acknowledgement timer may transmit directly.
type lockedScheduler struct {
	bus *Bus
}

func (s lockedScheduler) AfterFunc(d time.Duration, fn func()) TimerToken {
	return s.bus.sched.AfterFunc(d, func() { s.bus.runLocked(fn) })
}
