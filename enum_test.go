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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelink-io/go-corelink/internal/frame"
	boardtest "github.com/corelink-io/go-corelink/internal/testing"
)

// Fixture drivers. Each test uses its own names so parallel tests do not
// see each other's init records.
var (
	fixtureMu    sync.Mutex
	fixtureInits = map[string][]fixtureInit{}
)

type fixtureInit struct {
	slot int
	core byte
}

type fixtureDriver struct {
	handle *CoreHandle
	name   string
}

func (d *fixtureDriver) Init(slot int, core byte, handle *CoreHandle) error {
	fixtureMu.Lock()
	fixtureInits[d.name] = append(fixtureInits[d.name], fixtureInit{slot: slot, core: core})
	fixtureMu.Unlock()
	d.handle = handle
	return handle.RegisterSink(d)
}

func (d *fixtureDriver) HandleFrame(*Frame) {}

func initsFor(name string) []fixtureInit {
	fixtureMu.Lock()
	defer fixtureMu.Unlock()
	return append([]fixtureInit(nil), fixtureInits[name]...)
}

func init() {
	for _, name := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		RegisterDriver(name, func() Driver { return &fixtureDriver{name: name} })
	}
}

// pumpBoard shuttles frames between the bus and the virtual board until
// neither side has anything left to say. intercept, if non-nil, sees every
// raw host frame and returns false to simulate losing it on the wire.
func pumpBoard(t *testing.T, bus *Bus, ch *MockChannel, board *boardtest.VirtualBoard,
	intercept func(raw []byte) bool,
) {
	t.Helper()
	for i := 0; i < 200; i++ {
		writes := ch.Writes()
		ch.ResetWrites()
		if len(writes) == 0 {
			return
		}
		replies := 0
		for _, w := range writes {
			for _, raw := range boardtest.Unescape(w) {
				if intercept != nil && !intercept(raw) {
					continue
				}
				if reply := board.HandleRaw(raw); reply != nil {
					ch.QueueRead(boardtest.Escape(reply))
					replies++
				}
			}
		}
		if replies == 0 {
			return
		}
		for j := 0; j < replies; j++ {
			require.NoError(t, bus.HandleReadable())
		}
	}
	t.Fatal("board conversation did not settle")
}

// isROMDataRead recognizes the host's chunk request frames.
func isROMDataRead(raw []byte) bool {
	return len(raw) >= frame.HeaderLength &&
		raw[0]&frame.FlagRead != 0 &&
		raw[1]&frame.CoreMask == frame.EnumCore &&
		raw[2] == frame.RegROMData
}

func TestEnumerationHappyPath(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	fake := NewFakeScheduler()
	log := &captureLog{}
	bus, err := New(ch, WithScheduler(fake), WithLogger(log))
	require.NoError(t, err)

	board := boardtest.NewVirtualBoard(boardtest.StandardROM("alpha", "null", "beta"))

	chunkReads := 0
	require.NoError(t, bus.Start())
	pumpBoard(t, bus, ch, board, func(raw []byte) bool {
		if isROMDataRead(raw) {
			chunkReads++
		}
		return true
	})

	// 2048 ROM bytes arrive as eight 255-byte chunks plus one 8-byte tail.
	assert.Equal(t, 9, chunkReads)

	// The watchdog is cancelled on the successful parse and never fired.
	assert.Zero(t, fake.Armed())

	info := bus.Info()
	assert.Equal(t, "(c) 2025 Corelink test fixture", info.Copyright)
	assert.Equal(t, "licensing@corelink.example", info.Licensee)
	assert.Equal(t, "2025-08-30", info.BuildDate)

	cores := bus.Cores()
	assert.Equal(t, "enum", cores[0].Name)
	assert.True(t, cores[0].Registered)
	assert.Equal(t, "alpha", cores[1].Name)
	assert.Equal(t, "null", cores[2].Name)
	assert.Equal(t, "beta", cores[3].Name)
	assert.Empty(t, cores[4].Name)

	// Drivers load in core order with sequential slot ids; the null
	// placeholder gets nothing.
	assert.True(t, cores[1].Registered)
	assert.False(t, cores[2].Registered)
	assert.True(t, cores[3].Registered)
	assert.Equal(t, 0, cores[1].Slot)
	assert.Equal(t, -1, cores[2].Slot)
	assert.Equal(t, 1, cores[3].Slot)

	require.Equal(t, []fixtureInit{{slot: 0, core: 1}}, initsFor("alpha"))
	require.Equal(t, []fixtureInit{{slot: 1, core: 3}}, initsFor("beta"))
}

// Losing a chunk mid-sequence stalls enumeration until the watchdog fires;
// the recovery restarts the whole sequence from the ROM reset and the
// second attempt succeeds end to end, loading each driver exactly once.
func TestEnumerationRecoversFromLostChunk(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	fake := NewFakeScheduler()
	log := &captureLog{}
	bus, err := New(ch, WithScheduler(fake), WithLogger(log))
	require.NoError(t, err)

	board := boardtest.NewVirtualBoard(boardtest.StandardROM("gamma"))

	reads := 0
	require.NoError(t, bus.Start())
	pumpBoard(t, bus, ch, board, func(raw []byte) bool {
		if isROMDataRead(raw) {
			reads++
			if reads == 5 {
				return false // fifth chunk request lost on the wire
			}
		}
		return true
	})

	// Stalled: no driver yet, watchdog armed.
	assert.Empty(t, initsFor("gamma"))
	require.Equal(t, 1, fake.Armed())

	require.True(t, fake.FireNext())

	// The restart begins from the ROM reset, then re-requests the first
	// full-size chunk.
	writes := ch.Writes()
	require.GreaterOrEqual(t, len(writes), 2)
	first := boardtest.Unescape(writes[0])
	require.Len(t, first, 1)
	assert.Equal(t, byte(frame.RegROMReset), first[0][2])
	second := boardtest.Unescape(writes[1])
	require.Len(t, second, 1)
	assert.Equal(t, byte(frame.RegROMData), second[0][2])
	assert.Equal(t, byte(frame.MaxChunk), second[0][3])

	pumpBoard(t, bus, ch, board, nil)

	assert.Zero(t, fake.Armed())
	cores := bus.Cores()
	assert.Equal(t, "gamma", cores[1].Name)
	assert.True(t, cores[1].Registered)
	require.Equal(t, []fixtureInit{{slot: 0, core: 1}}, initsFor("gamma"))
}

// The watchdog can expire at the same moment a chunk makes progress. The
// chunk handler rearms the wait before the expired callback gets the bus
// lock; that callback must step aside instead of disowning the fresh timer
// and forcing a spurious restart, which would leave two live watchdogs for
// one logical wait.
func TestEnumerationLateWatchdogAfterProgress(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	fake := NewFakeScheduler()
	log := &captureLog{}
	bus, err := New(ch, WithScheduler(fake), WithLogger(log))
	require.NoError(t, err)

	board := boardtest.NewVirtualBoard(boardtest.StandardROM("epsilon"))

	require.NoError(t, bus.Start())
	require.Equal(t, 1, fake.Armed())

	// The first watchdog expires; its callback is still in flight.
	late := fake.ExpireNext()
	require.NotNil(t, late)

	// The first chunk arrives and is processed, rearming the watchdog.
	replies := 0
	for _, w := range ch.Writes() {
		for _, raw := range boardtest.Unescape(w) {
			if reply := board.HandleRaw(raw); reply != nil {
				ch.QueueRead(boardtest.Escape(reply))
				replies++
			}
		}
	}
	require.NotZero(t, replies)
	ch.ResetWrites()
	for i := 0; i < replies; i++ {
		require.NoError(t, bus.HandleReadable())
	}
	require.Equal(t, 1, fake.Armed())

	// Now the stale callback runs. It must not restart the sequence or
	// touch the rearmed timer.
	late()

	assert.Equal(t, 1, fake.Armed())
	for _, msg := range log.infos {
		assert.NotContains(t, msg, "restarting")
	}
	writes := ch.Writes()
	require.NotEmpty(t, writes)
	for _, w := range writes {
		for _, raw := range boardtest.Unescape(w) {
			assert.NotEqual(t, byte(frame.RegROMReset), raw[2])
		}
	}

	// The interrupted sequence still finishes on its rearmed watchdog's
	// schedule, loading the driver exactly once.
	pumpBoard(t, bus, ch, board, nil)
	assert.Zero(t, fake.Armed())
	require.Equal(t, []fixtureInit{{slot: 0, core: 1}}, initsFor("epsilon"))
}

func TestEnumerationFullCoreTable(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	fake := NewFakeScheduler()
	bus, err := New(ch, WithScheduler(fake), WithLogger(&captureLog{}))
	require.NoError(t, err)

	// Ten driver names after the metadata and reserved strings: a
	// nineteen-string image naming cores 1 through 10.
	names := []string{
		"delta", "null", "pwm0", "adc0", "dac0",
		"uart16", "spi0", "i2c0", "counter", "null",
	}
	board := boardtest.NewVirtualBoard(boardtest.StandardROM(names...))

	require.NoError(t, bus.Start())
	pumpBoard(t, bus, ch, board, nil)

	cores := bus.Cores()
	for i, name := range names {
		assert.Equal(t, name, cores[i+1].Name, "core %d", i+1)
	}
	for core := 11; core < frame.MaxCores; core++ {
		assert.Empty(t, cores[core].Name, "core %d", core)
	}

	// Only the one known driver loads; the aspirational names are logged
	// and skipped, the null placeholders are silently ignored.
	assert.True(t, cores[1].Registered)
	for core := 2; core <= 10; core++ {
		assert.False(t, cores[core].Registered, "core %d", core)
	}
	require.Equal(t, []fixtureInit{{slot: 0, core: 1}}, initsFor("delta"))
}

// An image with no terminators cannot be parsed. The failure leaves the
// watchdog armed so the sequence retries instead of silently giving up.
func TestEnumerationUnparseableROMRetries(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	fake := NewFakeScheduler()
	log := &captureLog{}
	bus, err := New(ch, WithScheduler(fake), WithLogger(log))
	require.NoError(t, err)

	rom := make([]byte, frame.ROMSize)
	for i := range rom {
		rom[i] = 'A'
	}
	board := boardtest.NewVirtualBoard(rom)

	require.NoError(t, bus.Start())
	pumpBoard(t, bus, ch, board, nil)

	require.NotEmpty(t, log.errs)
	assert.Contains(t, log.errs[0], "unparseable")
	assert.Equal(t, 1, fake.Armed())

	// The watchdog restarts the sequence from the ROM reset.
	ch.ResetWrites()
	require.True(t, fake.FireNext())
	writes := ch.Writes()
	require.NotEmpty(t, writes)
	raw := boardtest.Unescape(writes[0])
	require.NotEmpty(t, raw)
	assert.Equal(t, byte(frame.RegROMReset), raw[0][2])
}

func TestParseROMImage(t *testing.T) {
	t.Parallel()

	t.Run("populated", func(t *testing.T) {
		t.Parallel()
		info, names, ok := parseROMImage(boardtest.StandardROM("gpio", "led"))
		require.True(t, ok)
		assert.Equal(t, "(c) 2025 Corelink test fixture", info.Copyright)
		require.GreaterOrEqual(t, len(names), 2)
		assert.Equal(t, "gpio", names[0])
		assert.Equal(t, "led", names[1])
	})

	t.Run("unterminated", func(t *testing.T) {
		t.Parallel()
		rom := []byte("copyright\x00licensee\x00date-without-terminator")
		_, _, ok := parseROMImage(rom)
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, _, ok := parseROMImage(nil)
		assert.False(t, ok)
	})
}
