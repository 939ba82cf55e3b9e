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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelink-io/go-corelink/internal/frame"
	boardtest "github.com/corelink-io/go-corelink/internal/testing"
)

func TestOptionValidation(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()

	_, err := New(ch, WithLogger(nil))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New(ch, WithScheduler(nil))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New(ch, WithReadBuffer(0))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New(ch, WithCoreCount(0))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New(ch, WithCoreCount(17))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New(ch, WithDriverLookup(nil))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestWithCoreCountNarrowsValidation(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	log := &captureLog{}
	bus, err := New(ch, WithCoreCount(4), WithLogger(log))
	require.NoError(t, err)

	// Core 5 is a perfectly formed frame, just outside this board's range.
	raw := []byte{
		frame.CmdMarker | frame.FlagWrite,
		frame.CoreMarker | 5,
		0x00,
		0x00,
	}
	ch.QueueRead(boardtest.Escape(raw))
	require.NoError(t, bus.HandleReadable())
	require.NotEmpty(t, log.warns)
	assert.Contains(t, log.warns[0], "frame rejected")
}

func TestWithDriverLookup(t *testing.T) {
	t.Parallel()

	ch := NewMockChannel()
	fake := NewFakeScheduler()

	inits := 0
	lookup := func(name string) (DriverFactory, bool) {
		if name != "widget" {
			return nil, false
		}
		return func() Driver {
			return driverFunc(func(_ int, _ byte, h *CoreHandle) error {
				inits++
				return h.RegisterSink(FrameSinkFunc(func(*Frame) {}))
			})
		}, true
	}

	bus, err := New(ch, WithScheduler(fake), WithLogger(&captureLog{}),
		WithDriverLookup(lookup))
	require.NoError(t, err)

	board := boardtest.NewVirtualBoard(boardtest.StandardROM("widget"))
	require.NoError(t, bus.Start())
	pumpBoard(t, bus, ch, board, nil)

	assert.Equal(t, 1, inits)
	assert.True(t, bus.Cores()[1].Registered)
}

// driverFunc adapts a function to the Driver interface for tests.
type driverFunc func(slot int, core byte, h *CoreHandle) error

func (f driverFunc) Init(slot int, core byte, h *CoreHandle) error {
	return f(slot, core, h)
}
