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
)

func TestDecoderRoundTrip(t *testing.T) {
	t.Parallel()

	// Payload deliberately contains both reserved bytes.
	payload := []byte{0x01, frame.End, 0x02, frame.Esc, 0x03}
	wire, err := EncodeFrame(3, 0x10, frame.FlagWrite, byte(len(payload)), payload)
	require.NoError(t, err)

	d := NewDecoder(nil)
	frames := d.Feed(wire)
	require.Len(t, frames, 1)

	want := []byte{
		frame.CmdMarker | frame.FlagWrite,
		frame.CoreMarker | 3,
		0x10,
		byte(len(payload)),
	}
	want = append(want, payload...)
	assert.Equal(t, want, frames[0])
	assert.Zero(t, d.Pending())
}

// Feeding the same wire bytes split at every possible position must
// produce the identical frame, regardless of where the reads land.
func TestDecoderSplitFeeds(t *testing.T) {
	t.Parallel()

	payload := []byte{frame.End, frame.Esc, 0x42}
	wire, err := EncodeFrame(1, 0x05, frame.FlagRead, 8, payload)
	require.NoError(t, err)

	reference := NewDecoder(nil).Feed(wire)
	require.Len(t, reference, 1)

	for split := 0; split <= len(wire); split++ {
		d := NewDecoder(nil)
		frames := d.Feed(wire[:split])
		frames = append(frames, d.Feed(wire[split:])...)
		require.Len(t, frames, 1, "split at %d", split)
		assert.Equal(t, reference[0], frames[0], "split at %d", split)
	}
}

func TestDecoderMultipleFramesOneRead(t *testing.T) {
	t.Parallel()

	a, err := EncodeFrame(1, 0x00, frame.FlagRead, 4, nil)
	require.NoError(t, err)
	b, err := EncodeFrame(2, 0x01, frame.FlagWrite, 1, []byte{0xFF})
	require.NoError(t, err)

	frames := NewDecoder(nil).Feed(append(a, b...))
	require.Len(t, frames, 2)
	assert.Equal(t, byte(frame.CoreMarker|1), frames[0][1])
	assert.Equal(t, byte(frame.CoreMarker|2), frames[1][1])
}

func TestDecoderIdleBoundaryBytes(t *testing.T) {
	t.Parallel()

	d := NewDecoder(nil)
	assert.Empty(t, d.Feed([]byte{frame.End, frame.End, frame.End}))
	assert.Zero(t, d.Pending())
}

// An escape marker followed by anything but the two legal substitutes
// poisons the frame: the buffered bytes are dropped and decoding
// resynchronizes on the next boundary.
func TestDecoderIllegalEscape(t *testing.T) {
	t.Parallel()

	log := &captureLog{}
	d := NewDecoder(log)

	frames := d.Feed([]byte{0xA2, 0x51, 0x00, frame.Esc, 0x99, frame.End})
	assert.Empty(t, frames)
	assert.Zero(t, d.Pending())
	require.Len(t, log.warns, 1)

	// The stream recovers: the next frame decodes normally.
	wire, err := EncodeFrame(0, 0x01, frame.FlagRead, 255, nil)
	require.NoError(t, err)
	assert.Len(t, d.Feed(wire), 1)
}

func TestDecoderReset(t *testing.T) {
	t.Parallel()

	d := NewDecoder(nil)
	d.Feed([]byte{0xA2, 0x51, 0x00})
	require.NotZero(t, d.Pending())

	d.Reset()
	assert.Zero(t, d.Pending())

	wire, err := EncodeFrame(4, 0x02, frame.FlagWrite, 1, []byte{0xAB})
	require.NoError(t, err)
	assert.Len(t, d.Feed(wire), 1)
}
