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
	"github.com/corelink-io/go-corelink/internal/frame"
)

type decodeState int

const (
	stateAwaitingFrame decodeState = iota // discarding boundary markers
	stateInFrame                          // accumulating frame bytes
	stateInEscape                         // escape marker seen, one byte pending
)

// Decoder turns the raw serial byte stream into complete, unescaped frames.
//
// State persists across Feed calls, so a frame split over any number of
// reads is reassembled correctly. Decoder is not safe for concurrent use;
// the Bus serializes all calls.
type Decoder struct {
	log   Logger
	buf   []byte
	state decodeState
}

// NewDecoder creates a Decoder logging protocol violations to log.
func NewDecoder(log Logger) *Decoder {
	if log == nil {
		log = NopLogger()
	}
	return &Decoder{
		log: log,
		buf: make([]byte, 0, frame.MaxFrameBytes),
	}
}

// Feed consumes newly read bytes and returns the complete frames they
// finish, in arrival order. Bytes belonging to a still-incomplete frame
// stay buffered for the next call.
func (d *Decoder) Feed(p []byte) [][]byte {
	var frames [][]byte

	for _, b := range p {
		switch d.state {
		case stateAwaitingFrame:
			if b == frame.End {
				continue
			}
			d.buf = d.buf[:0]
			d.state = stateInFrame
			d.consume(b, &frames)

		case stateInFrame, stateInEscape:
			d.consume(b, &frames)
		}
	}

	return frames
}

func (d *Decoder) consume(b byte, frames *[][]byte) {
	if d.state == stateInEscape {
		switch b {
		case frame.EscEnd:
			d.buf = append(d.buf, frame.End)
		case frame.EscEsc:
			d.buf = append(d.buf, frame.Esc)
		default:
			// Illegal escape sequence. The in-progress frame cannot be
			// trusted, so drop it and resynchronize on the next boundary.
			d.log.Warnf("illegal escape byte 0x%02X, dropping %d buffered bytes: %v",
				b, len(d.buf), ErrProtocolViolation)
			d.buf = d.buf[:0]
			d.state = stateAwaitingFrame
			return
		}
		d.state = stateInFrame
		return
	}

	switch b {
	case frame.End:
		out := make([]byte, len(d.buf))
		copy(out, d.buf)
		*frames = append(*frames, out)
		d.buf = d.buf[:0]
		d.state = stateAwaitingFrame
	case frame.Esc:
		d.state = stateInEscape
	default:
		d.buf = append(d.buf, b)
	}
}

// Pending returns the number of bytes buffered for a frame still in flight.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards any in-progress frame and returns to the idle state.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.state = stateAwaitingFrame
}
