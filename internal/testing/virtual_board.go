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

// Package testing provides a simulated board for exercising the transport
// and enumeration logic without hardware
package testing

import (
	"github.com/corelink-io/go-corelink/internal/frame"
)

// VirtualBoard simulates the board side of the enumeration core: it
// consumes host frames, keeps the ROM read address counter, and produces
// the wire bytes of read completions.
type VirtualBoard struct {
	ROM     []byte
	romAddr int
}

// NewVirtualBoard creates a board exposing the given ROM image.
func NewVirtualBoard(rom []byte) *VirtualBoard {
	return &VirtualBoard{ROM: rom}
}

// BuildROM assembles a ROM image of exactly frame.ROMSize bytes from the
// given strings (metadata, reserved, then driver names), NUL terminated,
// zero padded.
func BuildROM(strings ...string) []byte {
	rom := make([]byte, 0, frame.ROMSize)
	for _, s := range strings {
		rom = append(rom, s...)
		rom = append(rom, 0)
	}
	for len(rom) < frame.ROMSize {
		rom = append(rom, 0)
	}
	return rom[:frame.ROMSize]
}

// StandardROM builds a fully populated image: copyright, licensee, build
// date, six reserved strings, then the given driver names for slots 1
// upward.
func StandardROM(names ...string) []byte {
	strs := []string{
		"(c) 2025 Corelink test fixture",
		"licensing@corelink.example",
		"2025-08-30",
		"r0", "r1", "r2", "r3", "r4", "r5",
	}
	strs = append(strs, names...)
	return BuildROM(strs...)
}

// HandleRaw consumes one decoded, unescaped host frame and returns the
// raw (unescaped) completion frame to answer with, or nil when the frame
// needs no reply.
func (b *VirtualBoard) HandleRaw(raw []byte) []byte {
	if len(raw) < frame.HeaderLength {
		return nil
	}
	cmd, core, reg, count := raw[0], raw[1]&frame.CoreMask, raw[2], int(raw[3])
	if core != frame.EnumCore {
		return nil
	}

	switch {
	case cmd&frame.FlagWrite != 0 && reg == frame.RegROMReset:
		b.romAddr = 0
		return nil

	case cmd&frame.FlagRead != 0 && reg == frame.RegROMData:
		avail := len(b.ROM) - b.romAddr
		if avail < 0 {
			avail = 0
		}
		n := count
		if n > avail {
			n = avail
		}
		data := b.ROM[b.romAddr : b.romAddr+n]
		b.romAddr += n
		return CompletionRaw(core, reg, count, data)
	}
	return nil
}

// CompletionRaw builds the raw bytes of a read completion frame: header,
// payload, trailing remaining byte.
func CompletionRaw(core, reg byte, requested int, data []byte) []byte {
	out := make([]byte, 0, frame.HeaderLength+len(data)+1)
	out = append(out,
		frame.CmdMarker|frame.FlagRead|frame.FlagAutoInc,
		frame.CoreMarker|core,
		reg,
		byte(requested),
	)
	out = append(out, data...)
	out = append(out, byte(requested-len(data)))
	return out
}

// Escape applies SLIP escaping and boundary markers to a raw frame,
// producing the bytes as they travel on the wire.
func Escape(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+4)
	out = append(out, frame.End)
	for _, c := range raw {
		switch c {
		case frame.End:
			out = append(out, frame.Esc, frame.EscEnd)
		case frame.Esc:
			out = append(out, frame.Esc, frame.EscEsc)
		default:
			out = append(out, c)
		}
	}
	out = append(out, frame.End)
	return out
}

// Unescape strips boundary markers and reverses SLIP escaping, returning
// the raw frames contained in wire bytes. Incomplete trailing data is
// discarded; this helper is for tests that inspect captured writes.
func Unescape(wire []byte) [][]byte {
	var frames [][]byte
	var cur []byte
	inFrame, inEscape := false, false

	for _, c := range wire {
		if !inFrame {
			if c == frame.End {
				continue
			}
			inFrame = true
			cur = cur[:0]
		}
		switch {
		case inEscape:
			switch c {
			case frame.EscEnd:
				cur = append(cur, frame.End)
			case frame.EscEsc:
				cur = append(cur, frame.Esc)
			}
			inEscape = false
		case c == frame.Esc:
			inEscape = true
		case c == frame.End:
			frames = append(frames, append([]byte(nil), cur...))
			cur = cur[:0]
			inFrame = false
		default:
			cur = append(cur, c)
		}
	}
	return frames
}
