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

// Package frame provides wire-protocol constants for the corelink register bus
package frame

// SLIP framing bytes. The boundary byte delimits frames; the escape byte
// introduces a two-byte substitute for either reserved value in payload.
const (
	End    = 0xC0 // Frame boundary marker
	Esc    = 0xDB // Escape marker
	EscEnd = 0xDC // Escaped form of End
	EscEsc = 0xDD // Escaped form of Esc
)

// Command byte layout: low nibble carries the operation flags, high nibble
// is a fixed marker checked by the validator on both ends of the link.
const (
	FlagRead     = 0x01 // Register read
	FlagWrite    = 0x02 // Register write
	FlagAutoInc  = 0x04 // Auto-increment register address
	FlagAutoData = 0x08 // Broadcast/auto-data
	FlagOpMask   = FlagRead | FlagWrite

	CmdMarker  = 0xA0 // Fixed high nibble of the command byte
	CoreMarker = 0x50 // Fixed high nibble of the core-id byte
	MarkerMask = 0xF0
	CoreMask   = 0x0F
)

// Frame size limits
const (
	HeaderLength  = 4   // command + core + register + count
	MaxChunk      = 255 // Largest single read request (count is one byte)
	MaxFrameBytes = HeaderLength + MaxChunk + 1
)

// Core address space. Core 0 is permanently owned by the enumeration logic.
const (
	MaxCores = 16
	EnumCore = 0
)

// Enumeration core registers
const (
	RegROMReset = 0x00 // Any write resets the board's ROM read address counter
	RegROMData  = 0x01 // Sequential ROM reads
)

// ROM image layout: NUL-terminated ASCII strings, in order copyright,
// license holder, build date, six reserved strings, then one driver name
// per core slot from slot 1 upward.
const (
	ROMSize          = 2048
	ROMMetaStrings   = 3
	ROMReservedSlots = 6
	ROMNullName      = "null" // Placeholder name for an unpopulated slot
)
