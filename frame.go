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

// Frame is one validated, unescaped protocol message.
//
// Read-completion frames (read flag set, payload present) carry a trailing
// remaining-count byte after the payload; the Validator splits it off into
// Remaining so Data holds payload bytes only.
type Frame struct {
	Data      []byte
	Cmd       byte
	Core      byte // masked into 0..15
	Reg       byte
	Count     byte
	Remaining byte
	completed bool
}

// IsRead reports whether the read operation flag is set
func (f *Frame) IsRead() bool {
	return f.Cmd&frame.FlagRead != 0
}

// IsWrite reports whether the write operation flag is set
func (f *Frame) IsWrite() bool {
	return f.Cmd&frame.FlagWrite != 0
}

// AutoInc reports whether the auto-increment flag is set
func (f *Frame) AutoInc() bool {
	return f.Cmd&frame.FlagAutoInc != 0
}

// IsCompletion reports whether the frame is a read completion carrying data
// and a trailing remaining byte
func (f *Frame) IsCompletion() bool {
	return f.completed
}
