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

// Validator applies the transport-level sanity checks to decoded frames
// before anything downstream is allowed to trust them.
type Validator struct {
	// Cores is the number of configured core slots; core ids at or above
	// this are rejected.
	Cores int
}

// NewValidator creates a Validator for the full 16-core address space.
func NewValidator() *Validator {
	return &Validator{Cores: frame.MaxCores}
}

// Validate checks a decoded frame and parses it on success. A rejected
// frame is simply dropped by the caller; recovery belongs to the timers
// owned by whoever originated the request.
//
// Checks run in order: minimum length, command marker and operation bits,
// core-id marker and range. The read-completion count rule needs request
// context and lives in CheckCompletion.
func (v *Validator) Validate(raw []byte) (*Frame, error) {
	if len(raw) < frame.HeaderLength {
		return nil, fmt.Errorf("%w: %d bytes, need %d header bytes",
			ErrFrameMalformed, len(raw), frame.HeaderLength)
	}

	cmd := raw[0]
	if cmd&frame.MarkerMask != frame.CmdMarker {
		return nil, fmt.Errorf("%w: bad command marker 0x%02X", ErrFrameMalformed, cmd)
	}
	if cmd&frame.FlagOpMask == 0 {
		return nil, fmt.Errorf("%w: command 0x%02X is neither read nor write",
			ErrFrameMalformed, cmd)
	}

	coreByte := raw[1]
	if coreByte&frame.MarkerMask != frame.CoreMarker {
		return nil, fmt.Errorf("%w: core byte 0x%02X", ErrBadCore, coreByte)
	}
	core := coreByte & frame.CoreMask
	if int(core) >= v.Cores {
		return nil, fmt.Errorf("%w: core %d, %d configured", ErrBadCore, core, v.Cores)
	}

	f := &Frame{
		Cmd:   cmd,
		Core:  core,
		Reg:   raw[2],
		Count: raw[3],
	}

	body := raw[frame.HeaderLength:]
	if cmd&frame.FlagRead != 0 && len(body) > 0 {
		// Read completion: payload plus one trailing remaining-count byte.
		f.Data = body[:len(body)-1]
		f.Remaining = body[len(body)-1]
		f.completed = true
	} else {
		f.Data = body
	}

	return f, nil
}

// CheckCompletion verifies the count rule for a read completion against the
// byte count of the request it answers: the trailing remaining byte must
// equal requested minus returned.
func (v *Validator) CheckCompletion(f *Frame, requested int) error {
	if !f.IsCompletion() {
		return fmt.Errorf("%w: frame is not a read completion", ErrInvalidParameter)
	}

	returned := len(f.Data)
	if int(f.Remaining) != requested-returned {
		return fmt.Errorf("%w: requested %d, returned %d, remaining byte %d (want %d)",
			ErrCountMismatch, requested, returned, f.Remaining, requested-returned)
	}
	return nil
}
