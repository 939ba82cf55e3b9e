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

// EncodeFrame builds one on-wire frame: header, payload, SLIP escaping,
// and boundary markers on both ends. flags is the operation low nibble of
// the command byte; count is the count header field (payload length for
// writes, requested byte count for reads).
func EncodeFrame(core, reg, flags, count byte, payload []byte) ([]byte, error) {
	if flags&frame.FlagOpMask == 0 {
		return nil, fmt.Errorf("%w: operation flags required", ErrInvalidParameter)
	}
	if core >= frame.MaxCores {
		return nil, fmt.Errorf("%w: core %d", ErrBadCore, core)
	}

	raw := make([]byte, 0, frame.HeaderLength+len(payload))
	raw = append(raw,
		frame.CmdMarker|(flags&^frame.MarkerMask),
		frame.CoreMarker|core,
		reg,
		count,
	)
	raw = append(raw, payload...)

	out := make([]byte, 0, len(raw)+len(raw)/4+2)
	out = append(out, frame.End)
	for _, b := range raw {
		switch b {
		case frame.End:
			out = append(out, frame.Esc, frame.EscEnd)
		case frame.Esc:
			out = append(out, frame.Esc, frame.EscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, frame.End)
	return out, nil
}

// send encodes a frame and pushes it through the byte channel in a single
// non-blocking write. A short write under back-pressure surfaces as a
// would-block transport error; anything else short is fatal. Callers own
// their own acknowledgement timers.
func (b *Bus) send(core, reg, flags, count byte, payload []byte) error {
	encoded, err := EncodeFrame(core, reg, flags, count, payload)
	if err != nil {
		return err
	}

	n, err := b.channel.Write(encoded)
	switch {
	case err != nil && IsRetryable(err):
		b.log.Debugf("write backed off after %d/%d bytes on core %d", n, len(encoded), core)
		return NewWouldBlockError("write", b.channel.Port())
	case err != nil:
		return NewFatalError("write", b.channel.Port(), err)
	case n < len(encoded):
		// Short write with no error: the driver buffer filled up.
		b.log.Debugf("short write %d/%d bytes on core %d", n, len(encoded), core)
		return NewWouldBlockError("write", b.channel.Port())
	}
	return nil
}
