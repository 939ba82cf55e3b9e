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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corelink-io/go-corelink/internal/frame"
)

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		raw     []byte
	}{
		{
			name:    "truncated_three_byte_frame",
			raw:     []byte{0xA1, 0x52, 0x00},
			wantErr: ErrFrameMalformed,
		},
		{
			name:    "empty_frame",
			raw:     []byte{},
			wantErr: ErrFrameMalformed,
		},
		{
			name:    "bad_command_marker",
			raw:     []byte{0xB1, 0x52, 0x00, 0x01},
			wantErr: ErrFrameMalformed,
		},
		{
			name:    "no_operation_bits",
			raw:     []byte{0xA0, 0x52, 0x00, 0x01},
			wantErr: ErrFrameMalformed,
		},
		{
			name: "core_sixteen_overflows_marker",
			// Core 16 cannot be encoded: the id bleeds into the marker
			// nibble and the byte reads 0x60.
			raw:     []byte{0xA1, 0x60, 0x00, 0x01},
			wantErr: ErrBadCore,
		},
		{
			name:    "bad_core_marker",
			raw:     []byte{0xA1, 0x12, 0x00, 0x01},
			wantErr: ErrBadCore,
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateCoreAboveConfigured(t *testing.T) {
	t.Parallel()

	v := &Validator{Cores: 8}
	_, err := v.Validate([]byte{0xA1, frame.CoreMarker | 9, 0x00, 0x01})
	assert.ErrorIs(t, err, ErrBadCore)
}

func TestValidateParsesWrite(t *testing.T) {
	t.Parallel()

	raw := []byte{
		frame.CmdMarker | frame.FlagWrite | frame.FlagAutoInc,
		frame.CoreMarker | 5,
		0x20,
		0x02,
		0xDE, 0xAD,
	}
	f, err := NewValidator().Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, byte(5), f.Core)
	assert.Equal(t, byte(0x20), f.Reg)
	assert.Equal(t, byte(2), f.Count)
	assert.True(t, f.IsWrite())
	assert.True(t, f.AutoInc())
	assert.False(t, f.IsCompletion())
	assert.Equal(t, []byte{0xDE, 0xAD}, f.Data)
}

func TestValidateParsesReadCompletion(t *testing.T) {
	t.Parallel()

	raw := []byte{
		frame.CmdMarker | frame.FlagRead | frame.FlagAutoInc,
		frame.CoreMarker | 2,
		0x01,
		10,
	}
	raw = append(raw, []byte{1, 2, 3, 4, 5, 6}...)
	raw = append(raw, 4) // remaining

	f, err := NewValidator().Validate(raw)
	require.NoError(t, err)
	require.True(t, f.IsCompletion())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, f.Data)
	assert.Equal(t, byte(4), f.Remaining)
}

func TestCheckCompletionCountRule(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	build := func(remaining byte) *Frame {
		raw := []byte{
			frame.CmdMarker | frame.FlagRead,
			frame.CoreMarker | 1,
			0x01,
			10,
		}
		raw = append(raw, []byte{1, 2, 3, 4, 5, 6}...)
		raw = append(raw, remaining)
		f, err := v.Validate(raw)
		require.NoError(t, err)
		return f
	}

	// 10 requested, 6 returned: only remaining == 4 satisfies the rule.
	assert.NoError(t, v.CheckCompletion(build(4), 10))

	err := v.CheckCompletion(build(3), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCountMismatch))
}

func TestCheckCompletionRejectsNonCompletion(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	f, err := v.Validate([]byte{
		frame.CmdMarker | frame.FlagWrite,
		frame.CoreMarker | 1,
		0x00,
		0x00,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, v.CheckCompletion(f, 1), ErrInvalidParameter)
}
