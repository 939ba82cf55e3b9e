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

// Package i2c provides the byte channel over the board's I2C debug header.
//
// The header exposes the same SLIP byte stream as the serial link through
// a bridge register: reads return pending stream bytes, padding the
// remainder of the transfer with frame boundary markers, which the
// decoder discards between frames.
package i2c

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	corelink "github.com/corelink-io/go-corelink"
)

const (
	// Bridge address of the debug header.
	bridgeAddr = 0x42

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz
)

// Transport implements corelink.Channel over the I2C debug header
type Transport struct {
	dev     *i2c.Dev
	busName string
}

// New opens the I2C bus and binds the bridge device
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, corelink.NewFatalError("open", busName, err)
	}

	dev := &i2c.Dev{Addr: bridgeAddr, Bus: bus}

	// Best effort; continue at the default speed on failure.
	_ = bus.SetSpeed(maxClockFreq)

	return &Transport{
		dev:     dev,
		busName: busName,
	}, nil
}

// Read fills p from the bridge. Idle positions arrive as boundary
// markers, so a quiet bus decodes to zero frames.
func (t *Transport) Read(p []byte) (int, error) {
	if err := t.dev.Tx(nil, p); err != nil {
		return 0, corelink.NewFatalError("read", t.busName, err)
	}
	return len(p), nil
}

// Write pushes p to the bridge in one transfer.
func (t *Transport) Write(p []byte) (int, error) {
	if err := t.dev.Tx(p, nil); err != nil {
		return 0, corelink.NewFatalError("write", t.busName, err)
	}
	return len(p), nil
}

// Close closes the transport connection
func (*Transport) Close() error {
	// periph.io handles cleanup automatically
	return nil
}

// Port returns the bus name.
func (t *Transport) Port() string { return t.busName }

// Type returns the channel type.
func (*Transport) Type() corelink.ChannelType { return corelink.ChannelI2C }

// IsConnected returns true if the bridge device is bound
func (t *Transport) IsConnected() bool {
	return t.dev != nil
}
