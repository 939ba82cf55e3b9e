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

// Channel is the byte stream to the board. Implementations exist for
// UART/USB serial and the board's I2C debug header.
//
// Read returns however many bytes are currently available, possibly zero
// after a poll interval with no traffic; zero with a nil error is not an
// end-of-stream condition. Write must not block indefinitely: a transient
// back-pressure failure is reported with an error satisfying
// IsRetryable, anything else is treated as fatal by the Bus.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	// Port identifies the underlying device for log and error context.
	Port() string
}

// ChannelType names a channel implementation.
type ChannelType string

const (
	// ChannelUART is the serial/USB link.
	ChannelUART ChannelType = "uart"
	// ChannelI2C is the register bus over the I2C debug header.
	ChannelI2C ChannelType = "i2c"
	// ChannelMock is an in-memory channel for testing.
	ChannelMock ChannelType = "mock"
)
