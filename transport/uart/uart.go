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

// Package uart provides the serial/USB byte channel for the corelink bus
package uart

import (
	"time"

	"go.bug.st/serial"

	corelink "github.com/corelink-io/go-corelink"
)

const (
	defaultBaudRate    = 115200
	defaultReadTimeout = 100 * time.Millisecond
)

// Channel implements corelink.Channel over a serial port in raw 8N1 mode.
// On Linux the driver's low-latency flag is requested best effort.
type Channel struct {
	port     serial.Port
	portName string
	baudRate int
}

// Option is a functional option for configuring the channel
type Option func(*Channel)

// WithBaudRate overrides the default line rate
func WithBaudRate(baud int) Option {
	return func(c *Channel) {
		c.baudRate = baud
	}
}

// New opens the serial device. A device that cannot be opened or
// configured is a permanent error: the process cannot proceed without its
// only link to the board.
func New(portName string, opts ...Option) (*Channel, error) {
	c := &Channel{
		portName: portName,
		baudRate: defaultBaudRate,
	}
	for _, opt := range opts {
		opt(c)
	}

	mode := &serial.Mode{
		BaudRate: c.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, corelink.NewFatalError("open", portName, err)
	}
	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, corelink.NewFatalError("open", portName, err)
	}
	c.port = port

	// Best effort: the flag only shortens the kernel's receive latency.
	_ = setLowLatency(portName)

	return c, nil
}

// Read returns the bytes currently available, or (0, nil) after a quiet
// read-timeout interval.
func (c *Channel) Read(p []byte) (int, error) {
	n, err := c.port.Read(p)
	if err != nil {
		if isWouldBlock(err) {
			return n, corelink.NewTimeoutError("read", c.portName)
		}
		return n, corelink.NewFatalError("read", c.portName, err)
	}
	return n, nil
}

// Write pushes bytes to the port without blocking on a full transmit
// buffer; back-pressure surfaces as a retryable would-block error.
func (c *Channel) Write(p []byte) (int, error) {
	n, err := c.port.Write(p)
	if err != nil {
		if isWouldBlock(err) {
			return n, corelink.NewWouldBlockError("write", c.portName)
		}
		return n, corelink.NewFatalError("write", c.portName, err)
	}
	return n, nil
}

// SetReadTimeout adjusts how long Read waits before reporting a quiet
// interval.
func (c *Channel) SetReadTimeout(d time.Duration) error {
	return c.port.SetReadTimeout(d)
}

// Close closes the serial port.
func (c *Channel) Close() error {
	if c.port == nil {
		return nil
	}
	return c.port.Close()
}

// Port returns the device path.
func (c *Channel) Port() string { return c.portName }

// Type returns the channel type.
func (*Channel) Type() corelink.ChannelType { return corelink.ChannelUART }

// IsConnected returns true if the port is open.
func (c *Channel) IsConnected() bool { return c.port != nil }
