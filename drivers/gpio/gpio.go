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

// Package gpio is the driver for the general-purpose I/O core
package gpio

import (
	"errors"
	"time"

	corelink "github.com/corelink-io/go-corelink"
)

// GPIO core registers
const (
	RegDirection = 0x00 // 1 bit per pin, 1 = output
	RegOutput    = 0x01
	RegInput     = 0x02
)

const (
	ackTimeout = 250 * time.Millisecond
	maxResends = 8
)

// ErrBusy is returned when a write is issued while the previous one still
// awaits its acknowledgement.
var ErrBusy = errors.New("gpio: write pending")

func init() {
	corelink.RegisterDriver("gpio", func() corelink.Driver { return &Driver{} })
}

// Driver drives one GPIO core. Writes follow the usual board pattern:
// send the register write, arm an acknowledgement timer, resend on
// expiry. At most one write is outstanding; the ack token being nil is
// the "nothing pending" state and is checked before every arm.
//
// ackGen identifies the current arming. A timer can expire just as the
// acknowledgement is processed; the stale callback then runs after a new
// write has armed its own timer and must not resend the old one.
type Driver struct {
	handle   *corelink.CoreHandle
	log      corelink.Logger
	ack      corelink.TimerToken
	ackGen   uint64
	onInputs func(byte)

	lastReg  byte
	lastData []byte
	resends  int

	slot       int
	inputs     byte
	haveInputs bool
}

// Init wires the driver to its core and registers its frame sink.
func (d *Driver) Init(slot int, _ byte, handle *corelink.CoreHandle) error {
	d.slot = slot
	d.handle = handle
	d.log = handle.Logger()
	return handle.RegisterSink(d)
}

// Slot returns the host slot id assigned at load.
func (d *Driver) Slot() int { return d.slot }

// HandleFrame implements corelink.FrameSink.
func (d *Driver) HandleFrame(f *corelink.Frame) {
	switch {
	case f.IsCompletion():
		if len(f.Data) > 0 {
			d.inputs = f.Data[0]
			d.haveInputs = true
			if d.onInputs != nil {
				d.onInputs(d.inputs)
			}
		}
	case f.IsWrite():
		// Write acknowledgement.
		if d.ack != nil {
			d.ack.Stop()
			d.ack = nil
			d.ackGen++
			d.resends = 0
		}
	}
}

// SetDirection configures pin directions, 1 bit per pin, 1 = output.
func (d *Driver) SetDirection(mask byte) error {
	return d.writeAcked(RegDirection, []byte{mask})
}

// Set drives the output pins.
func (d *Driver) Set(value byte) error {
	return d.writeAcked(RegOutput, []byte{value})
}

// RequestInputs issues an input read; the value arrives asynchronously
// and is visible through Inputs or the OnInputs callback.
func (d *Driver) RequestInputs() error {
	return d.handle.ReadRegister(RegInput, 1)
}

// Inputs returns the last sampled input value, if any arrived yet.
func (d *Driver) Inputs() (byte, bool) {
	return d.inputs, d.haveInputs
}

// OnInputs sets the callback invoked with each input sample.
func (d *Driver) OnInputs(fn func(byte)) {
	d.onInputs = fn
}

func (d *Driver) writeAcked(reg byte, data []byte) error {
	if d.ack != nil {
		return ErrBusy
	}
	if err := d.handle.WriteRegister(reg, data); err != nil && !corelink.IsWouldBlock(err) {
		return err
	}
	d.lastReg, d.lastData = reg, data
	d.armAck()
	return nil
}

func (d *Driver) armAck() {
	d.ackGen++
	gen := d.ackGen
	d.ack = d.handle.Scheduler().AfterFunc(ackTimeout, func() { d.onAckTimeout(gen) })
}

func (d *Driver) onAckTimeout(gen uint64) {
	if gen != d.ackGen {
		// The write this timer covered was acknowledged, and a newer
		// write owns the token now.
		return
	}
	d.ack = nil
	if d.resends >= maxResends {
		d.log.Errorf("gpio: no ack for register 0x%02X after %d resends", d.lastReg, d.resends)
		d.resends = 0
		return
	}
	d.resends++
	d.log.Debugf("gpio: resending register 0x%02X write (attempt %d)", d.lastReg, d.resends)
	if err := d.handle.WriteRegister(d.lastReg, d.lastData); err != nil && !corelink.IsWouldBlock(err) {
		d.log.Errorf("gpio: resend failed: %v", err)
		return
	}
	d.armAck()
}
