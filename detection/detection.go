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

// Package detection finds serial ports that look like corelink boards
package detection

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Mode controls how aggressively ports are matched
type Mode int

const (
	// Safe only reports ports whose USB bridge VID:PID is on the known
	// list. This never selects an unrelated device.
	Safe Mode = iota
	// All reports every USB serial port, known bridge or not.
	All
)

// DeviceInfo describes one candidate port
type DeviceInfo struct {
	Path         string
	Product      string
	SerialNumber string
	VID          string
	PID          string
}

// Options configures detection
type Options struct {
	Mode Mode
}

// DefaultOptions returns the default detection options
func DefaultOptions() Options {
	return Options{Mode: Safe}
}

// knownBridges lists the USB serial bridges the board revisions ship with.
var knownBridges = map[string]bool{
	"0403:6010": true, // FTDI FT2232H
	"0403:6014": true, // FTDI FT232H
	"10C4:EA60": true, // Silicon Labs CP210x
}

// DetectAll lists candidate board ports according to opts.
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []DeviceInfo
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		id := strings.ToUpper(port.VID) + ":" + strings.ToUpper(port.PID)
		if o.Mode == Safe && !knownBridges[id] {
			continue
		}
		devices = append(devices, DeviceInfo{
			Path:         port.Name,
			Product:      port.Product,
			SerialNumber: port.SerialNumber,
			VID:          strings.ToUpper(port.VID),
			PID:          strings.ToUpper(port.PID),
		})
	}
	return devices, nil
}
