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

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk daemon configuration.
type Config struct {
	Serial SerialConfig `toml:"serial"`
	Log    LogConfig    `toml:"log"`
	Poll   PollConfig   `toml:"poll"`
}

// SerialConfig selects the board link. An empty Device means autodetect.
type SerialConfig struct {
	Device   string `toml:"device"`
	BaudRate int    `toml:"baud_rate"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// PollConfig controls the GPIO input poll, if a gpio core is present.
type PollConfig struct {
	GPIOInputMillis int `toml:"gpio_input_millis"`
}

func defaultConfig() Config {
	return Config{
		Serial: SerialConfig{BaudRate: 115200},
		Log:    LogConfig{Level: "info", Pretty: true},
		Poll:   PollConfig{GPIOInputMillis: 0},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, fmt.Errorf("config file %s does not exist", path)
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return cfg, nil
}
