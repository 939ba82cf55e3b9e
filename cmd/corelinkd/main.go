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

// Command corelinkd runs the board bus as a long-lived daemon: it opens
// the serial link, enumerates the board, loads the registered drivers
// and then services the link until interrupted.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	corelink "github.com/corelink-io/go-corelink"
	"github.com/corelink-io/go-corelink/detection"
	"github.com/corelink-io/go-corelink/transport/uart"

	// Register the stock drivers so enumeration can load them by name.
	_ "github.com/corelink-io/go-corelink/drivers/gpio"
	_ "github.com/corelink-io/go-corelink/drivers/led"
)

// zlogAdapter bridges zerolog into the printf-style bus logger.
type zlogAdapter struct {
	log zerolog.Logger
}

func (a zlogAdapter) Debugf(format string, args ...any) { a.log.Debug().Msgf(format, args...) }
func (a zlogAdapter) Infof(format string, args ...any)  { a.log.Info().Msgf(format, args...) }
func (a zlogAdapter) Warnf(format string, args ...any)  { a.log.Warn().Msgf(format, args...) }
func (a zlogAdapter) Errorf(format string, args ...any) { a.log.Error().Msgf(format, args...) }

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	device := flag.String("device", "", "serial device (overrides config, empty = autodetect)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corelinkd: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	log := newLogger(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("daemon failed")
	}
}

func newLogger(cfg LogConfig) zerolog.Logger {
	// CORELINKD_LOG_LEVEL overrides the config file, handy on a deployed
	// box where editing the config means another rollout.
	levelName := cfg.Level
	if env := os.Getenv("CORELINKD_LOG_LEVEL"); env != "" {
		levelName = env
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func run(cfg Config, log zerolog.Logger) error {
	port := cfg.Serial.Device
	if port == "" {
		devices, err := detection.DetectAll(nil)
		if err != nil {
			return fmt.Errorf("device detection: %w", err)
		}
		if len(devices) == 0 {
			return errors.New("no board found; specify a device")
		}
		port = devices[0].Path
		log.Info().Str("port", port).Str("product", devices[0].Product).Msg("auto-detected board")
	}

	channel, err := uart.New(port, uart.WithBaudRate(cfg.Serial.BaudRate))
	if err != nil {
		return fmt.Errorf("open %s: %w", port, err)
	}

	bus, err := corelink.New(channel, corelink.WithLogger(zlogAdapter{log: log}))
	if err != nil {
		channel.Close()
		return err
	}
	defer bus.Close()

	log.Info().Str("port", port).Int("baud", cfg.Serial.BaudRate).Msg("starting bus")
	if err := bus.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- serve(bus, log) }()

	if ms := cfg.Poll.GPIOInputMillis; ms > 0 {
		go pollInputs(bus, log, time.Duration(ms)*time.Millisecond)
	}

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		return nil
	case err := <-done:
		return err
	}
}

// serve pumps the link. Read timeouts surface as nil from
// HandleReadable, so this spins at the channel's read timeout when the
// board is quiet.
func serve(bus *corelink.Bus, log zerolog.Logger) error {
	for {
		if err := bus.HandleReadable(); err != nil {
			if corelink.GetErrorType(err) == corelink.ErrorTypePermanent {
				return err
			}
			log.Warn().Err(err).Msg("transient link error")
		}
	}
}

// pollInputs periodically requests a sample from every core named gpio.
func pollInputs(bus *corelink.Bus, log zerolog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		for _, c := range bus.Cores() {
			if c.Name != "gpio" || !c.Registered {
				continue
			}
			core := c.Core
			bus.Do(func() {
				if err := bus.ReadRegister(core, 0x02, 1); err != nil {
					log.Warn().Err(err).Uint8("core", core).Msg("gpio poll failed")
				}
			})
		}
	}
}
