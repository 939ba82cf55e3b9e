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

// Command coresh is an interactive shell for poking board cores: it
// detects and opens the serial link, runs enumeration, and then lets you
// read and write registers on any core by hand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	corelink "github.com/corelink-io/go-corelink"
	"github.com/corelink-io/go-corelink/detection"
	"github.com/corelink-io/go-corelink/internal/retry"
	"github.com/corelink-io/go-corelink/transport/uart"

	_ "github.com/corelink-io/go-corelink/drivers/gpio"
	_ "github.com/corelink-io/go-corelink/drivers/led"
)

const unconnectedPrompt = "[none] > "

type session struct {
	shell *ishell.Shell
	bus   *corelink.Bus
	stop  chan struct{}
}

const sessionKey = "$session"

func sessionFrom(c *ishell.Context) *session {
	return c.Get(sessionKey).(*session)
}

func mustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if sessionFrom(c).bus == nil {
			c.Err(errors.New("not connected"))
			return
		}
		fn(c)
	}
}

func main() {
	device := flag.String("device", "", "serial device (empty = autodetect)")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	sh := ishell.New()
	s := &session{shell: sh}
	sh.Set(sessionKey, s)
	sh.SetPrompt(unconnectedPrompt)

	sh.AddCmd(&ishell.Cmd{
		Name:    "detect",
		Aliases: []string{"list"},
		Help:    "list candidate board ports",
		Func:    cmdDetect,
	})
	sh.AddCmd(&ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			port := *device
			if len(c.Args) > 0 {
				port = c.Args[0]
			}
			if err := s.connect(port, *baud); err != nil {
				c.Err(err)
			}
		},
	})
	sh.AddCmd(&ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close the link",
		Func: func(c *ishell.Context) {
			sessionFrom(c).disconnect()
		},
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "cores",
		Help: "show the enumerated core table",
		Func: mustBeConnected(cmdCores),
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "info",
		Help: "show board build metadata",
		Func: mustBeConnected(cmdInfo),
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "read",
		Help: "CORE REG [COUNT]",
		Func: mustBeConnected(cmdRead),
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "write",
		Help: "CORE REG BYTE...",
		Func: mustBeConnected(cmdWrite),
	})

	if args := flag.Args(); len(args) > 0 {
		if err := sh.Process(args...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		s.disconnect()
		return
	}
	sh.Println("coresh - board register shell. Type 'help' for commands.")
	sh.Run()
	s.disconnect()
}

func (s *session) connect(port string, baud int) error {
	if s.bus != nil {
		return errors.New("already connected; disconnect first")
	}
	if port == "" {
		devices, err := detection.DetectAll(nil)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return errors.New("no board found; pass a device")
		}
		port = devices[0].Path
	}

	channel, err := uart.New(port, uart.WithBaudRate(baud))
	if err != nil {
		return err
	}
	bus, err := corelink.New(channel)
	if err != nil {
		channel.Close()
		return err
	}
	if err := bus.Start(); err != nil {
		bus.Close()
		return err
	}

	s.bus = bus
	s.stop = make(chan struct{})
	go s.pump(bus, s.stop)
	s.shell.SetPrompt(port + " > ")
	return nil
}

func (s *session) disconnect() {
	if s.bus == nil {
		return
	}
	close(s.stop)
	s.bus.Close()
	s.bus = nil
	s.shell.SetPrompt(unconnectedPrompt)
}

// pump takes the bus and stop channel as arguments rather than reading the
// session fields, which disconnect rewrites concurrently. After Close the
// read loop ends on the fatal channel error anyway.
func (s *session) pump(bus *corelink.Bus, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := bus.HandleReadable(); err != nil {
			s.shell.Printf("link error: %v\n", err)
			return
		}
	}
}

func cmdDetect(c *ishell.Context) {
	devices, err := detection.DetectAll(nil)
	if err != nil {
		c.Err(err)
		return
	}
	if len(devices) == 0 {
		c.Println("No boards found")
		return
	}
	for _, d := range devices {
		c.Printf("%s  %s (%s:%s serial %s)\n", d.Path, d.Product, d.VID, d.PID, d.SerialNumber)
	}
}

func cmdCores(c *ishell.Context) {
	for _, core := range sessionFrom(c).bus.Cores() {
		name := core.Name
		if name == "" {
			name = "-"
		}
		status := " "
		if core.Registered {
			status = "*"
		}
		slot := "  "
		if core.Slot >= 0 {
			slot = fmt.Sprintf("%2d", core.Slot)
		}
		c.Printf("%s core %2d  slot %s  %s\n", status, core.Core, slot, name)
	}
}

func cmdInfo(c *ishell.Context) {
	info := sessionFrom(c).bus.Info()
	c.Printf("copyright:  %s\n", info.Copyright)
	c.Printf("licensee:   %s\n", info.Licensee)
	c.Printf("build date: %s\n", info.BuildDate)
}

func cmdRead(c *ishell.Context) {
	if len(c.Args) < 2 {
		c.Err(errors.New("usage: read CORE REG [COUNT]"))
		return
	}
	core, reg, err := parseCoreReg(c.Args)
	if err != nil {
		c.Err(err)
		return
	}
	count := byte(1)
	if len(c.Args) > 2 {
		v, err := parseByte(c.Args[2])
		if err != nil {
			c.Err(err)
			return
		}
		count = v
	}

	s := sessionFrom(c)
	result := make(chan *corelink.Frame, 1)

	var sendErr error
	s.bus.Do(func() {
		s.bus.SetObserver(func(f *corelink.Frame) {
			if f.IsCompletion() && f.Core == core {
				select {
				case result <- f:
				default:
				}
			}
		})
		sendErr = s.bus.ReadRegister(core, reg, count)
	})
	defer s.bus.Do(func() { s.bus.SetObserver(nil) })
	if sendErr != nil {
		c.Err(sendErr)
		return
	}

	f, err := retry.Do(retry.Config{
		Description: fmt.Sprintf("read core %d reg 0x%02X", core, reg),
		MaxRetries:  20,
		Delay:       50 * time.Millisecond,
	}, func() (*corelink.Frame, bool, error) {
		select {
		case f := <-result:
			return f, false, nil
		default:
			return nil, true, nil
		}
	})
	if err != nil {
		c.Err(err)
		return
	}
	c.Printf("% X  (remaining %d)\n", f.Data, f.Remaining)
}

func cmdWrite(c *ishell.Context) {
	if len(c.Args) < 3 {
		c.Err(errors.New("usage: write CORE REG BYTE..."))
		return
	}
	core, reg, err := parseCoreReg(c.Args)
	if err != nil {
		c.Err(err)
		return
	}
	data := make([]byte, 0, len(c.Args)-2)
	for _, arg := range c.Args[2:] {
		v, err := parseByte(arg)
		if err != nil {
			c.Err(err)
			return
		}
		data = append(data, v)
	}

	s := sessionFrom(c)
	var sendErr error
	s.bus.Do(func() { sendErr = s.bus.WriteRegister(core, reg, data) })
	if sendErr != nil {
		c.Err(sendErr)
		return
	}
	c.Println("OK")
}

func parseCoreReg(args []string) (core, reg byte, err error) {
	if core, err = parseByte(args[0]); err != nil {
		return 0, 0, fmt.Errorf("bad core: %w", err)
	}
	if reg, err = parseByte(args[1]); err != nil {
		return 0, 0, fmt.Errorf("bad register: %w", err)
	}
	return core, reg, nil
}

// parseByte accepts decimal or 0x-prefixed hex.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}
