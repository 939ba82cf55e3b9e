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
	"time"
)

// TimerToken is a handle for one armed timer. Stop cancels the timer if it
// has not fired yet and reports whether it did.
type TimerToken interface {
	Stop() bool
}

// Scheduler arms one-shot timers. The default implementation uses
// time.AfterFunc; tests substitute a manually fired fake.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) TimerToken
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) TimerToken {
	return time.AfterFunc(d, fn)
}

// NewScheduler returns the time.AfterFunc backed Scheduler.
func NewScheduler() Scheduler { return realScheduler{} }

// pendingTimer guards one logical pending operation with at most one live
// timer token. A nil token means no timer is armed; Arm refuses to stack a
// second timer on the same wait.
//
// Each arming carries a generation number. A timer can expire just before
// Rearm or Cancel replaces it (Stop returns false, but the callback still
// runs once the lock is free); the callback hands its generation back to
// fired, which rejects it when a newer timer has taken over the wait.
type pendingTimer struct {
	sched Scheduler
	token TimerToken
	gen   uint64
}

// Arm starts the timer if none is armed. It returns false when a timer is
// already live for this operation.
func (p *pendingTimer) Arm(d time.Duration, fn func(gen uint64)) bool {
	if p.token != nil {
		return false
	}
	p.arm(d, fn)
	return true
}

// Rearm cancels any live timer and starts a fresh one.
func (p *pendingTimer) Rearm(d time.Duration, fn func(gen uint64)) {
	p.Cancel()
	p.arm(d, fn)
}

func (p *pendingTimer) arm(d time.Duration, fn func(gen uint64)) {
	p.gen++
	gen := p.gen
	p.token = p.sched.AfterFunc(d, func() { fn(gen) })
}

// Cancel stops and clears the live timer, if any. A callback already past
// its deadline is disowned: its generation no longer matches.
func (p *pendingTimer) Cancel() {
	if p.token != nil {
		p.token.Stop()
		p.token = nil
		p.gen++
	}
}

// Armed reports whether a timer is live.
func (p *pendingTimer) Armed() bool { return p.token != nil }

// fired clears the token from inside a timer callback, where the timer has
// already spent itself. It reports false for a stale callback whose timer
// was replaced or cancelled after expiry; the current token is left alone.
func (p *pendingTimer) fired(gen uint64) bool {
	if gen != p.gen {
		return false
	}
	p.token = nil
	return true
}
