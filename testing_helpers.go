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
	"sync"
	"time"
)

// MockChannel is an in-memory Channel for testing. Reads are served from
// a queue of scripted byte slices, one slice per Read call; writes are
// captured for inspection.
type MockChannel struct {
	WriteErr   error
	reads      [][]byte
	writes     [][]byte
	mu         sync.Mutex
	ShortWrite int
	closed     bool
}

// NewMockChannel creates an empty mock channel.
func NewMockChannel() *MockChannel {
	return &MockChannel{}
}

// QueueRead schedules bytes to be returned by the next Read call.
func (m *MockChannel) QueueRead(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, append([]byte(nil), p...))
}

// Read pops the next scripted slice, or returns (0, nil) when the script
// is exhausted, mimicking a quiet poll interval.
func (m *MockChannel) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrChannelClosed
	}
	if len(m.reads) == 0 {
		return 0, nil
	}
	n := copy(p, m.reads[0])
	if n < len(m.reads[0]) {
		m.reads[0] = m.reads[0][n:]
	} else {
		m.reads = m.reads[1:]
	}
	return n, nil
}

// Write captures the written bytes. WriteErr, if set, is returned instead;
// ShortWrite, if positive, truncates the next write to that many bytes.
func (m *MockChannel) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrChannelClosed
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	n := len(p)
	if m.ShortWrite > 0 && m.ShortWrite < n {
		n = m.ShortWrite
		m.ShortWrite = 0
	}
	m.writes = append(m.writes, append([]byte(nil), p[:n]...))
	return n, nil
}

// Writes returns the captured writes.
func (m *MockChannel) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// ResetWrites discards the captured writes.
func (m *MockChannel) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

// Close marks the channel closed.
func (m *MockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Port identifies the mock channel.
func (*MockChannel) Port() string { return "mock" }

// FakeScheduler records armed timers and fires them only when the test
// says so, making watchdog behavior deterministic.
type FakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	d       time.Duration
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewFakeScheduler creates an empty fake scheduler.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

// AfterFunc records a timer without ever firing it on its own.
func (s *FakeScheduler) AfterFunc(d time.Duration, fn func()) TimerToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Armed returns the number of timers that are neither fired nor stopped.
func (s *FakeScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// ExpireNext marks the oldest live timer as expired and returns its
// callback without running it. This models a real timer whose deadline
// passed while the callback is still waiting to run: Stop already reports
// false, yet the function fires later. It returns nil if no timer is live.
func (s *FakeScheduler) ExpireNext() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			return t.fn
		}
	}
	return nil
}

// FireNext fires the oldest live timer, simulating its expiry. It returns
// false if no timer is live.
func (s *FakeScheduler) FireNext() bool {
	s.mu.Lock()
	var next *fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()

	if next == nil {
		return false
	}
	next.fn()
	return true
}
