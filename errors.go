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
	"errors"
	"fmt"
)

// Frame decode and validation errors. These are always recovered locally:
// the offending frame is logged and dropped, nothing propagates.
var (
	// ErrProtocolViolation indicates an illegal escape sequence in the byte stream
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrFrameMalformed indicates a frame too short or with bad header markers
	ErrFrameMalformed = errors.New("malformed frame")
	// ErrBadCore indicates a core id outside the configured core range
	ErrBadCore = errors.New("core id out of range")
	// ErrCountMismatch indicates a read completion whose remaining byte
	// disagrees with the requested and returned byte counts
	ErrCountMismatch = errors.New("read count mismatch")
)

// Channel and registry errors
var (
	// ErrWouldBlock indicates a write hit transient back-pressure and
	// should be retried by the caller's own timer
	ErrWouldBlock = errors.New("write would block")
	// ErrChannelClosed indicates the byte channel is gone
	ErrChannelClosed = errors.New("channel closed")
	// ErrChannelRead indicates a failed channel read
	ErrChannelRead = errors.New("channel read failed")
	// ErrChannelWrite indicates a failed channel write
	ErrChannelWrite = errors.New("channel write failed")
	// ErrSinkRegistered indicates the core already has a packet sink
	ErrSinkRegistered = errors.New("sink already registered")
	// ErrUnknownDriver indicates no factory exists for an enumerated name
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrInvalidParameter indicates invalid input parameters
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType categorizes transport errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that will not resolve on retry
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates an error that may resolve on retry
	ErrorTypeTransient
	// ErrorTypeTimeout indicates an operation that timed out
	ErrorTypeTimeout
)

// TransportError wraps channel-level failures with operation context
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("corelink %s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("corelink %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with explicit classification
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewWouldBlockError creates the transient error reported for a short write
// caused by back-pressure
func NewWouldBlockError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrWouldBlock,
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// NewTimeoutError creates a timeout transport error
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrChannelRead,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewFatalError creates a permanent transport error for write failures not
// attributable to back-pressure
func NewFatalError(op, port string, err error) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// IsRetryable returns true if the error may resolve on retry
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrWouldBlock),
		errors.Is(err, ErrChannelRead),
		errors.Is(err, ErrChannelWrite):
		return true
	default:
		return false
	}
}

// GetErrorType classifies an error for retry/backoff decisions
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrWouldBlock),
		errors.Is(err, ErrChannelRead),
		errors.Is(err, ErrChannelWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// IsWouldBlock reports whether err is the transient back-pressure signal
// from a non-blocking write
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}
