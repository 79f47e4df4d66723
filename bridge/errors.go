// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridge

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"syscall"

	"go.bug.st/serial"
)

// Error categories for retry logic
var (
	// Port errors - potentially retryable
	ErrPortBusy     = errors.New("port busy")
	ErrPortNotFound = errors.New("port not found")
	ErrPortRead     = errors.New("port read failed")
	ErrPortWrite    = errors.New("port write failed")

	// Port errors - not retryable
	ErrPortClosed       = errors.New("port is closed")
	ErrPortUnusable     = errors.New("port cannot be used")
	ErrPermissionDenied = errors.New("permission denied")

	// Bridge lifecycle
	ErrServerClosed = errors.New("bridge server closed")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates the port is gone or unusable
	ErrorTypePermanent
)

// PortError wraps port-level errors with additional context
type PortError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port name
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *PortError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

// NewPortError creates a PortError of the given type.
func NewPortError(op, port string, err error, errType ErrorType) *PortError {
	return &PortError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient,
	}
}

// classifySerialError maps go.bug.st/serial error codes onto our categories.
// A USB adapter that is still enumerating reports PortNotFound, so that
// counts as transient. End of stream means the port went away.
func classifySerialError(op, port string, err error) error {
	if err == nil {
		return nil
	}

	var pe *serial.PortError
	if !errors.As(err, &pe) {
		if isDeviceGoneError(err) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return NewPortError(op, port, err, ErrorTypePermanent)
		}
		return NewPortError(op, port, err, ErrorTypeTransient)
	}

	//nolint:exhaustive // remaining codes are configuration mistakes
	switch pe.Code() {
	case serial.PortBusy:
		return NewPortError(op, port, fmt.Errorf("%w: %w", ErrPortBusy, err), ErrorTypeTransient)
	case serial.PortNotFound:
		return NewPortError(op, port, fmt.Errorf("%w: %w", ErrPortNotFound, err), ErrorTypeTransient)
	case serial.PermissionDenied:
		return NewPortError(op, port, fmt.Errorf("%w: %w", ErrPermissionDenied, err), ErrorTypePermanent)
	case serial.PortClosed:
		return NewPortError(op, port, fmt.Errorf("%w: %w", ErrPortClosed, err), ErrorTypePermanent)
	default:
		return NewPortError(op, port, fmt.Errorf("%w: %w", ErrPortUnusable, err), ErrorTypePermanent)
	}
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pe *PortError
	if errors.As(err, &pe) {
		return pe.Retryable
	}

	switch {
	case errors.Is(err, ErrPortBusy),
		errors.Is(err, ErrPortNotFound),
		errors.Is(err, ErrPortRead),
		errors.Is(err, ErrPortWrite):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the port is gone and the
// bridge should reopen it rather than keep pumping.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var pe *PortError
	if errors.As(err, &pe) {
		return pe.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrPortClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors raised when a USB serial
// adapter is unplugged during I/O.
func isDeviceGoneError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}

		if runtime.GOOS == "windows" {
			//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
			switch errno {
			case errAccessDenied, errGenFailure, errNoSuchDevice:
				return true
			}
		}
	}

	return false
}
