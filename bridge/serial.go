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
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"

	telex "github.com/ZaparooProject/go-telex"
)

// OpenSerial opens a serial port at 8N1. Reads block until data arrives.
func OpenSerial(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, classifySerialError("open", name, err)
	}
	return port, nil
}

// OpenSerialWithRetry opens a serial port, retrying while it is busy or not
// yet present. A nil config selects DefaultRetryConfig.
func OpenSerialWithRetry(ctx context.Context, name string, baud int, config *RetryConfig) (serial.Port, error) {
	var port serial.Port
	attempt := 0
	err := RetryWithConfig(ctx, config, func() error {
		attempt++
		p, err := OpenSerial(name, baud)
		if err != nil {
			telex.Debugf("serial %s: open attempt %d: %v", name, attempt, err)
			return err
		}
		port = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// opener opens a port by name; ServeSerial uses OpenSerialWithRetry.
type opener func(ctx context.Context) (io.ReadWriteCloser, error)

// ServeSerial pumps t over a serial port until ctx is done or the teleprinter
// quits. When the adapter is unplugged the port is reopened.
func ServeSerial(ctx context.Context, t Terminal, name string, baud int, opts PumpOptions, retry *RetryConfig) error {
	return serveLoop(ctx, t, name, opts, func(ctx context.Context) (io.ReadWriteCloser, error) {
		return OpenSerialWithRetry(ctx, name, baud, retry)
	})
}

func serveLoop(ctx context.Context, t Terminal, name string, opts PumpOptions, open opener) error {
	for {
		port, err := open(ctx)
		if err != nil {
			return err
		}
		telex.Debugf("serial %s: connected", name)

		err = Pump(ctx, t, port, opts)
		_ = port.Close()

		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, telex.ErrClosed):
			return err
		}

		err = classifySerialError("pump", name, err)
		if !IsFatal(err) {
			return err
		}
		telex.Debugf("serial %s: port lost, reopening: %v", name, err)
	}
}
