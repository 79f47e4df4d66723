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

package telex

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/ZaparooProject/go-telex/statusled"
	"github.com/ZaparooProject/go-telex/tty"
)

// Pins are the line functions of one teleprinter. TX and RX are required;
// Relay and LED may be nil.
type Pins struct {
	TX    tty.LineOut
	RX    tty.LineIn
	Relay tty.LineOut
	LED   statusled.PWM
}

// OpenPins initializes the periph host drivers and opens the GPIO pins
// named in pc.
func OpenPins(pc *PinConfig) (*Pins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHardwareInit, err)
	}
	return resolvePins(pc, gpioreg.ByName)
}

// resolvePins looks pins up through byName and puts them in their idle state:
// RX pulled up, TX at mark, relay off.
func resolvePins(pc *PinConfig, byName func(string) gpio.PinIO) (*Pins, error) {
	lookup := func(field, name string) (gpio.PinIO, error) {
		p := byName(name)
		if p == nil {
			return nil, newConfigError(field, fmt.Errorf("%w: %s", ErrPinNotFound, name))
		}
		return p, nil
	}

	if pc.TX == "" {
		return nil, newConfigError("pins.tx", ErrMissingPin)
	}
	if pc.RX == "" {
		return nil, newConfigError("pins.rx", ErrMissingPin)
	}

	rx, err := lookup("pins.rx", pc.RX)
	if err != nil {
		return nil, err
	}
	if err := rx.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure rx %s: %w", pc.RX, err)
	}

	tx, err := lookup("pins.tx", pc.TX)
	if err != nil {
		return nil, err
	}
	if err := tx.Out(gpio.Level(!pc.TXInvert)); err != nil {
		return nil, fmt.Errorf("configure tx %s: %w", pc.TX, err)
	}

	pins := &Pins{TX: tx, RX: rx}

	if pc.Relay != "" {
		relay, err := lookup("pins.relay", pc.Relay)
		if err != nil {
			return nil, err
		}
		if err := relay.Out(gpio.Level(pc.RelayInvert)); err != nil {
			return nil, fmt.Errorf("configure relay %s: %w", pc.Relay, err)
		}
		pins.Relay = relay
	}

	if pc.LED != "" {
		led, err := lookup("pins.led", pc.LED)
		if err != nil {
			return nil, err
		}
		pins.LED = led
	}

	Debugf("pins: tx=%s rx=%s relay=%s led=%s", pc.TX, pc.RX, pc.Relay, pc.LED)
	return pins, nil
}
