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

package tty

import (
	"fmt"
	"strings"
)

// RX sentinels. Payload codes are 0x00-0x1F, so any value from 0x20 up is
// an out-of-band line event. The values are stable across releases.
const (
	LineDropped  byte = 0xA0
	LineRestored byte = 0xA1
	DialError    byte = 0xED
	DialDigit0   byte = 0xD0
)

// IsSentinel reports whether b is an out-of-band line event rather than a code.
func IsSentinel(b byte) bool {
	return b > 0x1F
}

// DialDigit returns the sentinel for digit n (0-9).
func DialDigit(n int) byte {
	return DialDigit0 + byte(n%10)
}

// DigitOf returns the digit carried by a dial-digit sentinel.
func DigitOf(b byte) (int, bool) {
	if b < DialDigit0 || b > DialDigit0+9 {
		return 0, false
	}
	return int(b - DialDigit0), true
}

// DialDigitTable holds the figures-layer codes that print 0-9. A keyboard
// "dial" sends digits as ordinary characters; in dial mode the engine maps
// them back to digits.
var DialDigitTable = [10]byte{
	0x16, // P 0
	0x17, // Q 1
	0x13, // W 2
	0x01, // E 3
	0x0A, // R 4
	0x10, // T 5
	0x15, // Y 6
	0x07, // U 7
	0x06, // I 8
	0x18, // O 9
}

func digitForCode(code byte) (int, bool) {
	for d, c := range DialDigitTable {
		if c == code {
			return d, true
		}
	}
	return 0, false
}

// DialMode selects how dialed numbers arrive on the line.
type DialMode int

const (
	// DialModePulse counts the line interruptions of a rotary dial.
	DialModePulse DialMode = iota
	// DialModeKey receives digits typed as figures on the keyboard.
	DialModeKey
)

func (m DialMode) String() string {
	switch m {
	case DialModePulse:
		return "pulse"
	case DialModeKey:
		return "key"
	default:
		return fmt.Sprintf("dialmode(%d)", int(m))
	}
}

// ParseDialMode maps a configuration name to a DialMode. Empty selects pulse.
func ParseDialMode(name string) (DialMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pulse", "nsi":
		return DialModePulse, nil
	case "key", "keyboard", "ked":
		return DialModeKey, nil
	default:
		return DialModePulse, fmt.Errorf("%w: %q", ErrUnknownDialMode, name)
	}
}
