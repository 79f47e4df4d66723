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

package testing

import (
	"math"

	"periph.io/x/conn/v3/gpio"
)

// Line levels: mark (current flowing) idles the line, space is the start bit.
const (
	Mark  = gpio.High
	Space = gpio.Low
)

func boundary(k, slice float64) int {
	return int(math.Floor(k*slice + 0.5))
}

// Repeat returns n copies of l.
func Repeat(l gpio.Level, n int) []gpio.Level {
	out := make([]gpio.Level, n)
	for i := range out {
		out[i] = l
	}
	return out
}

// Frame renders one character as per-period levels: a start bit, five data
// bits least significant first, and 1.5 stop bits. slice is the bit length
// in sample periods.
func Frame(code byte, slice float64) []gpio.Level {
	out := make([]gpio.Level, 0, boundary(7.5, slice))
	out = append(out, Repeat(Space, boundary(1, slice))...)
	for i := range 5 {
		n := boundary(float64(i+2), slice) - boundary(float64(i+1), slice)
		out = append(out, Repeat(gpio.Level(code&(1<<i) != 0), n)...)
	}
	return append(out, Repeat(Mark, boundary(7.5, slice)-boundary(6, slice))...)
}

// Frames renders codes back to back with gap periods of mark between them.
func Frames(codes []byte, slice float64, gap int) []gpio.Level {
	var out []gpio.Level
	for _, c := range codes {
		out = append(out, Frame(c, slice)...)
		out = append(out, Repeat(Mark, gap)...)
	}
	return out
}

// PulseTrain renders a rotary dial digit: pulses breaks of space, each
// followed by a make of mark.
func PulseTrain(pulses, breakPeriods, makePeriods int) []gpio.Level {
	var out []gpio.Level
	for range pulses {
		out = append(out, Repeat(Space, breakPeriods)...)
		out = append(out, Repeat(Mark, makePeriods)...)
	}
	return out
}

// DecodeFrames recovers character codes from a per-period trace by finding
// each start bit and sampling the data bits mid-bit. Frames with a bad stop
// bit are skipped.
func DecodeFrames(trace []gpio.Level, slice float64) []byte {
	var codes []byte
	stop := boundary(6.5, slice)

	for i := 1; i < len(trace); i++ {
		if !(trace[i-1] == Mark && trace[i] == Space) {
			continue
		}
		if i+stop >= len(trace) {
			break
		}
		var code byte
		for bit := range 5 {
			if trace[i+boundary(1.5+float64(bit), slice)] == Mark {
				code |= 1 << bit
			}
		}
		if trace[i+stop] == Mark {
			codes = append(codes, code)
		}
		i += stop
	}
	return codes
}
