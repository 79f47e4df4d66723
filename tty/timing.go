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
	"math"
	"time"
)

// MinBitTicks is the shortest bit slice the sampler can resolve. Below it
// the start-bit check and the first data sample would collapse together.
const MinBitTicks = 4

// dialGap is the pause after the last pulse that completes a dialed digit.
const dialGap = 200 * time.Millisecond

// Timing holds the tick instants derived from a baud rate and tick period.
// All instants count ticks from the start of the current state.
type Timing struct {
	Baud       float64
	TickPeriod time.Duration
	// Slice is the real-valued length of one bit in ticks.
	Slice float64

	BitTicks   int
	CheckStart int
	RXData     [5]int
	CheckStop  int
	TXData     [5]int
	TXStop     int
	TXEnd      int
	// CharTicks is one character: start bit, five data bits and 1.5 stop bits.
	CharTicks   int
	SecondTicks int
	DialGap     int
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// NewTiming derives the tick instants for baud at the given tick period.
func NewTiming(baud float64, tick time.Duration) (Timing, error) {
	if baud <= 0 || math.IsNaN(baud) || math.IsInf(baud, 0) {
		return Timing{}, fmt.Errorf("%w: baud %v", ErrInvalidTiming, baud)
	}
	if tick <= 0 {
		return Timing{}, fmt.Errorf("%w: tick period %v", ErrInvalidTiming, tick)
	}

	slice := float64(time.Second) / float64(tick) / baud
	if slice < MinBitTicks {
		return Timing{}, fmt.Errorf("%w: %.2f ticks per bit at %v baud with %v tick, need %d",
			ErrInvalidTiming, slice, baud, tick, MinBitTicks)
	}

	t := Timing{
		Baud:        baud,
		TickPeriod:  tick,
		Slice:       slice,
		BitTicks:    roundHalfUp(slice),
		CheckStart:  roundHalfUp(0.5 * slice),
		CheckStop:   roundHalfUp(6.5 * slice),
		TXStop:      roundHalfUp(6 * slice),
		TXEnd:       roundHalfUp(7.5 * slice),
		CharTicks:   roundHalfUp(7.5 * slice),
		SecondTicks: int(time.Second / tick),
		DialGap:     int(dialGap / tick),
	}
	for i := range 5 {
		t.RXData[i] = roundHalfUp((1.5 + float64(i)) * slice)
		t.TXData[i] = roundHalfUp((1 + float64(i)) * slice)
	}
	return t, nil
}

// rxBit returns the data bit index sampled at tick, or -1.
func (t *Timing) rxBit(tick int) int {
	for i, at := range t.RXData {
		if at == tick {
			return i
		}
	}
	return -1
}

// txBit returns the data bit index driven at tick, or -1.
func (t *Timing) txBit(tick int) int {
	for i, at := range t.TXData {
		if at == tick {
			return i
		}
	}
	return -1
}
