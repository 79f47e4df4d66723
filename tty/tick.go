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

import "periph.io/x/conn/v3/gpio"

// stableTicks is how long a dial pulse edge must hold to count.
const stableTicks = 3

// Tick advances the state machine by one sample period. It performs exactly
// one state-dependent action and then admits a queued code for transmission
// if the new state allows it. Tick never blocks.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick++

	switch {
	case e.state.Inert:
		return
	case e.state.Phase == PhaseDial:
		e.tickDial()
	case e.state.Listening:
		e.tickListen()
	case e.state == StateTX:
		e.tickTX()
	case e.state == StateRX:
		e.tickRX()
	case e.state == StateOff:
		e.tickOff()
	}

	if e.state.CanTransmit {
		if code, ok := e.txq.pop(); ok {
			e.txData = code
			e.drive(false) // start bit
			e.setState(StateTX)
		}
	}
}

func (e *Engine) setState(s State) {
	e.setStateAt(s, 0)
}

func (e *Engine) setStateAt(s State, tick int) {
	e.state = s
	e.tick = tick
	e.counter = 0
}

func (e *Engine) enterRX() {
	e.rxData = 0
	e.rxMask = 1
	e.setState(StateRX)
}

// sample reads the RX line and reports whether it is at mark.
func (e *Engine) sample() bool {
	e.level = e.rx.Read()
	return bool(e.level) != e.invertRX
}

// stable counts consecutive samples equal to want and reports when n is reached.
func (e *Engine) stable(mark, want bool, n int) bool {
	if mark != want {
		e.counter = 0
		return false
	}
	e.counter++
	return e.counter >= n
}

func (e *Engine) lineLevel(mark bool) gpio.Level {
	return gpio.Level(mark != e.invertTX)
}

func (e *Engine) drive(mark bool) {
	if err := e.tx.Out(e.lineLevel(mark)); err != nil {
		e.txErrors.Add(1)
	}
}

func (e *Engine) emit(b byte) {
	e.rxq.push(b)
}

// pulseDialing reports whether the idle line should be handed to the dial
// decoder. Queued transmissions take precedence.
func (e *Engine) pulseDialing() bool {
	return e.dialing.Load() && e.DialMode() == DialModePulse && e.txq.len() == 0
}

func (e *Engine) tickOff() {
	mark := e.sample()
	if e.tick == 1 {
		e.emit(LineDropped)
	}
	if e.stable(mark, true, e.timing.CharTicks) {
		e.emit(LineRestored)
		e.setState(StateListen)
	}
}

func (e *Engine) tickListen() {
	mark := e.sample()

	switch e.state {
	case StateListen:
		if !mark {
			e.enterRX()
			return
		}
		if e.tick >= e.timing.CharTicks {
			if e.pulseDialing() {
				e.setState(StateDialWait)
			} else {
				e.setState(StateListenCanTX)
			}
		}
	case StateListenCanTX:
		if !mark {
			e.enterRX()
			return
		}
		if e.pulseDialing() {
			e.setState(StateDialWait)
		}
	case StateTXListen:
		// our stop bit must still be on the line
		if mark {
			if e.tick >= e.timing.TXEnd {
				e.setState(StateListenCanTX)
			}
			return
		}
		if e.tick == e.timing.CheckStop+1 {
			e.collisions.Add(1)
			e.setState(StateListen)
			return
		}
		e.enterRX()
	}
}

func (e *Engine) tickTX() {
	if bit := e.timing.txBit(e.tick); bit >= 0 {
		e.drive(e.txData&1 != 0)
		e.txData >>= 1
		return
	}
	switch e.tick {
	case e.timing.TXStop:
		e.drive(true)
	case e.timing.CheckStop:
		e.sent.Add(1)
		// keep the tick so TX-THEN-LISTEN stays referenced to the start bit
		e.setStateAt(StateTXListen, e.tick)
	}
}

func (e *Engine) tickRX() {
	mark := e.sample()

	if e.tick == e.timing.CheckStart {
		if mark {
			e.spikes.Add(1)
			e.setState(StateListen)
			return
		}
		e.rxData = 0
		e.rxMask = 1
		return
	}

	if bit := e.timing.rxBit(e.tick); bit >= 0 {
		if mark {
			e.rxData |= e.rxMask
		}
		e.rxMask <<= 1
		return
	}

	if e.tick < e.timing.CheckStop {
		return
	}

	if mark {
		e.completeRX()
		return
	}
	// still low: a long break means the line is down
	if e.tick >= 2*e.timing.CharTicks {
		e.setState(StateOff)
	}
}

func (e *Engine) completeRX() {
	code := e.rxData & 0x1F
	e.received.Add(1)
	if e.dialing.Load() {
		if d, ok := digitForCode(code); ok {
			e.emit(DialDigit(d))
		}
	} else {
		e.emit(code)
	}
	e.setState(StateListen)
}

func (e *Engine) tickDial() {
	mark := e.sample()

	switch e.state {
	case StateDialWait:
		if mark {
			e.counter = 0
			if !e.pulseDialing() {
				e.setState(StateListen)
			}
			return
		}
		if e.stable(mark, false, stableTicks) {
			e.pulses = 0
			e.setState(StateDialPulse)
		}
	case StateDialPulse:
		if mark {
			if e.stable(mark, true, stableTicks) {
				e.pulses++
				e.setState(StateDialPause)
			}
			return
		}
		e.counter = 0
		if e.tick >= e.timing.SecondTicks {
			e.emit(DialError)
			e.dialing.Store(false)
			e.setState(StateListen)
		}
	case StateDialPause:
		if mark {
			e.counter = 0
			if e.tick >= e.timing.DialGap {
				e.emit(DialDigit(e.pulses))
				e.setState(StateDialWait)
			}
			return
		}
		if e.stable(mark, false, stableTicks) {
			e.setState(StateDialPulse)
		}
	}
}
