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

import "fmt"

// Phase is the major state of the line state machine.
type Phase int

const (
	PhaseOff Phase = iota
	PhaseListen
	PhaseRX
	PhaseTX
	PhaseDial
)

func (p Phase) String() string {
	switch p {
	case PhaseOff:
		return "off"
	case PhaseListen:
		return "listen"
	case PhaseRX:
		return "rx"
	case PhaseTX:
		return "tx"
	case PhaseDial:
		return "dial"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// DialPhase is the sub-state of PhaseDial. It is DialNone in every other phase.
type DialPhase int

const (
	DialNone DialPhase = iota
	DialWait
	DialPulse
	DialPause
)

func (d DialPhase) String() string {
	switch d {
	case DialNone:
		return "none"
	case DialWait:
		return "wait"
	case DialPulse:
		return "pulse"
	case DialPause:
		return "pause"
	default:
		return fmt.Sprintf("dial(%d)", int(d))
	}
}

// State is one concrete state of the engine. Only the named State values
// below are ever produced.
type State struct {
	Phase Phase
	Dial  DialPhase
	// CanTransmit allows a queued code to start at the end of the tick.
	CanTransmit bool
	// Listening marks states that watch an idle (mark) line.
	Listening bool
	// Inert states ignore the line entirely.
	Inert bool
}

// Engine states.
var (
	StateOff         = State{Phase: PhaseOff}
	StateListen      = State{Phase: PhaseListen, Listening: true}
	StateListenCanTX = State{Phase: PhaseListen, Listening: true, CanTransmit: true}
	StateRX          = State{Phase: PhaseRX}
	StateTX          = State{Phase: PhaseTX}
	StateTXListen    = State{Phase: PhaseTX, Listening: true}
	StateDialWait    = State{Phase: PhaseDial, Dial: DialWait}
	StateDialPulse   = State{Phase: PhaseDial, Dial: DialPulse}
	StateDialPause   = State{Phase: PhaseDial, Dial: DialPause}
	StateHalted      = State{Phase: PhaseOff, Inert: true}
)

// String returns the conventional upper-case state name.
func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateListen:
		return "LISTEN"
	case StateListenCanTX:
		return "LISTEN-CAN-TX"
	case StateRX:
		return "RX"
	case StateTX:
		return "TX"
	case StateTXListen:
		return "TX-THEN-LISTEN"
	case StateDialWait:
		return "DIAL-WAIT"
	case StateDialPulse:
		return "DIAL-PULSE"
	case StateDialPause:
		return "DIAL-PAUSE"
	case StateHalted:
		return "HALTED"
	default:
		return fmt.Sprintf("%s/%s", s.Phase, s.Dial)
	}
}
