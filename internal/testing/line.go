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

// Package testing provides line doubles for exercising the signal timing
// engine without hardware: scripted receive lines, recording transmit lines,
// and helpers that render and recover teleprinter character frames.
package testing

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// ScriptedLine is a receive line that plays back a level sequence, one level
// per Step. Once the script runs out it reads the idle level.
type ScriptedLine struct {
	levels []gpio.Level
	pos    int
	reads  int
	idle   gpio.Level
	mu     sync.Mutex
}

// NewScriptedLine creates a line that idles at the given level.
func NewScriptedLine(idle gpio.Level) *ScriptedLine {
	return &ScriptedLine{idle: idle}
}

// Append adds levels to the end of the script.
func (s *ScriptedLine) Append(levels ...gpio.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, levels...)
}

// Read returns the level at the current script position.
func (s *ScriptedLine) Read() gpio.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.pos < len(s.levels) {
		return s.levels[s.pos]
	}
	return s.idle
}

// Step moves the script forward by one sample period.
func (s *ScriptedLine) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos < len(s.levels) {
		s.pos++
	}
}

// Remaining returns the number of scripted levels not yet played.
func (s *ScriptedLine) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.levels) - s.pos
}

// Reads returns how many times the line was sampled.
func (s *ScriptedLine) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// SetIdle changes the level read after the script ends.
func (s *ScriptedLine) SetIdle(l gpio.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = l
}

// RecordingLine is a transmit line that records what is driven onto it.
type RecordingLine struct {
	err     error
	writes  []gpio.Level
	samples []gpio.Level
	level   gpio.Level
	mu      sync.Mutex
}

// NewRecordingLine creates a recorder whose line starts at the given level.
func NewRecordingLine(initial gpio.Level) *RecordingLine {
	return &RecordingLine{level: initial}
}

// Out records l. If FailWith set an error, the level is not applied.
func (r *RecordingLine) Out(l gpio.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.level = l
	r.writes = append(r.writes, l)
	return nil
}

// FailWith makes subsequent Out calls return err. A nil err clears it.
func (r *RecordingLine) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Level returns the level currently on the line.
func (r *RecordingLine) Level() gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Sample appends the current level to the per-period trace.
func (r *RecordingLine) Sample() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, r.level)
}

// Samples returns a copy of the per-period trace.
func (r *RecordingLine) Samples() []gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpio.Level(nil), r.samples...)
}

// Writes returns a copy of every level passed to Out.
func (r *RecordingLine) Writes() []gpio.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpio.Level(nil), r.writes...)
}

// Bench steps a tick function against a scripted RX line and a recording TX
// line, keeping both aligned to the same sample period.
type Bench struct {
	RX   *ScriptedLine
	TX   *RecordingLine
	Tick func()
}

// NewBench creates a bench with both lines idling at mark.
func NewBench() *Bench {
	return &Bench{
		RX: NewScriptedLine(gpio.High),
		TX: NewRecordingLine(gpio.High),
	}
}

// Run advances n sample periods.
func (b *Bench) Run(n int) {
	for range n {
		b.Tick()
		b.TX.Sample()
		b.RX.Step()
	}
}

// RunUntil advances until done returns true or limit periods have passed,
// and returns the number of periods run.
func (b *Bench) RunUntil(limit int, done func() bool) int {
	for i := range limit {
		if done() {
			return i
		}
		b.Run(1)
	}
	return limit
}
