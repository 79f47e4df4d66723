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

// Package tty implements a tick-driven software UART for teleprinter lines.
//
// Teleprinters run at 45-100 baud with 1.5 stop bits, far below what a
// hardware UART supports. The Engine oversamples a single half-duplex line
// from a periodic callback, transmits queued codes bit by bit, and decodes
// rotary dial pulses sent over the same line.
//
// All line I/O and state transitions happen inside Tick. Write, Read and the
// other methods only touch the queues and a few atomic flags, so they are
// safe to call from any goroutine while the scheduler is running.
package tty

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/ZaparooProject/go-telex/internal/syncutil"
	"github.com/ZaparooProject/go-telex/scheduler"
)

// Engine errors
var (
	ErrMissingPin      = errors.New("line pin not provided")
	ErrInvalidTiming   = errors.New("invalid line timing")
	ErrUnknownDialMode = errors.New("unknown dial mode")
	ErrClosed          = errors.New("engine closed")
)

// LineIn samples the receive line. periph's gpio.PinIn satisfies it.
type LineIn interface {
	Read() gpio.Level
}

// LineOut drives the transmit line. periph's gpio.PinOut satisfies it.
type LineOut interface {
	Out(l gpio.Level) error
}

// Config holds the line parameters of an Engine.
type Config struct {
	Baud       float64
	TickPeriod time.Duration
	InvertTX   bool
	InvertRX   bool
	DialMode   DialMode
}

// DefaultConfig returns 50 baud sampled every millisecond with pulse dialing.
func DefaultConfig() *Config {
	return &Config{
		Baud:       50,
		TickPeriod: time.Millisecond,
		DialMode:   DialModePulse,
	}
}

// Stats counts line events since the engine was created.
type Stats struct {
	Received   int64 // complete characters sampled off the line
	Sent       int64 // codes transmitted
	Spikes     int64 // start bits that did not last to the check instant
	Collisions int64 // line found low right after our own stop bit
	TXErrors   int64 // failed writes to the TX pin
}

// Engine is the line state machine.
type Engine struct {
	tx LineOut
	rx LineIn

	sched  scheduler.Scheduler
	lifeMu syncutil.Mutex // guards sched and closed

	rxq queue
	txq queue

	invertTX bool
	invertRX bool
	closed   bool

	dialing  atomic.Bool
	dialMode atomic.Int32

	received   atomic.Int64
	sent       atomic.Int64
	spikes     atomic.Int64
	collisions atomic.Int64
	txErrors   atomic.Int64

	// state machine, guarded by mu
	mu      syncutil.Mutex
	timing  Timing
	state   State
	tick    int
	counter int
	pulses  int
	rxData  byte
	rxMask  byte
	txData  byte
	level   gpio.Level // last sampled RX level
}

// New creates an Engine in state OFF with the TX line at mark.
// A nil config selects DefaultConfig.
func New(cfg *Config, tx LineOut, rx LineIn) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: tx", ErrMissingPin)
	}
	if rx == nil {
		return nil, fmt.Errorf("%w: rx", ErrMissingPin)
	}

	timing, err := NewTiming(cfg.Baud, cfg.TickPeriod)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		tx:       tx,
		rx:       rx,
		invertTX: cfg.InvertTX,
		invertRX: cfg.InvertRX,
		timing:   timing,
		state:    StateOff,
		level:    gpio.High,
	}
	e.dialMode.Store(int32(cfg.DialMode))

	if err := e.tx.Out(e.lineLevel(true)); err != nil {
		return nil, fmt.Errorf("drive tx idle: %w", err)
	}
	return e, nil
}

// Init recomputes the timing for a new baud rate or tick period and
// resynchronises with the line from state OFF. Pins and queued codes are
// kept. A running scheduler is restarted at the new period.
func (e *Engine) Init(baud float64, tick time.Duration) error {
	timing, err := NewTiming(baud, tick)
	if err != nil {
		return err
	}

	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if e.sched != nil {
		e.sched.Stop()
	}

	e.mu.Lock()
	e.timing = timing
	e.setState(StateOff)
	e.drive(true)
	e.mu.Unlock()

	if e.sched != nil {
		if err := e.sched.Start(timing.TickPeriod, e.Tick); err != nil {
			e.sched = nil
			return fmt.Errorf("restart scheduler: %w", err)
		}
	}
	return nil
}

// Start registers Tick with s at the engine's tick period.
func (e *Engine) Start(s scheduler.Scheduler) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.sched != nil {
		return scheduler.ErrAlreadyStarted
	}

	e.mu.Lock()
	period := e.timing.TickPeriod
	e.mu.Unlock()

	if err := s.Start(period, e.Tick); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	e.sched = s
	return nil
}

// Close stops the scheduler, halts the state machine, drops both queues and
// leaves the TX line at mark. The scheduler is stopped first so no tick can
// run against released state. Close is idempotent.
func (e *Engine) Close() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if e.sched != nil {
		e.sched.Stop()
		e.sched = nil
	}

	e.mu.Lock()
	e.setState(StateHalted)
	e.drive(true)
	e.mu.Unlock()

	e.rxq.clear()
	e.txq.clear()
	e.dialing.Store(false)
	return nil
}

// Write queues codes for transmission. Only the low five bits are sent.
// Codes written after Close are dropped.
func (e *Engine) Write(codes []byte) {
	if len(codes) == 0 || e.isClosed() {
		return
	}
	masked := make([]byte, len(codes))
	for i, c := range codes {
		masked[i] = c & 0x1F
	}
	e.txq.push(masked...)
}

// Read pops up to count received entries, or all of them when count <= 0.
func (e *Engine) Read(count int) []byte {
	return e.rxq.take(count)
}

// Any returns the number of received entries waiting.
func (e *Engine) Any() int {
	return e.rxq.len()
}

// Pending returns the number of codes waiting to be transmitted.
func (e *Engine) Pending() int {
	return e.txq.len()
}

// Inject appends entries to the RX queue as if they had been received.
func (e *Engine) Inject(codes []byte) {
	if len(codes) == 0 || e.isClosed() {
		return
	}
	e.rxq.push(codes...)
}

// Dial enables or disables dial decoding.
func (e *Engine) Dial(enable bool) {
	e.dialing.Store(enable)
}

// Dialing reports whether dial decoding is active.
func (e *Engine) Dialing() bool {
	return e.dialing.Load()
}

// SetDialMode selects pulse or keyboard dialing.
func (e *Engine) SetDialMode(m DialMode) {
	e.dialMode.Store(int32(m))
}

// DialMode returns the selected dial mode.
func (e *Engine) DialMode() DialMode {
	return DialMode(e.dialMode.Load())
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StateString renders the state, the dial flag and the last sampled line level.
func (e *Engine) StateString() string {
	e.mu.Lock()
	state, level := e.state, e.level
	e.mu.Unlock()

	dial := "off"
	if e.Dialing() {
		dial = e.DialMode().String()
	}
	line := 0
	if level {
		line = 1
	}
	return fmt.Sprintf("%s dial=%s line=%d", state, dial, line)
}

// Timing returns the tick instants in use.
func (e *Engine) Timing() Timing {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timing
}

// GetStats returns a snapshot of the line counters.
func (e *Engine) GetStats() Stats {
	return Stats{
		Received:   e.received.Load(),
		Sent:       e.sent.Load(),
		Spikes:     e.spikes.Load(),
		Collisions: e.collisions.Load(),
		TXErrors:   e.txErrors.Load(),
	}
}

func (e *Engine) isClosed() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.closed
}
