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

// Package telex drives a historic teleprinter from Go.
//
// A Telex combines the tick-driven line engine (package tty) with the
// Baudot-Murray codec (package codec) behind a plain text interface. Text
// written to it is encoded and sent to the machine; text typed on the
// machine is decoded and returned by ReadText.
//
// Basic usage:
//
//	cfg, err := telex.LoadConfig("telex.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	t, err := telex.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Close()
//
//	_ = t.Power(true)
//	_, _ = t.WriteString("RYRYRYRYRY\r\n")
//	fmt.Print(t.ReadText(0))
//
// An ESC character in the written text starts a one-letter command instead
// of being sent, e.g. "\x1bA" switches the machine on. Every command is
// acknowledged in the read stream as {c}.
package telex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"periph.io/x/conn/v3/gpio"

	"github.com/ZaparooProject/go-telex/codec"
	"github.com/ZaparooProject/go-telex/internal/syncutil"
	"github.com/ZaparooProject/go-telex/scheduler"
	"github.com/ZaparooProject/go-telex/statusled"
	"github.com/ZaparooProject/go-telex/tty"
)

const (
	// Escape starts a command in the written text.
	Escape = '\x1b'

	// LED brightness targets for the power states
	ledPowerOn  = 24
	ledPowerOff = 4
)

// Canned test messages
const (
	TestRY      = "RYRYRYRYRY"
	TestFox     = "THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG"
	TestFigures = "1234567890 -+=:/()?.,'"
)

const helpText = "\r\nE=EXIT A=ON Z=OFF D=DIAL T=NODIAL R=RY Q=FOX F=FIGS H=HELP\r\n"

// Option configures a Telex at construction.
type Option func(*options) error

type options struct {
	pins     *Pins
	sched    scheduler.Scheduler
	ledSched scheduler.Scheduler
	noSched  bool
}

// WithPins uses the given pins instead of opening the configured GPIOs.
func WithPins(p Pins) Option {
	return func(o *options) error {
		o.pins = &p
		return nil
	}
}

// WithScheduler drives the line engine from s instead of a Ticker.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(o *options) error {
		if s == nil {
			return errors.New("scheduler must not be nil")
		}
		o.sched = s
		return nil
	}
}

// WithLEDScheduler drives the status LED from s instead of a Ticker.
func WithLEDScheduler(s scheduler.Scheduler) Option {
	return func(o *options) error {
		if s == nil {
			return errors.New("led scheduler must not be nil")
		}
		o.ledSched = s
		return nil
	}
}

// WithoutScheduler leaves the engine and LED unscheduled. The caller drives
// them through Engine().Tick and LED().Step.
func WithoutScheduler() Option {
	return func(o *options) error {
		o.noSched = true
		return nil
	}
}

// Telex is one teleprinter.
//
// Thread Safety: all methods are safe for concurrent use. Text written and
// read share one codec because the machine has a single shift register.
type Telex struct {
	cfg    *Config
	engine *tty.Engine
	led    *statusled.LED
	relay  tty.LineOut
	answer []byte // pre-encoded answer-back, nil if not configured
	wru    byte   // WRU as it appears on the line

	running atomic.Bool
	powered atomic.Bool
	closed  atomic.Bool

	// guarded by mu
	mu     syncutil.Mutex
	codec  *codec.Codec
	trace  *TraceBuffer
	rxText []rune
	txOut  []byte
	escape bool
}

// New creates a Telex and starts its line engine. A nil config selects
// DefaultConfig. Without WithPins the configured GPIOs are opened.
func New(cfg *Config, opts ...Option) (*Telex, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.pins == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		pins, err := OpenPins(&cfg.Pins)
		if err != nil {
			return nil, err
		}
		o.pins = pins
	} else if err := cfg.validateLine(); err != nil {
		return nil, err
	}

	if o.pins.TX == nil {
		return nil, newConfigError("pins.tx", ErrMissingPin)
	}
	if o.pins.RX == nil {
		return nil, newConfigError("pins.rx", ErrMissingPin)
	}

	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	cc, err := cfg.CodecConfig()
	if err != nil {
		return nil, err
	}

	engine, err := tty.New(ec, o.pins.TX, o.pins.RX)
	if err != nil {
		return nil, fmt.Errorf("create line engine: %w", err)
	}

	t := &Telex{
		cfg:    cfg,
		engine: engine,
		relay:  o.pins.Relay,
		codec:  codec.New(cc),
		trace:  NewTraceBuffer(cfg.Name, cfg.TraceSize),
		wru:    codec.WRU,
	}
	if cc.FlipBits {
		t.wru = codec.FlipBits(codec.WRU)
	}
	if cfg.AnswerBack != "" {
		t.answer = codec.New(cc).Encode(cfg.AnswerBack)
	}
	if o.pins.LED != nil {
		t.led = statusled.New(o.pins.LED, cfg.Pins.LEDInvert)
	}
	t.running.Store(true)

	if err := t.driveRelay(false); err != nil {
		_ = engine.Close()
		return nil, err
	}

	if !o.noSched {
		if err := t.start(o); err != nil {
			_ = t.Close()
			return nil, err
		}
	}

	Debugf("telex %q: %.1f baud, tick %s, coding %s, dial %s",
		cfg.Name, cfg.Baud, cfg.TickPeriod, cc.Variant, ec.DialMode)
	return t, nil
}

func (t *Telex) start(o *options) error {
	s := o.sched
	if s == nil {
		s = scheduler.NewTicker()
	}
	if err := t.engine.Start(s); err != nil {
		return fmt.Errorf("start line engine: %w", err)
	}

	if t.led == nil {
		return nil
	}
	ls := o.ledSched
	if ls == nil {
		ls = scheduler.NewTicker()
	}
	if err := t.led.Start(ls); err != nil {
		return fmt.Errorf("start status led: %w", err)
	}
	return nil
}

// WriteString sends text to the teleprinter. Characters the code table
// cannot represent are dropped. ESC sequences are executed as commands.
func (t *Telex) WriteString(text string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return 0, ErrClosed
	}

	t.syncLocked()

	for _, r := range text {
		if r == Escape {
			t.escape = !t.escape
			t.rxText = append(t.rxText, []rune("<ESC>")...)
			continue
		}
		if t.escape {
			t.escape = false
			t.command(r)
			continue
		}
		t.sendRune(r)
	}
	t.flushLocked(text)

	return len(text), nil
}

// Write implements io.Writer on top of WriteString.
func (t *Telex) Write(p []byte) (int, error) {
	if _, err := t.WriteString(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// sendRune encodes one character into txOut. A WRU inquiry in the figures
// layer is answered locally when an answer-back is configured.
func (t *Telex) sendRune(r rune) {
	codes := t.codec.Encode(string(r))
	if t.answer != nil && t.codec.IsFigures() {
		if i := bytes.IndexByte(codes, t.wru); i >= 0 {
			t.txOut = append(t.txOut, codes[:i]...)
			t.loopback(t.answer)
			Debugf("telex %q: WRU answered locally", t.cfg.Name)
			codes = codes[i+1:]
		}
	}
	t.txOut = append(t.txOut, codes...)
}

// loopback feeds codes into the read stream. They never reach the machine,
// so its shift register is restored once they are decoded.
func (t *Telex) loopback(codes []byte) {
	t.syncLocked()
	layer, defined := t.codec.Layer()
	t.engine.Inject(codes)
	t.syncLocked()
	t.codec.SetLayer(layer, defined)
}

func (t *Telex) sendText(text string) {
	for _, r := range text {
		t.sendRune(r)
	}
}

func (t *Telex) flushLocked(note string) {
	if len(t.txOut) == 0 {
		return
	}
	t.engine.Write(t.txOut)
	t.trace.RecordTX(t.txOut, note)
	t.txOut = nil
}

// command executes the character after an ESC and acknowledges it.
func (t *Telex) command(r rune) {
	c := unicode.ToUpper(r)
	var err error

	switch c {
	case 'E':
		t.running.Store(false)
	case 'A':
		err = t.Power(true)
	case 'Z':
		err = t.Power(false)
	case 'D':
		err = t.Dial(true)
	case 'T':
		err = t.Dial(false)
	case 'R':
		t.sendText(TestRY)
	case 'Q':
		t.sendText(TestFox)
	case 'F':
		t.sendText(TestFigures)
	case 'H':
		t.rxText = append(t.rxText, []rune(helpText)...)
	default:
		c = '?'
	}
	if err != nil {
		Debugf("telex %q: command %c: %v", t.cfg.Name, c, err)
	}

	t.rxText = append(t.rxText, '{', c, '}')
}

// syncLocked moves received codes through the codec into rxText.
func (t *Telex) syncLocked() {
	if t.engine.Any() == 0 {
		return
	}
	codes := t.engine.Read(0)
	text := t.codec.Decode(codes)
	t.trace.RecordRX(codes, text)
	t.rxText = append(t.rxText, []rune(text)...)

	for _, c := range codes {
		switch c {
		case tty.LineDropped:
			Debugf("telex %q: line dropped", t.cfg.Name)
		case tty.LineRestored:
			Debugf("telex %q: line restored", t.cfg.Name)
		case tty.DialError:
			Debugf("telex %q: dial error", t.cfg.Name)
		}
	}
}

// ReadText returns up to count received characters, or all of them when
// count <= 0. Line events and command acknowledgements appear inline.
func (t *Telex) ReadText(count int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncLocked()

	n := len(t.rxText)
	if count > 0 && count < n {
		n = count
	}
	out := string(t.rxText[:n])
	t.rxText = t.rxText[n:]
	return out
}

// Read implements io.Reader. It never blocks and returns 0, nil when
// nothing has been received. Characters are never split, so a p too short
// for the next one gets io.ErrShortBuffer.
func (t *Telex) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncLocked()

	n := 0
	for len(t.rxText) > 0 {
		size := utf8.RuneLen(t.rxText[0])
		if size < 0 {
			size = utf8.RuneLen(utf8.RuneError)
		}
		if n+size > len(p) {
			break
		}
		n += utf8.EncodeRune(p[n:], t.rxText[0])
		t.rxText = t.rxText[1:]
	}
	if n == 0 && len(t.rxText) > 0 {
		return 0, io.ErrShortBuffer
	}
	return n, nil
}

// Any returns the number of received characters waiting.
func (t *Telex) Any() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncLocked()
	return len(t.rxText)
}

// Power switches the teleprinter on or off through the relay and moves the
// status LED toward a matching brightness.
func (t *Telex) Power(enable bool) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if t.led != nil {
		if enable {
			t.led.Attractor(ledPowerOn)
		} else {
			t.led.Attractor(ledPowerOff)
		}
	}
	if err := t.driveRelay(enable); err != nil {
		return err
	}
	t.powered.Store(enable)
	Debugf("telex %q: power %v", t.cfg.Name, enable)
	return nil
}

// Powered reports the last state set by Power.
func (t *Telex) Powered() bool {
	return t.powered.Load()
}

func (t *Telex) driveRelay(on bool) error {
	if t.relay == nil {
		return nil
	}
	if err := t.relay.Out(gpio.Level(on != t.cfg.Pins.RelayInvert)); err != nil {
		return fmt.Errorf("drive relay: %w", err)
	}
	return nil
}

// Dial switches dial decoding. Leaving dial mode with a keyboard-dialing
// machine powers it on, since the number was typed on the running machine.
func (t *Telex) Dial(enable bool) error {
	if t.closed.Load() {
		return ErrClosed
	}
	t.engine.Dial(enable)
	if !enable && t.engine.DialMode() == tty.DialModeKey {
		return t.Power(true)
	}
	return nil
}

// Running is false once the quit command has been received or the Telex
// was closed.
func (t *Telex) Running() bool {
	return t.running.Load()
}

// Layer returns the shift layer of the machine and whether it is known.
func (t *Telex) Layer() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncLocked()
	return t.codec.Layer()
}

// Name returns the configured machine name.
func (t *Telex) Name() string {
	return t.cfg.Name
}

// Engine returns the line engine.
func (t *Telex) Engine() *tty.Engine {
	return t.engine
}

// LED returns the status LED, or nil if none is attached.
func (t *Telex) LED() *statusled.LED {
	return t.led
}

// StateString summarizes the line state for diagnostics.
func (t *Telex) StateString() string {
	power := 0
	if t.Powered() {
		power = 1
	}
	return fmt.Sprintf("%s: %s power=%d", t.cfg.Name, t.engine.StateString(), power)
}

// Trace returns the recent line traffic, oldest first.
func (t *Telex) Trace() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trace.Entries()
}

// WrapError attaches the recent line traffic to err.
func (t *Telex) WrapError(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trace.WrapError(err)
}

// Close stops the line engine before releasing the LED and relay.
// Close is idempotent.
func (t *Telex) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.running.Store(false)

	var errs []error
	if err := t.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line engine: %w", err))
	}
	if t.led != nil {
		if err := t.led.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.driveRelay(false); err != nil {
		errs = append(errs, err)
	}
	t.powered.Store(false)

	t.mu.Lock()
	t.rxText = nil
	t.txOut = nil
	t.escape = false
	t.mu.Unlock()

	Debugf("telex %q: closed", t.cfg.Name)
	return errors.Join(errs...)
}
