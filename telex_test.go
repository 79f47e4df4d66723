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
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/ZaparooProject/go-telex/codec"
	testutil "github.com/ZaparooProject/go-telex/internal/testing"
	"github.com/ZaparooProject/go-telex/scheduler"
	"github.com/ZaparooProject/go-telex/tty"
)

const slice50 = 20.0 // ticks per bit at 50 baud, 1 ms

type rig struct {
	tlx   *Telex
	bench *testutil.Bench
	relay *testutil.RecordingLine
	led   *gpiotest.Pin
}

func newRig(t *testing.T, cfg *Config) *rig {
	t.Helper()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := testutil.NewBench()
	relay := testutil.NewRecordingLine(gpio.High)
	led := &gpiotest.Pin{N: "LED"}

	tlx, err := New(cfg, WithoutScheduler(), WithPins(Pins{
		TX:    b.TX,
		RX:    b.RX,
		Relay: relay,
		LED:   led,
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tlx.Close() })

	b.Tick = tlx.Engine().Tick
	return &rig{tlx: tlx, bench: b, relay: relay, led: led}
}

// settle runs the line from OFF to LISTEN-CAN-TX and discards the startup
// line events.
func (r *rig) settle(t *testing.T) {
	t.Helper()

	r.bench.Run(2 * r.tlx.Engine().Timing().CharTicks)
	require.Equal(t, tty.StateListenCanTX, r.tlx.Engine().State())
	require.Equal(t, "{a0}{a1}", r.tlx.ReadText(0))
}

func TestNew_MissingPins(t *testing.T) {
	t.Parallel()

	b := testutil.NewBench()

	tests := []struct {
		name  string
		field string
		pins  Pins
	}{
		{name: "no tx", pins: Pins{RX: b.RX}, field: "pins.tx"},
		{name: "no rx", pins: Pins{TX: b.TX}, field: "pins.rx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(nil, WithoutScheduler(), WithPins(tt.pins))
			require.ErrorIs(t, err, ErrMissingPin)
			assert.True(t, IsConfigError(err))

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		modify func(*Config)
		cause  error
		name   string
		field  string
	}{
		{name: "baud too high", modify: func(c *Config) { c.Baud = 1000 }, field: "baud", cause: tty.ErrInvalidTiming},
		{name: "coding", modify: func(c *Config) { c.Coding = "morse" }, field: "coding", cause: codec.ErrUnknownVariant},
		{name: "dial mode", modify: func(c *Config) { c.DialMode = "tone" }, field: "dial_mode", cause: tty.ErrUnknownDialMode},
		{
			name:   "shift markers",
			modify: func(c *Config) { c.ShiftMarkers = "loud" },
			field:  "shift_markers",
			cause:  codec.ErrUnknownShiftPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(cfg)

			b := testutil.NewBench()
			_, err := New(cfg, WithoutScheduler(), WithPins(Pins{TX: b.TX, RX: b.RX}))
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.ErrorIs(t, err, tt.cause)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestNew_RelayStartsOff(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	assert.Equal(t, gpio.Low, r.relay.Level())
	assert.False(t, r.tlx.Powered())
	assert.True(t, r.tlx.Running())

	cfg := DefaultConfig()
	cfg.Pins.RelayInvert = true
	inv := newRig(t, cfg)
	assert.Equal(t, gpio.High, inv.relay.Level())
}

func TestNew_WithSchedulers(t *testing.T) {
	t.Parallel()

	b := testutil.NewBench()
	lineSched := scheduler.NewManual()
	ledSched := scheduler.NewManual()

	tlx, err := New(nil,
		WithPins(Pins{TX: b.TX, RX: b.RX, LED: &gpiotest.Pin{N: "LED"}}),
		WithScheduler(lineSched),
		WithLEDScheduler(ledSched),
	)
	require.NoError(t, err)

	assert.True(t, lineSched.Running())
	assert.Equal(t, tlx.Engine().Timing().TickPeriod, lineSched.Period())
	assert.True(t, ledSched.Running())

	assert.Equal(t, 1, lineSched.Advance(1))
	assert.Equal(t, "{a0}", tlx.ReadText(0))

	ledSched.Advance(3)
	assert.Equal(t, 3, tlx.LED().Value())

	require.NoError(t, tlx.Close())
	assert.False(t, lineSched.Running(), "closing stops the line scheduler")
	assert.False(t, ledSched.Running())

	_, err = New(nil, WithScheduler(nil))
	require.Error(t, err)
}

func TestWriteString_TransmitsCodes(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.settle(t)

	n, err := r.tlx.WriteString("ry")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, r.tlx.Engine().Pending())

	r.bench.Run(3*150 + 10)

	assert.Equal(t, []byte{0x1F, 0x0A, 0x15}, testutil.DecodeFrames(r.bench.TX.Samples(), slice50))
	assert.Equal(t, 0, r.tlx.Any(), "sending leaves the read stream alone")

	entries := r.tlx.Trace()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, TraceTX, last.Direction)
	assert.Equal(t, []byte{0x1F, 0x0A, 0x15}, last.Data)
	assert.Equal(t, "ry", last.Note)
}

func TestWrite_DropsUnrepresentable(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)

	n, err := r.tlx.Write([]byte("A#B"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, r.tlx.Engine().Pending(), "LTRS, A, B")
}

func TestReadText_DecodesLine(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.settle(t)

	codes := []byte{codec.LTRS, 0x0A, 0x15, codec.FIGS, 0x17}
	r.bench.RX.Append(testutil.Frames(codes, slice50, 0)...)
	r.bench.Run(len(codes)*150 + 10)

	assert.Equal(t, 3, r.tlx.Any())
	assert.Equal(t, "R", r.tlx.ReadText(1))
	assert.Equal(t, "Y1", r.tlx.ReadText(0))
	assert.Empty(t, r.tlx.ReadText(0))

	layer, defined := r.tlx.Layer()
	assert.True(t, defined)
	assert.Equal(t, 1, layer)
}

func TestRead_ImplementsReader(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.tlx.Engine().Inject([]byte{codec.LTRS, 0x03, 0x19})

	buf := make([]byte, 1)
	n, err := r.tlx.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "A", string(buf[:n]))

	buf = make([]byte, 16)
	n, err = r.tlx.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "B", string(buf[:n]))

	n, err = r.tlx.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRead_ShortBuffer(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Coding = "mkt2"
	r := newRig(t, cfg)
	r.tlx.Engine().Inject([]byte{codec.LTRS, codec.CYR, 0x09})

	buf := make([]byte, 1)
	n, err := r.tlx.Read(buf)
	require.ErrorIs(t, err, io.ErrShortBuffer)
	assert.Zero(t, n)

	n, err = r.tlx.Read(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	buf = make([]byte, 2)
	n, err = r.tlx.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "Д", string(buf[:n]))
}

func TestWriteString_Commands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		check   func(t *testing.T, r *rig)
		name    string
		input   string
		want    string
		pending int
	}{
		{
			name:  "power on",
			input: "\x1bA",
			want:  "<ESC>{A}",
			check: func(t *testing.T, r *rig) {
				assert.True(t, r.tlx.Powered())
				assert.Equal(t, gpio.High, r.relay.Level())
			},
		},
		{
			name:  "lower case command",
			input: "\x1ba\x1bz",
			want:  "<ESC>{A}<ESC>{Z}",
			check: func(t *testing.T, r *rig) {
				assert.False(t, r.tlx.Powered())
				assert.Equal(t, gpio.Low, r.relay.Level())
			},
		},
		{
			name:  "quit",
			input: "\x1bE",
			want:  "<ESC>{E}",
			check: func(t *testing.T, r *rig) {
				assert.False(t, r.tlx.Running())
			},
		},
		{
			name:  "dial on and off",
			input: "\x1bD",
			want:  "<ESC>{D}",
			check: func(t *testing.T, r *rig) {
				assert.True(t, r.tlx.Engine().Dialing())
				_, err := r.tlx.WriteString("\x1bT")
				require.NoError(t, err)
				assert.False(t, r.tlx.Engine().Dialing())
				assert.False(t, r.tlx.Powered(), "pulse dialing leaves power alone")
			},
		},
		{name: "ry test", input: "\x1bR", want: "<ESC>{R}", pending: 1 + len(TestRY)},
		{name: "fox test", input: "\x1bQ", want: "<ESC>{Q}", pending: 1 + len(TestFox)},
		{name: "unknown", input: "\x1bX", want: "<ESC>{?}"},
		{name: "double escape cancels", input: "\x1b\x1bA", want: "<ESC><ESC>", pending: 2},
		{name: "help", input: "\x1bH", want: "<ESC>" + helpText + "{H}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRig(t, nil)
			_, err := r.tlx.WriteString(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.want, r.tlx.ReadText(0))
			assert.Equal(t, tt.pending, r.tlx.Engine().Pending())
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestWriteString_AnswerBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		answer  string
		want    string
		pending int
		flip    bool
	}{
		{name: "answered locally", answer: "TELEX1", want: "TELEX1", pending: 2},
		{name: "answered with flipped bits", answer: "TELEX1", want: "TELEX1", pending: 2, flip: true},
		{name: "no answer configured", pending: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.AnswerBack = tt.answer
			cfg.FlipBits = tt.flip
			r := newRig(t, cfg)

			_, err := r.tlx.WriteString("@")
			require.NoError(t, err)

			assert.Equal(t, tt.pending, r.tlx.Engine().Pending())
			assert.Equal(t, tt.want, r.tlx.ReadText(0))
		})
	}
}

func TestWriteString_AnswerBackKeepsShift(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.AnswerBack = "ABC"
	r := newRig(t, cfg)

	_, err := r.tlx.WriteString("@")
	require.NoError(t, err)
	assert.Equal(t, "ABC", r.tlx.ReadText(0))

	layer, defined := r.tlx.Layer()
	assert.Equal(t, 1, layer, "the machine is still in figures")
	assert.True(t, defined)

	_, err = r.tlx.WriteString("A")
	require.NoError(t, err)
	assert.Equal(t, 4, r.tlx.Engine().Pending())

	var sent [][]byte
	for _, e := range r.tlx.Trace() {
		if e.Direction == TraceTX {
			sent = append(sent, e.Data)
		}
	}
	assert.Equal(t, [][]byte{
		{codec.LTRS, codec.FIGS},
		{codec.LTRS, 0x03},
	}, sent)
}

func TestWriteString_LetterDIsNotWRU(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.AnswerBack = "TELEX1"
	r := newRig(t, cfg)

	_, err := r.tlx.WriteString("D")
	require.NoError(t, err)
	assert.Equal(t, 2, r.tlx.Engine().Pending())
	assert.Zero(t, r.tlx.Any())
}

func TestDial_KeyModePowersOn(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DialMode = "key"
	r := newRig(t, cfg)

	require.NoError(t, r.tlx.Dial(true))
	assert.True(t, r.tlx.Engine().Dialing())
	assert.False(t, r.tlx.Powered())

	require.NoError(t, r.tlx.Dial(false))
	assert.False(t, r.tlx.Engine().Dialing())
	assert.True(t, r.tlx.Powered())
	assert.Equal(t, gpio.High, r.relay.Level())
}

func TestPower_LEDAttractor(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	led := r.tlx.LED()
	require.NotNil(t, led)

	require.NoError(t, r.tlx.Power(true))
	for range 40 {
		require.NoError(t, led.Step())
	}
	assert.Equal(t, ledPowerOn, led.Value())
	assert.NotZero(t, r.led.D)

	require.NoError(t, r.tlx.Power(false))
	for range 40 {
		require.NoError(t, led.Step())
	}
	assert.Equal(t, ledPowerOff, led.Value())
}

func TestPower_RelayError(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.relay.FailWith(errors.New("relay stuck"))

	err := r.tlx.Power(true)
	require.Error(t, err)
	assert.False(t, r.tlx.Powered())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	assert.Equal(t, "telex: OFF dial=off line=1 power=0", r.tlx.StateString())

	r.settle(t)
	require.NoError(t, r.tlx.Power(true))
	assert.Equal(t, "telex: LISTEN-CAN-TX dial=off line=1 power=1", r.tlx.StateString())
}

func TestClose(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	r.settle(t)
	require.NoError(t, r.tlx.Power(true))
	_, err := r.tlx.WriteString("RYRY")
	require.NoError(t, err)

	require.NoError(t, r.tlx.Close())
	require.NoError(t, r.tlx.Close(), "close is idempotent")

	assert.False(t, r.tlx.Running())
	assert.False(t, r.tlx.Powered())
	assert.Equal(t, gpio.Low, r.relay.Level())
	assert.Equal(t, gpio.High, r.bench.TX.Level(), "tx left at mark")
	assert.Equal(t, tty.StateHalted, r.tlx.Engine().State())
	assert.Zero(t, r.tlx.Engine().Pending())

	_, err = r.tlx.WriteString("A")
	require.ErrorIs(t, err, ErrClosed)
	_, err = r.tlx.Read(make([]byte, 4))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, r.tlx.Power(true), ErrClosed)
	require.ErrorIs(t, r.tlx.Dial(true), ErrClosed)
}

func TestWrapError_AttachesTrace(t *testing.T) {
	t.Parallel()

	r := newRig(t, nil)
	_, err := r.tlx.WriteString("RY")
	require.NoError(t, err)

	base := errors.New("bridge failed")
	wrapped := r.tlx.WrapError(base)
	require.ErrorIs(t, wrapped, base)
	require.True(t, HasTrace(wrapped))

	te := GetTrace(wrapped)
	require.NotNil(t, te)
	assert.Equal(t, "telex", te.Name)
	require.Len(t, te.Trace, 1)
	assert.Contains(t, te.FormatTrace(), "> 1F 0A 15")

	assert.NoError(t, r.tlx.WrapError(nil))
}
