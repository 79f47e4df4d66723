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

// Package bridge connects a teleprinter to byte streams: a local terminal,
// a serial port or WebSocket clients.
//
// Text typed on the far side is written to the teleprinter and text typed on
// the teleprinter is copied back. The teleprinter side is polled, since the
// line engine queues received characters without signalling.
package bridge

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultPollInterval is how often the teleprinter is polled for received
// text. One character takes 150 ms at 50 baud.
const DefaultPollInterval = 20 * time.Millisecond

// Terminal is the text side of a teleprinter. *telex.Telex satisfies it.
type Terminal interface {
	WriteString(text string) (int, error)
	ReadText(count int) string
	Running() bool
}

// keyboard shortcuts for the teleprinter line controls
var replacements = map[rune]string{
	'\n': "\r\n",
	'<':  "\r",
	'|':  "\n",
}

// Translate expands the keyboard shortcuts: newline becomes CR LF, '<' a
// bare carriage return and '|' a bare line feed.
func Translate(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if rep, ok := replacements[r]; ok {
			_, _ = sb.WriteString(rep)
			continue
		}
		_, _ = sb.WriteRune(r)
	}
	return sb.String()
}

// PumpOptions controls Pump.
type PumpOptions struct {
	// PollInterval is how often received text is collected.
	PollInterval time.Duration
	// Translate applies the keyboard shortcuts to incoming text.
	Translate bool
	// Echo writes incoming text back in lower case, so local typing can be
	// told apart from the machine's upper case output.
	Echo bool
	// Sanitize replaces characters the code table lacks, e.g. & becomes
	// (AND), instead of letting the codec drop them.
	Sanitize bool
}

// DefaultPumpOptions returns options for an interactive terminal.
func DefaultPumpOptions() PumpOptions {
	return PumpOptions{
		PollInterval: DefaultPollInterval,
		Translate:    true,
		Echo:         true,
		Sanitize:     true,
	}
}

type chunk struct {
	err  error
	data []byte
}

// Pump copies text between rw and t until ctx is done, t stops running or
// rw fails. It returns nil when the teleprinter quit and ctx.Err() on
// cancellation.
//
// A Read on rw that is blocked when Pump returns stays blocked until the
// caller closes rw.
func Pump(ctx context.Context, t Terminal, rw io.ReadWriter, opts PumpOptions) error {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sz := newSanitizer(opts.Sanitize)
	in := make(chan chunk)
	go readLoop(ctx, rw, in)

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-in:
			if c.err != nil {
				return fmt.Errorf("read: %w", c.err)
			}
			if err := forward(t, rw, string(c.data), opts, sz); err != nil {
				return err
			}
		case <-ticker.C:
			if text := t.ReadText(0); text != "" {
				if _, err := io.WriteString(rw, text); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
			if !t.Running() {
				return nil
			}
		}
	}
}

func readLoop(ctx context.Context, r io.Reader, out chan<- chunk) {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- chunk{data: data}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case out <- chunk{err: err}:
			case <-ctx.Done():
			}
			return
		}
	}
}

func forward(t Terminal, w io.Writer, text string, opts PumpOptions, sz *sanitizer) error {
	if opts.Translate {
		text = Translate(text)
	}
	text = sz.apply(text)
	if opts.Echo {
		if _, err := io.WriteString(w, strings.ToLower(text)); err != nil {
			return fmt.Errorf("echo: %w", err)
		}
	}
	if _, err := t.WriteString(text); err != nil {
		return fmt.Errorf("send to teleprinter: %w", err)
	}
	return nil
}
