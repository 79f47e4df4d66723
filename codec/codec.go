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

// Package codec converts between text and Baudot-Murray (CCITT-2) codes.
//
// A Codec tracks the letters/figures shift state of the attached teleprinter
// across calls, so consecutive Encode and Decode calls only emit or expect
// shift markers when the layer actually changes.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Codec errors
var (
	ErrUnknownVariant     = errors.New("unknown code table variant")
	ErrUnknownShiftPolicy = errors.New("unknown shift marker policy")
)

// ShiftPolicy controls how Decode renders shift markers.
type ShiftPolicy int

const (
	// ShiftRedundant emits a marker only when it did not change the layer,
	// i.e. the operator sent it explicitly.
	ShiftRedundant ShiftPolicy = iota
	// ShiftSilent never emits markers.
	ShiftSilent
	// ShiftAll emits every marker.
	ShiftAll
)

// String returns the configuration name of the policy.
func (p ShiftPolicy) String() string {
	switch p {
	case ShiftRedundant:
		return "redundant"
	case ShiftSilent:
		return "silent"
	case ShiftAll:
		return "all"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseShiftPolicy maps a configuration name to a ShiftPolicy.
// An empty name selects ShiftRedundant.
func ParseShiftPolicy(name string) (ShiftPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "redundant", "explicit":
		return ShiftRedundant, nil
	case "silent", "none":
		return ShiftSilent, nil
	case "all":
		return ShiftAll, nil
	default:
		return ShiftRedundant, fmt.Errorf("%w: %q", ErrUnknownShiftPolicy, name)
	}
}

// Config selects the code table and decode behavior of a Codec.
type Config struct {
	// Variant is the regional code table.
	Variant Variant
	// FlipBits reverses the five bits of every code on the way in and out.
	FlipBits bool
	// Shift controls how shift markers are rendered by Decode.
	Shift ShiftPolicy
}

// DefaultConfig returns the ITA2 table with natural bit order.
func DefaultConfig() *Config {
	return &Config{
		Variant: ITA2,
		Shift:   ShiftRedundant,
	}
}

// Codec is a stateful text <-> CCITT-2 converter.
//
// Thread Safety: Codec is NOT thread-safe. The owning Telex serializes access.
type Codec struct {
	table   *table
	layer   int
	defined bool
	flip    bool
	shift   ShiftPolicy
}

// New creates a Codec. A nil config selects DefaultConfig.
func New(cfg *Config) *Codec {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	t, ok := tables[cfg.Variant]
	if !ok {
		t = tables[ITA2]
	}
	return &Codec{
		table: t,
		flip:  cfg.FlipBits,
		shift: cfg.Shift,
	}
}

// Reset forgets the shift state. The next Encode starts with an explicit LTRS.
func (c *Codec) Reset() {
	c.layer = 0
	c.defined = false
}

// Layer returns the current shift layer and whether it is known yet.
func (c *Codec) Layer() (int, bool) {
	return c.layer, c.defined
}

// SetLayer restores a shift state saved with Layer. An out of range layer
// leaves the register undefined.
func (c *Codec) SetLayer(layer int, defined bool) {
	if layer < 0 || layer >= len(c.table.layers) {
		c.Reset()
		return
	}
	c.layer = layer
	c.defined = defined
}

// IsFigures reports whether the shift register is known and in the figures layer.
func (c *Codec) IsFigures() bool {
	return c.defined && c.layer == 1
}

// Layers returns the number of shift layers of the code table.
func (c *Codec) Layers() int {
	return len(c.table.layers)
}

// Encode converts text to line codes, inserting shift markers as needed.
// Characters that exist in no layer are dropped.
func (c *Codec) Encode(text string) []byte {
	text = strings.ToUpper(text)
	out := make([]byte, 0, len(text)+1)

	if !c.defined {
		c.layer = 0
		c.defined = true
		out = append(out, c.table.markers[0])
	}

	n := len(c.table.layers)
	for _, r := range text {
		if code, ok := c.table.index[c.layer][r]; ok {
			out = append(out, code)
			// explicit LTRS/FIGS typed as a character
			if m := c.table.markerLayer(code); m >= 0 {
				c.layer = m
			}
			continue
		}
		for step := 1; step < n; step++ {
			next := (c.layer + step) % n
			if code, ok := c.table.index[next][r]; ok {
				out = append(out, c.table.markers[next], code)
				c.layer = next
				break
			}
		}
	}

	if c.flip {
		for i, b := range out {
			out[i] = FlipBits(b)
		}
	}
	return out
}

// Decode converts line codes to text. Values outside the 5-bit range are
// rendered as {xx} so out-of-band line events stay visible in the stream.
func (c *Codec) Decode(codes []byte) string {
	var sb strings.Builder

	for _, b := range codes {
		if c.flip && b <= CodeMask {
			b = FlipBits(b)
		}

		if b > CodeMask {
			_, _ = fmt.Fprintf(&sb, "{%x}", b)
			continue
		}

		if m := c.table.markerLayer(b); m >= 0 {
			changed := !c.defined || c.layer != m
			c.layer = m
			c.defined = true
			if c.shift == ShiftSilent || (c.shift == ShiftRedundant && changed) {
				continue
			}
			_, _ = sb.WriteRune(c.table.layers[m][b])
			continue
		}

		if !c.defined {
			_, _ = sb.WriteString(c.ambiguous(b))
			continue
		}
		_, _ = sb.WriteRune(c.table.layers[c.layer][b])
	}

	return sb.String()
}

// ambiguous renders a code received before any shift marker. Codes that mean
// the same in both layers (space, CR, LF) are not ambiguous.
func (c *Codec) ambiguous(b byte) string {
	l, f := c.table.layers[0][b], c.table.layers[1][b]
	if l == f {
		return string(l)
	}
	return "{" + string(l) + "|" + string(f) + "}"
}
