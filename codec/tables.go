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

package codec

import (
	"fmt"
	"strings"
)

// CCITT-2 code layout, bit 4 on the left:
//
//	543.21  LTRS     FIGS
//	000.00  undef    undef -> ~
//	000.01  E        3
//	000.10  <LF>     <LF>
//	000.11  A        -
//	001.00  <SPACE>  <SPACE>
//	001.01  S        '
//	001.10  I        8
//	001.11  U        7
//	010.00  <CR>     <CR>
//	010.01  D        WRU -> @
//	010.10  R        4
//	010.11  J        BELL -> %
//	011.00  N        ,
//	011.01  F        national -> ~
//	011.10  C        :
//	011.11  K        (
//	100.00  T        5
//	100.01  Z        +
//	100.10  L        )
//	100.11  W        2
//	101.00  H        national -> ~
//	101.01  Y        6
//	101.10  P        0
//	101.11  Q        1
//	110.00  O        9
//	110.01  B        ?
//	110.10  G        national -> ~
//	110.11  FIGS     FIGS -> ]
//	111.00  M        .
//	111.01  X        /
//	111.10  V        =
//	111.11  LTRS     LTRS -> [

// Shift marker codes.
const (
	// LTRS switches the receiving machine to the letters layer.
	LTRS byte = 0x1F
	// FIGS switches the receiving machine to the figures layer.
	FIGS byte = 0x1B
	// CYR switches an MKT-2 machine to its Cyrillic layer.
	CYR byte = 0x00
	// WRU is the "who are you" inquiry when sent in the figures layer.
	WRU byte = 0x09
)

// CodeMask keeps the five payload bits of a line code.
const CodeMask = 0x1F

// Variant selects a regional code table.
type Variant int

const (
	// ITA2 is the international two-layer alphabet.
	ITA2 Variant = iota
	// US is the two-layer alphabet with US punctuation in the figures layer.
	US
	// MKT2 adds a third, Cyrillic layer selected by CYR.
	MKT2
)

// String returns the configuration name of the variant.
func (v Variant) String() string {
	switch v {
	case ITA2:
		return "ita2"
	case US:
		return "us"
	case MKT2:
		return "mkt2"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant maps a configuration name to a Variant. An empty name selects ITA2.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ita2", "std", "0":
		return ITA2, nil
	case "us", "1":
		return US, nil
	case "mkt2", "cyrillic", "2":
		return MKT2, nil
	default:
		return ITA2, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
}

// table is an immutable code table: one 32-rune layer per shift state, the
// marker that selects each layer, and a reverse index built once.
type table struct {
	layers  [][32]rune
	markers []byte
	index   []map[rune]byte
}

func newTable(markers []byte, layers ...string) *table {
	t := &table{markers: markers}
	for _, l := range layers {
		var layer [32]rune
		idx := make(map[rune]byte, 32)
		for i, r := range []rune(l) {
			layer[i] = r
			// first occurrence wins, matching a left-to-right lookup
			if _, seen := idx[r]; !seen {
				idx[r] = byte(i)
			}
		}
		t.layers = append(t.layers, layer)
		t.index = append(t.index, idx)
	}
	return t
}

// markerLayer returns the layer selected by code, or -1 if code is not a marker.
func (t *table) markerLayer(code byte) int {
	for i, m := range t.markers {
		if m == code {
			return i
		}
	}
	return -1
}

const (
	lettersLatin = "~E\nA SIU\rDRJNFCKTZLWHYPQOBG]MXV["
	figuresITA2  = "~3\n- '87\r@4%,~:(5+)2~6019?~]./=["
	figuresUS    = "~3\n- %87\r$4',!:(5\")2@6019?&]./;["
	figuresMKT2  = "~3\n- '87\r@4Ю,Э:(5+)2Щ6019?Ш]./=["
	lettersMKT2  = "~Е\nА СИУ\rДРЙНФЦКТЗЛВХЫПЯОБГ]МЬЖ["
)

var tables = map[Variant]*table{
	ITA2: newTable([]byte{LTRS, FIGS}, lettersLatin, figuresITA2),
	US:   newTable([]byte{LTRS, FIGS}, lettersLatin, figuresUS),
	MKT2: newTable([]byte{LTRS, FIGS, CYR}, lettersLatin, figuresMKT2, lettersMKT2),
}

// FlipBits reverses the five payload bits of code (bit i becomes bit 4-i).
// Some wiring conventions present the code with the bit order reversed.
func FlipBits(code byte) byte {
	var out byte
	for i := range 5 {
		if code&(1<<i) != 0 {
			out |= 1 << (4 - i)
		}
	}
	return out
}
