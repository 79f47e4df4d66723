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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text uppercased", in: "hello world", want: "HELLO WORLD"},
		{name: "umlauts", in: "Größe", want: "GROESSE"},
		{name: "control characters", in: "a\tb\x1bc\x7f", want: "A(TAB)B(ESC)C(DEL)"},
		{name: "bell", in: "\a", want: "%"},
		{name: "currency", in: "5€ $", want: "5(EUR) (USD)"},
		{name: "brackets", in: "[x]{y}", want: "(X)-(Y)-"},
		{name: "punctuation", in: "a;b!c\"d", want: "A,.B(./)C'D"},
		{name: "unmapped becomes question mark", in: "~^", want: "??"},
		{name: "line ends kept", in: "A\r\nB", want: "A\r\nB"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_OutputEncodesLosslessly(t *testing.T) {
	t.Parallel()

	text := Sanitize("Grüße, 100% & <mehr> | 3*4=12 @home #1_ok")
	for _, v := range []Variant{ITA2, MKT2} {
		c := silent(v, false)
		assert.Equal(t, text, c.Decode(c.Encode(text)), "variant %s", v)
	}
}
