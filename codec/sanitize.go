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

import "strings"

// printable lists the characters every variant can print.
const printable = " ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-+=:/()?.,'\n\r"

var substitutions = map[rune]string{
	'Ä':    "AE",
	'Ö':    "OE",
	'Ü':    "UE",
	'ß':    "SS",
	'\a':   "%",
	'\f':   "(FF)",
	'\t':   "(TAB)",
	'\v':   "(VT)",
	'\x1b': "(ESC)",
	'\b':   "(BS)",
	'\x7f': "(DEL)",
	'&':    "(AND)",
	'€':    "(EUR)",
	'$':    "(USD)",
	'<':    "(LT)",
	'>':    "(GT)",
	'|':    "(PIPE)",
	'*':    "(STAR)",
	'#':    "(HASH)",
	'@':    "(AT)",
	'"':    "'",
	';':    ",.",
	'!':    "(./)",
	'%':    "(./.)",
	'[':    "(",
	']':    ")",
	'{':    "-(",
	'}':    ")-",
	'\\':   "/",
	'_':    "--",
}

// Sanitize rewrites text into characters every teleprinter can print.
// Known specials get a readable substitute and anything else becomes '?'.
// The result does not depend on any shift state.
func Sanitize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	for _, r := range strings.ToUpper(text) {
		if strings.ContainsRune(printable, r) {
			_, _ = sb.WriteRune(r)
			continue
		}
		if sub, ok := substitutions[r]; ok {
			_, _ = sb.WriteString(sub)
			continue
		}
		_ = sb.WriteByte('?')
	}

	return sb.String()
}
