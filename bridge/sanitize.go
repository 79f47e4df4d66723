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


package bridge

import (
	"strings"
	"unicode/utf8"

	telex "github.com/ZaparooProject/go-telex"
	"github.com/ZaparooProject/go-telex/codec"
)

// sanitizer rewrites typed text into characters the teleprinter can print.
// ESC and the command letter after it pass through unchanged. The escape
// state carries over between chunks, since a terminal may deliver ESC and
// its letter in separate reads. A nil sanitizer passes text through.
type sanitizer struct {
	escape bool
}

func newSanitizer(enabled bool) *sanitizer {
	if !enabled {
		return nil
	}
	return &sanitizer{}
}

func (s *sanitizer) apply(text string) string {
	if s == nil {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == telex.Escape:
			s.escape = !s.escape
		case s.escape:
			s.escape = false
		default:
			i += size
			continue
		}
		_, _ = sb.WriteString(codec.Sanitize(text[start:i]))
		_, _ = sb.WriteString(text[i : i+size])
		i += size
		start = i
	}
	_, _ = sb.WriteString(codec.Sanitize(text[start:]))
	return sb.String()
}
