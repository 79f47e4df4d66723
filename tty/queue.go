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

package tty

import "github.com/ZaparooProject/go-telex/internal/syncutil"

// queue is a FIFO of line codes shared between the tick context and callers.
type queue struct {
	items []byte
	mu    syncutil.Mutex
}

func (q *queue) push(codes ...byte) {
	q.mu.Lock()
	q.items = append(q.items, codes...)
	q.mu.Unlock()
}

func (q *queue) pop() (byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0, false
	}
	b := q.items[0]
	q.items = q.items[1:]
	return b, true
}

// take removes up to n items, or all of them when n <= 0.
func (q *queue) take(n int) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > len(q.items) {
		n = len(q.items)
	}
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, q.items)
	q.items = q.items[n:]
	return out
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
