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

package scheduler

import (
	"time"

	"github.com/ZaparooProject/go-telex/internal/syncutil"
)

// Manual is a Scheduler driven by explicit Advance calls.
// It never starts a goroutine, which makes tick-exact tests deterministic.
type Manual struct {
	fn     func()
	period time.Duration
	mu     syncutil.Mutex
}

// NewManual creates a stopped Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Start records fn. Nothing runs until Advance is called.
func (m *Manual) Start(period time.Duration, fn func()) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fn != nil {
		return ErrAlreadyStarted
	}
	m.fn = fn
	m.period = period
	return nil
}

// Stop forgets the callback.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = nil
}

// Advance invokes the callback n times and returns how many ran.
// Advancing a stopped scheduler does nothing.
func (m *Manual) Advance(n int) int {
	ran := 0
	for range n {
		m.mu.Lock()
		fn := m.fn
		m.mu.Unlock()
		if fn == nil {
			break
		}
		fn()
		ran++
	}
	return ran
}

// AdvanceTime invokes the callback once per elapsed period in d.
func (m *Manual) AdvanceTime(d time.Duration) int {
	m.mu.Lock()
	period := m.period
	m.mu.Unlock()
	if period <= 0 {
		return 0
	}
	return m.Advance(int(d / period))
}

// Running reports whether a callback is registered.
func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Period returns the period passed to Start.
func (m *Manual) Period() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period
}
