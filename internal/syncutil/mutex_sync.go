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


//go:build !deadlock

// Package syncutil provides the mutex types guarding state shared between the
// tick goroutine and foreground callers. Build with -tags=deadlock to report
// lock-order inversions and stalled ticks via github.com/sasha-s/go-deadlock.
package syncutil

import "sync"

// Mutex is a plain sync.Mutex in normal builds.
//
//nolint:gocritic // embedding exposes Lock, Unlock and TryLock
type Mutex struct {
	sync.Mutex
}
