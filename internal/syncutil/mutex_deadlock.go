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


//go:build deadlock

// Package syncutil provides the mutex types guarding state shared between the
// tick goroutine and foreground callers.
// This file is compiled when building with -tags=deadlock.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// lockBudget is far above any critical section. The tick handler holds its
// lock for microseconds, so a wait this long means the line has stalled.
const lockBudget = 2 * time.Second

func init() {
	deadlock.Opts.DeadlockTimeout = lockBudget
}

// Mutex wraps deadlock.Mutex so lock-order inversions between the tick
// handler and foreground calls are reported.
type Mutex struct {
	deadlock.Mutex
}
