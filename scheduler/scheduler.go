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

// Package scheduler runs a callback at a fixed period.
//
// The signal timing engine and the status LED are both driven from a
// Scheduler. Production code uses a Ticker; tests use Manual to step time
// deterministically.
package scheduler

import (
	"errors"
	"time"
)

// Scheduler errors
var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrInvalidPeriod  = errors.New("scheduler period must be positive")
)

// Scheduler invokes fn every period until stopped.
//
// Implementations guarantee that once Stop returns, fn is not running and
// will not be invoked again.
type Scheduler interface {
	Start(period time.Duration, fn func()) error
	Stop()
}
