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
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks how well a Ticker keeps up with its period.
type Metrics struct {
	Ticks       int64         // callbacks invoked
	Overruns    int64         // callbacks that took longer than the period
	LastLatency time.Duration // duration of the last callback
}

// Ticker drives a callback from a time.Ticker on its own goroutine.
//
// time.Ticker drops ticks when the receiver falls behind, so a slow callback
// stretches the timeline rather than queueing bursts of catch-up calls.
type Ticker struct {
	stopChan chan struct{}
	wg       sync.WaitGroup // tracks the tick goroutine
	ticks    int64
	overruns int64
	latency  int64 // nanoseconds
	running  int64 // 0 = stopped, 1 = running
}

// NewTicker creates a stopped Ticker.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Start begins invoking fn every period.
func (t *Ticker) Start(period time.Duration, fn func()) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	if !atomic.CompareAndSwapInt64(&t.running, 0, 1) {
		return ErrAlreadyStarted
	}

	t.stopChan = make(chan struct{})
	t.wg.Add(1)
	go t.loop(period, fn, t.stopChan)
	return nil
}

func (t *Ticker) loop(period time.Duration, fn func(), stop <-chan struct{}) {
	defer t.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// a stop that raced with the tick wins
			select {
			case <-stop:
				return
			default:
			}

			start := time.Now()
			fn()
			elapsed := time.Since(start)

			atomic.AddInt64(&t.ticks, 1)
			atomic.StoreInt64(&t.latency, elapsed.Nanoseconds())
			if elapsed > period {
				atomic.AddInt64(&t.overruns, 1)
			}
		case <-stop:
			return
		}
	}
}

// Stop halts the ticker and waits for an in-flight callback to return.
// Stopping a stopped Ticker is a no-op.
func (t *Ticker) Stop() {
	if !atomic.CompareAndSwapInt64(&t.running, 1, 0) {
		return
	}
	close(t.stopChan)
	t.wg.Wait()
}

// Running reports whether the ticker is started.
func (t *Ticker) Running() bool {
	return atomic.LoadInt64(&t.running) == 1
}

// GetMetrics returns a snapshot of the tick counters.
func (t *Ticker) GetMetrics() Metrics {
	return Metrics{
		Ticks:       atomic.LoadInt64(&t.ticks),
		Overruns:    atomic.LoadInt64(&t.overruns),
		LastLatency: time.Duration(atomic.LoadInt64(&t.latency)),
	}
}
