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
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// Reopen defaults for serial ports. A USB adapter that was just plugged back
// in takes a moment to re-enumerate, and another program may still hold the
// port for a short while after it exits.
const (
	DefaultOpenAttempts   = 5
	OpenInitialBackoff    = 200 * time.Millisecond
	OpenMaxBackoff        = 2 * time.Second
	OpenBackoffMultiplier = 2.0
	OpenJitter            = 0.1
	OpenRetryTimeout      = 30 * time.Second
)

// RetryConfig is the policy for reopening a serial port that is busy or not
// present yet.
type RetryConfig struct {
	// MaxAttempts is how many opens are tried; 0 tries once.
	MaxAttempts int
	// InitialBackoff is the wait after the first failed open.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between opens.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the wait after each failed open.
	BackoffMultiplier float64
	// Jitter is the fraction of extra random wait, so bridges sharing a hub
	// do not reopen in lockstep.
	Jitter float64
	// RetryTimeout bounds the whole reopen sequence.
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the reopen policy used by ServeSerial.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultOpenAttempts,
		InitialBackoff:    OpenInitialBackoff,
		MaxBackoff:        OpenMaxBackoff,
		BackoffMultiplier: OpenBackoffMultiplier,
		Jitter:            OpenJitter,
		RetryTimeout:      OpenRetryTimeout,
	}
}

// RetryableFunc is one attempt to open a port. A PortError marked transient
// asks for another attempt; any other error ends the sequence.
type RetryableFunc func() error

// RetryWithConfig calls open until it succeeds, fails permanently, or the
// attempts or RetryTimeout run out. The last open error is returned, so the
// caller sees why the port could not be opened rather than a timeout.
func RetryWithConfig(ctx context.Context, config *RetryConfig, open RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		return open()
	}

	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	var lastErr error
	wait := config.InitialBackoff
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("open cancelled: %w", ctx.Err())
		}

		lastErr = open()
		if lastErr == nil || !IsRetryable(lastErr) || attempt >= config.MaxAttempts {
			return lastErr
		}

		if !pause(ctx, jittered(wait, config.Jitter)) {
			return lastErr
		}
		wait = nextBackoff(wait, config)
	}
}

// pause waits for d and reports false if ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(wait time.Duration, config *RetryConfig) time.Duration {
	return min(time.Duration(float64(wait)*config.BackoffMultiplier), config.MaxBackoff)
}

// jittered adds up to factor*wait of random extra wait.
func jittered(wait time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return wait
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return wait
	}
	frac := float64(binary.LittleEndian.Uint64(b[:])) / float64(1<<64)
	return wait + time.Duration(frac*factor*float64(wait))
}
