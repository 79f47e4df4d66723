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
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
		Jitter:            0.1,
		RetryTimeout:      time.Second,
	}
}

func TestRetryWithConfig(t *testing.T) {
	t.Parallel()

	busy := NewPortError("open", "ttyUSB0", ErrPortBusy, ErrorTypeTransient)
	denied := NewPortError("open", "ttyUSB0", ErrPermissionDenied, ErrorTypePermanent)

	tests := []struct {
		errs      []error
		config    *RetryConfig
		wantErr   error
		name      string
		wantCalls int
	}{
		{name: "first try", errs: []error{nil}, config: fastRetry(3), wantCalls: 1},
		{name: "succeeds after busy", errs: []error{busy, busy, nil}, config: fastRetry(3), wantCalls: 3},
		{name: "gives up", errs: []error{busy, busy, busy}, config: fastRetry(3), wantCalls: 3, wantErr: ErrPortBusy},
		{name: "permanent stops", errs: []error{denied, nil}, config: fastRetry(3), wantCalls: 1, wantErr: ErrPermissionDenied},
		{name: "no retry", errs: []error{busy, nil}, config: fastRetry(0), wantCalls: 1, wantErr: ErrPortBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			err := RetryWithConfig(context.Background(), tt.config, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRetryWithConfig_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithConfig(ctx, fastRetry(3), func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestNextBackoff(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()
	assert.Equal(t, 400*time.Millisecond, nextBackoff(OpenInitialBackoff, cfg))
	assert.Equal(t, OpenMaxBackoff, nextBackoff(1500*time.Millisecond, cfg))
}

func TestJittered(t *testing.T) {
	t.Parallel()

	for range 20 {
		got := jittered(100*time.Millisecond, 0.1)
		assert.GreaterOrEqual(t, got, 100*time.Millisecond)
		assert.Less(t, got, 110*time.Millisecond+time.Nanosecond)
	}
	assert.Equal(t, 5*time.Millisecond, jittered(5*time.Millisecond, 0))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil},
		{name: "transient port error", err: NewPortError("open", "x", errors.New("busy"), ErrorTypeTransient), want: true},
		{name: "permanent port error", err: NewPortError("open", "x", errors.New("denied"), ErrorTypePermanent)},
		{name: "bare busy", err: fmt.Errorf("wrap: %w", ErrPortBusy), want: true},
		{name: "bare write", err: ErrPortWrite, want: true},
		{name: "closed", err: ErrPortClosed},
		{name: "unknown", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil},
		{name: "permanent port error", err: NewPortError("read", "x", ErrPortClosed, ErrorTypePermanent), want: true},
		{name: "transient port error", err: NewPortError("read", "x", ErrPortRead, ErrorTypeTransient)},
		{name: "eio", err: fmt.Errorf("read: %w", syscall.EIO), want: true},
		{name: "enodev", err: syscall.ENODEV, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "closed pipe", err: io.ErrClosedPipe, want: true},
		{name: "busy", err: ErrPortBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestClassifySerialError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classifySerialError("open", "x", nil))

	gone := classifySerialError("read", "ttyUSB0", syscall.EIO)
	assert.True(t, IsFatal(gone))
	assert.Equal(t, "read ttyUSB0: input/output error", gone.Error())

	eof := classifySerialError("pump", "ttyUSB0", fmt.Errorf("read: %w", io.EOF))
	assert.True(t, IsFatal(eof))

	other := classifySerialError("read", "ttyUSB0", errors.New("glitch"))
	assert.True(t, IsRetryable(other))
	assert.False(t, IsFatal(other))

	var pe *PortError
	require.ErrorAs(t, other, &pe)
	assert.Equal(t, "read", pe.Op)
	assert.Equal(t, "ttyUSB0", pe.Port)
}

func TestRetryWithConfig_TimeoutKeepsOpenError(t *testing.T) {
	t.Parallel()

	cfg := fastRetry(5)
	cfg.InitialBackoff = time.Second
	cfg.RetryTimeout = 20 * time.Millisecond

	calls := 0
	err := RetryWithConfig(context.Background(), cfg, func() error {
		calls++
		return NewPortError("open", "ttyUSB0", ErrPortNotFound, ErrorTypeTransient)
	})
	require.ErrorIs(t, err, ErrPortNotFound)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
