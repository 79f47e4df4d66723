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
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	telex "github.com/ZaparooProject/go-telex"
	testutil "github.com/ZaparooProject/go-telex/internal/testing"
)

// fakeTerm stands in for a Telex: written text is recorded and fed text is
// returned by the next ReadText.
type fakeTerm struct {
	fail    error
	written strings.Builder
	pending string
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTerm) WriteString(text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	_, _ = f.written.WriteString(text)
	return len(text), nil
}

func (f *fakeTerm) ReadText(int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = ""
	return out
}

func (f *fakeTerm) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.stopped
}

func (f *fakeTerm) feed(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending += text
}

func (f *fakeTerm) quit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTerm) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeTerm) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

// syncBuffer is a goroutine-safe write sink.
type syncBuffer struct {
	buf strings.Builder
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type duplex struct {
	io.Reader
	io.Writer
}

// newPipePort returns a jittery port whose input is fed through the
// returned writer and whose output lands in the returned buffer.
func newPipePort(t *testing.T) (*testutil.JitteryPort, *io.PipeWriter, *syncBuffer) {
	t.Helper()

	pr, pw := io.Pipe()
	out := &syncBuffer{}
	t.Cleanup(func() { _ = pw.Close() })

	cfg := testutil.DefaultJitterConfig()
	cfg.Seed = 7
	return testutil.NewJitteryPort(duplex{Reader: pr, Writer: out}, cfg), pw, out
}

func runPump(ctx context.Context, term Terminal, rw io.ReadWriter, opts PumpOptions) <-chan error {
	done := make(chan error, 1)
	go func() { done <- Pump(ctx, term, rw, opts) }()
	return done
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "RY", want: "RY"},
		{in: "RY\n", want: "RY\r\n"},
		{in: "A<B", want: "A\rB"},
		{in: "A|B", want: "A\nB"},
		{in: "<|\n", want: "\r\n\r\n"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Translate(tt.in))
		})
	}
}

func TestPump_BothDirections(t *testing.T) {
	t.Parallel()

	term := &fakeTerm{}
	port, in, out := newPipePort(t)
	opts := PumpOptions{PollInterval: 2 * time.Millisecond, Translate: true, Echo: true}
	done := runPump(context.Background(), term, port, opts)

	_, err := in.Write([]byte("Ry\n<|"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return term.Written() == "Ry\r\n\r\n" },
		time.Second, time.Millisecond)
	assert.Equal(t, "ry\r\n\r\n", out.String(), "echo is lower case")

	term.feed("HELLO")
	require.Eventually(t, func() bool { return strings.HasSuffix(out.String(), "HELLO") },
		time.Second, time.Millisecond)

	term.quit()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after quit")
	}
}

func TestPump_NoTranslateNoEcho(t *testing.T) {
	t.Parallel()

	term := &fakeTerm{}
	port, in, out := newPipePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := runPump(ctx, term, port, PumpOptions{PollInterval: time.Millisecond})

	_, err := in.Write([]byte("A<B\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return term.Written() == "A<B\n" },
		time.Second, time.Millisecond)
	assert.Empty(t, out.String())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestPump_ReadError(t *testing.T) {
	t.Parallel()

	term := &fakeTerm{}
	port, in, _ := newPipePort(t)
	done := runPump(context.Background(), term, port, PumpOptions{PollInterval: time.Hour})

	require.NoError(t, in.Close())
	err := <-done
	require.ErrorIs(t, err, io.EOF)
	assert.True(t, IsFatal(classifySerialError("pump", "test", err)))
}

func TestPump_TerminalClosed(t *testing.T) {
	t.Parallel()

	term := &fakeTerm{}
	term.failWith(telex.ErrClosed)
	port, in, _ := newPipePort(t)
	done := runPump(context.Background(), term, port, PumpOptions{PollInterval: time.Hour})

	_, err := in.Write([]byte("A"))
	require.NoError(t, err)
	require.ErrorIs(t, <-done, telex.ErrClosed)
}

type fakePort struct {
	io.Reader
	io.Writer
	closed bool
	mu     sync.Mutex
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func TestServeLoop_ReopensLostPort(t *testing.T) {
	t.Parallel()

	term := &fakeTerm{}
	lost := &fakePort{Reader: strings.NewReader(""), Writer: io.Discard}
	gone := errors.New("adapter gone for good")

	opens := 0
	err := serveLoop(context.Background(), term, "ttyTEST", PumpOptions{PollInterval: time.Hour},
		func(context.Context) (io.ReadWriteCloser, error) {
			opens++
			if opens == 1 {
				return lost, nil
			}
			return nil, gone
		})

	require.ErrorIs(t, err, gone)
	assert.Equal(t, 2, opens)
	assert.True(t, lost.isClosed())
}

func TestServeLoop_StopsWhenTerminalQuits(t *testing.T) {
	t.Parallel()

	term := &fakeTerm{}
	term.quit()

	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	port := &fakePort{Reader: pr, Writer: io.Discard}

	opens := 0
	err := serveLoop(context.Background(), term, "ttyTEST", PumpOptions{PollInterval: time.Millisecond},
		func(context.Context) (io.ReadWriteCloser, error) {
			opens++
			return port, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, opens)
	assert.True(t, port.isClosed())
}
