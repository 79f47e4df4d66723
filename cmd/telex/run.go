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


package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/go-telex/bridge"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const ctrlC = 0x03

func newRunCmd(g *globalFlags) *cobra.Command {
	var noEcho bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bridge the teleprinter to this terminal",
		Long: `Bridge the teleprinter to this terminal.

Keys typed here are sent to the teleprinter and its output is printed.
Newline sends CR LF, '<' a bare CR and '|' a bare LF. ESC E or Ctrl-C quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := bridge.DefaultPumpOptions()
			opts.Echo = !noEcho
			return g.runTerminal(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&noEcho, "no-echo", false, "Do not echo typed keys")
	return cmd
}

func (g *globalFlags) runTerminal(cmd *cobra.Command, opts bridge.PumpOptions) error {
	t, err := g.openTelex()
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, rawErr := term.MakeRaw(int(f.Fd()))
		if rawErr != nil {
			return fmt.Errorf("raw terminal: %w", rawErr)
		}
		defer func() { _ = term.Restore(int(f.Fd()), state) }()
		// raw mode swallows SIGINT
		in = &interruptReader{r: f, cancel: cancel}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\r\n", t.StateString())

	rw := struct {
		io.Reader
		io.Writer
	}{in, cmd.OutOrStdout()}
	err = bridge.Pump(ctx, t, rw, opts)
	_, _ = fmt.Fprint(cmd.OutOrStdout(), "\r\nEXIT\r\n")
	return g.reportError(cmd, t, err)
}

// interruptReader cancels the session when Ctrl-C is typed.
type interruptReader struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (ir *interruptReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if i := bytes.IndexByte(p[:n], ctrlC); i >= 0 {
		ir.cancel()
		return i, context.Canceled
	}
	return n, err
}
