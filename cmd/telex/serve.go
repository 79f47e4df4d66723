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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	telex "github.com/ZaparooProject/go-telex"
	"github.com/ZaparooProject/go-telex/bridge"
	"github.com/spf13/cobra"
)

const (
	defaultListen   = ":8080"
	shutdownTimeout = 5 * time.Second
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		listen  string
		path    string
		welcome string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share the teleprinter with WebSocket clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := bridge.DefaultServerOptions()
			if cmd.Flags().Changed("welcome") {
				opts.Welcome = welcome
			}
			return g.serveWebSocket(cmd, listen, path, opts)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", defaultListen, "Address to listen on")
	cmd.Flags().StringVar(&path, "path", "/", "HTTP path of the WebSocket endpoint")
	cmd.Flags().StringVar(&welcome, "welcome", bridge.Welcome, "Text sent to each client on connect")
	return cmd
}

func (g *globalFlags) serveWebSocket(cmd *cobra.Command, listen, path string, opts bridge.ServerOptions) error {
	t, err := g.openTelex()
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ws := bridge.NewServer(t, opts)
	mux := http.NewServeMux()
	mux.Handle(path, ws.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- srv.Serve(ln)
	}()
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s listening on %s\n", t.Name(), ln.Addr())
	telex.Debugf("serve: %s", t.StateString())

	runErr := make(chan error, 1)
	go func() {
		runErr <- ws.Run(cmd.Context())
	}()

	select {
	case err = <-runErr:
	case err = <-httpErr:
	}

	_ = ws.Close()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
		telex.Debugf("serve: shutdown: %v", shutdownErr)
	}

	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, bridge.ErrServerClosed) {
		return nil
	}
	return g.reportError(cmd, t, err)
}
