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
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	telex "github.com/ZaparooProject/go-telex"
	"github.com/ZaparooProject/go-telex/internal/syncutil"
)

// Welcome is sent to every WebSocket client on connect.
const Welcome = "-=TELEX=-\r\n"

const (
	clientQueue  = 64
	writeTimeout = 5 * time.Second
)

// ServerOptions controls a Server.
type ServerOptions struct {
	// Welcome is sent on connect. Empty selects the package Welcome.
	Welcome string
	// PollInterval is how often the teleprinter is polled in Run.
	PollInterval time.Duration
	// Translate applies the keyboard shortcuts to client text.
	Translate bool
	// Sanitize replaces characters the code table lacks in client text.
	Sanitize bool
}

// DefaultServerOptions returns the options used by the serve command.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Welcome:      Welcome,
		PollInterval: DefaultPollInterval,
		Translate:    true,
		Sanitize:     true,
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server shares one teleprinter between WebSocket clients. Text from any
// client goes to the teleprinter; text from the teleprinter goes to all.
type Server struct {
	term     Terminal
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	opts     ServerOptions
	mu       syncutil.Mutex
	closed   bool
}

// NewServer creates a Server for t.
func NewServer(t Terminal, opts ServerOptions) *Server {
	if opts.Welcome == "" {
		opts.Welcome = Welcome
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Server{
		term:    t,
		clients: make(map[*client]struct{}),
		opts:    opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades requests to WebSocket clients.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWS)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		telex.Debugf("websocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueue)}
	if !s.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closed"))
		_ = conn.Close()
		return
	}
	telex.Debugf("websocket client %s connected", r.RemoteAddr)

	go c.writeLoop()
	s.readLoop(c)

	s.unregister(c)
	telex.Debugf("websocket client %s disconnected", r.RemoteAddr)
}

func (s *Server) readLoop(c *client) {
	sz := newSanitizer(s.opts.Sanitize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		text := string(data)
		if s.opts.Translate {
			text = Translate(text)
		}
		text = sz.apply(text)
		if _, err := s.term.WriteString(text); err != nil {
			telex.Debugf("websocket: send to teleprinter: %v", err)
			return
		}
	}
}

func (c *client) writeLoop() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	c.send <- []byte(s.opts.Welcome)
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Broadcast queues text for every client. A client that cannot keep up is
// disconnected.
func (s *Server) Broadcast(text string) {
	if text == "" {
		return
	}
	msg := []byte(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			delete(s.clients, c)
			close(c.send)
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run polls the teleprinter and broadcasts received text until ctx is done,
// the server is closed or the teleprinter quits. It returns nil when the
// teleprinter quit.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.isClosed() {
				return ErrServerClosed
			}
			s.Broadcast(s.term.ReadText(0))
			if !s.term.Running() {
				return nil
			}
		}
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close disconnects all clients and refuses new ones. Run returns
// ErrServerClosed at its next poll. Close is idempotent.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	return nil
}
