// Copyright (C) 2026 konnekt
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package websocket implements transport.Transport over a single
// gorilla/websocket connection to a signalling/relay server. The
// signalling server's only job is envelope relay and peer-presence
// fan-out once peers have found each other (spec.md's P2P handoff is
// the relay's concern, not this client's); everything this client
// sends or receives is an opaque, already-signed wire.Envelope plus a
// thin routing header.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/internal/logger"
	"github.com/konnekt/session/transport"
	"github.com/konnekt/session/wire"
)

// frame is the relay wire format: a routing header plus an opaque
// envelope. Broadcast frames carry To == nil; unicast frames name a
// single recipient. Presence frames carry no Envelope.
type frame struct {
	Envelope *wire.Envelope  `json:"envelope,omitempty"`
	To       *string         `json:"to,omitempty"`
	Presence *presenceNotice `json:"presence,omitempty"`
}

type presenceNotice struct {
	Peer   string `json:"peer"`
	Joined bool   `json:"joined"`
}

// Client implements transport.Transport over one relay connection.
type Client struct {
	url          string
	self         identity.PeerID
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	incoming chan wire.Envelope
	events   chan transport.PeerEvent
	closed   chan struct{}
	closeOnce sync.Once
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to the relay at url, identifying as self.
func Dial(ctx context.Context, url string, self identity.PeerID) (*Client, error) {
	c := &Client{
		url:          url,
		self:         self,
		dialTimeout:  10 * time.Second,
		readTimeout:  90 * time.Second,
		writeTimeout: 10 * time.Second,
		log:          logger.NewDefaultLogger().WithFields(logger.String("component", "transport.websocket")),
		incoming:     make(chan wire.Envelope, 256),
		events:       make(chan transport.PeerEvent, 64),
		closed:       make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, resp, err := dialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("transport/websocket: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("transport/websocket: dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Broadcast sends env to every peer the relay currently fans out to.
func (c *Client) Broadcast(ctx context.Context, env wire.Envelope) error {
	return c.writeFrame(frame{Envelope: &env})
}

// Unicast sends env to exactly one peer via the relay.
func (c *Client) Unicast(ctx context.Context, to identity.PeerID, env wire.Envelope) error {
	toStr := to.String()
	return c.writeFrame(frame{Envelope: &env, To: &toStr})
}

func (c *Client) writeFrame(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("transport/websocket: not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("transport/websocket: set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("transport/websocket: write failed: %w", err)
	}
	return nil
}

func (c *Client) Incoming() <-chan wire.Envelope         { return c.incoming }
func (c *Client) PeerEvents() <-chan transport.PeerEvent { return c.events }

func (c *Client) readLoop() {
	defer close(c.incoming)
	defer close(c.events)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return
		}

		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("relay read error", logger.Error(err))
			}
			return
		}

		switch {
		case f.Presence != nil:
			peerID, err := identity.ParsePeerID(f.Presence.Peer)
			if err != nil {
				continue
			}
			select {
			case c.events <- transport.PeerEvent{Peer: peerID, Joined: f.Presence.Joined}:
			default:
			}
		case f.Envelope != nil:
			select {
			case c.incoming <- *f.Envelope:
			default:
			}
		}

		select {
		case <-c.closed:
			return
		default:
		}
	}
}

// Close closes the relay connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn == nil {
			return
		}
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
		c.conn = nil
	})
	return err
}
