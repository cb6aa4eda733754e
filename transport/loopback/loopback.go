// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package loopback implements transport.Transport in-process, over Go
// channels, for tests and same-process multi-peer demos. It is
// grounded on the teacher's transport.MockTransport in spirit — a
// test-only stand-in for the real wire — but unlike that request/reply
// mock, it is a genuine fan-out bus: every Bus.Join'd peer receives
// every other peer's Broadcasts, which is the shape the Session
// facade actually needs to exercise in tests.
package loopback

import (
	"context"
	"sync"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/transport"
	"github.com/konnekt/session/wire"
)

// Bus is a shared in-process broadcast medium. Create one per test
// session and Join every simulated peer onto it.
type Bus struct {
	mu      sync.Mutex
	clients map[identity.PeerID]*Client
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{clients: make(map[identity.PeerID]*Client)}
}

// Join attaches a new peer to the bus and returns its Transport handle.
// Every already-joined peer receives a PeerEvent{Joined:true} for the
// new peer, and the new peer receives one for each already-joined peer.
func (b *Bus) Join(peer identity.PeerID) *Client {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := &Client{
		bus:      b,
		self:     peer,
		incoming: make(chan wire.Envelope, 256),
		events:   make(chan transport.PeerEvent, 64),
	}
	for _, existing := range b.clients {
		existing.notifyPeerEvent(transport.PeerEvent{Peer: peer, Joined: true})
		c.notifyPeerEvent(transport.PeerEvent{Peer: existing.self, Joined: true})
	}
	b.clients[peer] = c
	return c
}

func (b *Bus) leave(peer identity.PeerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, peer)
	for _, remaining := range b.clients {
		remaining.notifyPeerEvent(transport.PeerEvent{Peer: peer, Joined: false})
	}
}

func (b *Bus) broadcast(from identity.PeerID, env wire.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		if id == from {
			continue
		}
		c.deliver(env)
	}
}

func (b *Bus) unicast(to identity.PeerID, env wire.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[to]; ok {
		c.deliver(env)
	}
}

// Client is one peer's transport.Transport implementation against a Bus.
type Client struct {
	bus      *Bus
	self     identity.PeerID
	incoming chan wire.Envelope
	events   chan transport.PeerEvent
	closeOnce sync.Once
}

var _ transport.Transport = (*Client)(nil)

func (c *Client) Broadcast(ctx context.Context, env wire.Envelope) error {
	c.bus.broadcast(c.self, env)
	return nil
}

func (c *Client) Unicast(ctx context.Context, to identity.PeerID, env wire.Envelope) error {
	c.bus.unicast(to, env)
	return nil
}

func (c *Client) Incoming() <-chan wire.Envelope { return c.incoming }

func (c *Client) PeerEvents() <-chan transport.PeerEvent { return c.events }

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.bus.leave(c.self)
		close(c.incoming)
		close(c.events)
	})
	return nil
}

func (c *Client) deliver(env wire.Envelope) {
	select {
	case c.incoming <- env:
	default:
		// Bounded channel is full; dropping here mirrors a real
		// transport's behavior under backpressure rather than
		// blocking the sender indefinitely.
	}
}

func (c *Client) notifyPeerEvent(e transport.PeerEvent) {
	select {
	case c.events <- e:
	default:
	}
}
