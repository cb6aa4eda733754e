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

// Package transport abstracts the wire carrier a Session speaks over
// (spec.md §4.C), so the rest of the module never depends on a
// particular signalling or P2P library. Package transport/websocket
// implements it over a relay/signalling server reached via
// gorilla/websocket; package transport/loopback implements it
// in-process for tests and same-process multi-peer demos.
package transport

import (
	"context"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/wire"
)

// PeerEvent reports a remote peer becoming reachable or unreachable at
// the transport layer — distinct from ordering's liveness derivation,
// which is about heartbeat staleness once a peer is already connected.
type PeerEvent struct {
	Peer   identity.PeerID
	Joined bool // false means the peer disconnected
}

// Transport is the minimal carrier a Session needs: broadcast an
// envelope to every connected peer, unicast one to a specific peer,
// and receive both inbound envelopes and peer connectivity events.
type Transport interface {
	// Broadcast sends env to every peer currently reachable.
	Broadcast(ctx context.Context, env wire.Envelope) error

	// Unicast sends env to exactly one peer, e.g. a gap-fill request.
	Unicast(ctx context.Context, to identity.PeerID, env wire.Envelope) error

	// Incoming yields every envelope received from any peer, in
	// arrival order; it is closed when the transport is closed.
	Incoming() <-chan wire.Envelope

	// PeerEvents yields connect/disconnect notifications.
	PeerEvents() <-chan PeerEvent

	// Close releases all underlying connections.
	Close() error
}
