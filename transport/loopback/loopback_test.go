// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package loopback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/wire"
)

func peer(t *testing.T, name string) identity.Keypair {
	t.Helper()
	kp, err := identity.Derive(name, "pw")
	require.NoError(t, err)
	return kp
}

func TestBus_BroadcastReachesOtherPeersNotSelf(t *testing.T) {
	bus := NewBus()
	kpA := peer(t, "A")
	kpB := peer(t, "B")
	a := bus.Join(kpA.PeerID())
	b := bus.Join(kpB.PeerID())
	defer a.Close()
	defer b.Close()

	env := wire.New(kpA, 0, time.Now().UnixMilli(), []byte("hello"))
	require.NoError(t, a.Broadcast(context.Background(), env))

	select {
	case got := <-b.Incoming():
		assert.Equal(t, env.SenderID, got.SenderID)
	case <-time.After(time.Second):
		t.Fatal("b did not receive broadcast")
	}

	select {
	case <-a.Incoming():
		t.Fatal("sender should not receive its own broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_UnicastReachesOnlyTarget(t *testing.T) {
	bus := NewBus()
	kpA := peer(t, "A")
	kpB := peer(t, "B")
	kpC := peer(t, "C")
	a := bus.Join(kpA.PeerID())
	b := bus.Join(kpB.PeerID())
	c := bus.Join(kpC.PeerID())
	defer a.Close()
	defer b.Close()
	defer c.Close()

	env := wire.New(kpA, 0, time.Now().UnixMilli(), []byte("direct"))
	require.NoError(t, a.Unicast(context.Background(), kpB.PeerID(), env))

	select {
	case <-b.Incoming():
	case <-time.After(time.Second):
		t.Fatal("b did not receive unicast")
	}

	select {
	case <-c.Incoming():
		t.Fatal("c should not receive a unicast meant for b")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_JoinAndCloseEmitPeerEvents(t *testing.T) {
	bus := NewBus()
	kpA := peer(t, "A")
	a := bus.Join(kpA.PeerID())
	defer a.Close()

	kpB := peer(t, "B")
	b := bus.Join(kpB.PeerID())

	select {
	case ev := <-a.PeerEvents():
		assert.Equal(t, kpB.PeerID(), ev.Peer)
		assert.True(t, ev.Joined)
	case <-time.After(time.Second):
		t.Fatal("a did not observe b joining")
	}

	require.NoError(t, b.Close())

	select {
	case ev := <-a.PeerEvents():
		assert.Equal(t, kpB.PeerID(), ev.Peer)
		assert.False(t, ev.Joined)
	case <-time.After(time.Second):
		t.Fatal("a did not observe b leaving")
	}
}
