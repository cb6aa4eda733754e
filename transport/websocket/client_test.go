// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/wire"
)

var upgrader = gorilla.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// newEchoRelay starts a test server that reflects every frame it
// receives back to the same connection, standing in for a relay that
// has exactly one other peer subscribed.
func newEchoRelay(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}))
}

func TestClient_BroadcastRoundTripsThroughRelay(t *testing.T) {
	server := newEchoRelay(t)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	kp, err := identity.Derive("Host", "pw")
	require.NoError(t, err)

	c, err := Dial(context.Background(), wsURL, kp.PeerID())
	require.NoError(t, err)
	defer c.Close()

	env := wire.New(kp, 0, time.Now().UnixMilli(), []byte("hello"))
	require.NoError(t, c.Broadcast(context.Background(), env))

	select {
	case got := <-c.Incoming():
		assert.Equal(t, env.SenderID, got.SenderID)
		assert.Equal(t, env.Payload, got.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive echoed envelope")
	}
}

func TestClient_DialFailsAgainstBadURL(t *testing.T) {
	kp, err := identity.Derive("Host", "pw")
	require.NoError(t, err)

	_, err = Dial(context.Background(), "ws://127.0.0.1:1/does-not-exist", kp.PeerID())
	assert.Error(t, err)
}
