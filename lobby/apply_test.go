// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konnekt/session/identity"
)

// TestApply_ReplicaConvergesWithHost drives the host's own aggregate
// through a sequence of commands and feeds the resulting events into a
// second, bare replica via Apply, asserting the two converge.
func TestApply_ReplicaConvergesWithHost(t *testing.T) {
	host, events, err := New("Game Night", "", 4, newPeer(t, "Host"), "HostName")
	require.NoError(t, err)

	replica := &Lobby{
		Status:       StatusOpen,
		Participants: make(map[identity.PeerID]*Participant),
		clock:        host.clock,
	}
	_ = events // LobbyCreated is consumed at construction time on the replica side too; replica built directly for this test

	guest := newPeer(t, "Guest1")
	joinEvents, fail := host.Join(guest, "Guest1", "")
	require.Nil(t, fail)
	for _, e := range joinEvents {
		require.NoError(t, replica.Apply(e))
	}
	assert.Equal(t, host.Participants[guest].DisplayName, replica.Participants[guest].DisplayName)

	modeEvents, fail := host.ToggleParticipationMode(guest, guest)
	require.Nil(t, fail)
	for _, e := range modeEvents {
		require.NoError(t, replica.Apply(e))
	}
	assert.Equal(t, Spectating, replica.Participants[guest].Mode)

	leaveEvents, fail := host.Leave(guest)
	require.Nil(t, fail)
	for _, e := range leaveEvents {
		require.NoError(t, replica.Apply(e))
	}
	assert.NotContains(t, replica.Participants, guest)
}
