// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/lobby"
)

func peer(t *testing.T, name string) identity.PeerID {
	t.Helper()
	kp, err := identity.Derive(name, "pw")
	require.NoError(t, err)
	return kp.PeerID()
}

// TestEncodeDecode_RoundTripsEveryEventKind is the round-trip law of
// spec.md §4.H: Decode(Encode(event)) == event for every event kind
// the lobby can emit.
func TestEncodeDecode_RoundTripsEveryEventKind(t *testing.T) {
	host := peer(t, "Host")
	guest := peer(t, "Guest")

	events := []lobby.DomainEvent{
		lobby.LobbyCreatedEvent{LobbyID: "l1", Name: "Game Night", HostID: host, MaxGuests: 4},
		lobby.GuestJoinedEvent{Participant: lobby.Participant{ID: guest, DisplayName: "Guest", Role: lobby.Guest, Mode: lobby.Active, JoinedAt: 100}},
		lobby.GuestLeftEvent{ParticipantID: guest},
		lobby.GuestKickedEvent{ParticipantID: guest, KickedBy: host},
		lobby.ParticipationModeChangedEvent{ParticipantID: guest, Mode: lobby.Spectating},
		lobby.PasswordChangedEvent{Cleared: true},
		lobby.LobbyClosedEvent{},
		lobby.ActivityPlannedEvent{ActivityID: "a1", ActivityKind: "quiz", Config: []byte(`{"q":5}`), ExpectedSubmitters: []identity.PeerID{host, guest}},
		lobby.ActivityStartedEvent{ActivityID: "a1"},
		lobby.ResultRecordedEvent{ActivityID: "a1", Result: lobby.Result{ParticipantID: guest, Score: 10, ElapsedMs: 500}},
		lobby.ActivityCompletedEvent{ActivityID: "a1", Leaderboard: []lobby.Result{{ParticipantID: guest, Score: 10}}},
		lobby.ActivityCancelledEvent{ActivityID: "a1", Reason: "timed out"},
		lobby.LeaderboardUpdatedEvent{ActivityID: "a1", Leaderboard: []lobby.Result{{ParticipantID: guest, Score: 10}}},
		lobby.HostDelegatedEvent{NewHostID: guest, OldHostID: host},
	}

	for _, event := range events {
		payload, err := Encode(event)
		require.NoError(t, err, event.Kind())

		kind, decoded, request, err := Decode(payload)
		require.NoError(t, err, event.Kind())
		assert.Nil(t, request)
		assert.Equal(t, MessageKind(event.Kind()), kind)
		assert.Equal(t, event, decoded, event.Kind())
	}
}

func TestEncodeDecode_JoinRequest(t *testing.T) {
	payload, err := EncodeRequest(KindJoinRequest, JoinRequest{DisplayName: "Guest1", Password: "secret"})
	require.NoError(t, err)

	kind, event, request, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, KindJoinRequest, kind)
	assert.Nil(t, event)
	assert.Equal(t, JoinRequest{DisplayName: "Guest1", Password: "secret"}, request)
}

func TestEncodeDecode_GapFillRequest(t *testing.T) {
	payload, err := EncodeRequest(KindGapFillRequest, GapFillRequest{MissingSeq: 7})
	require.NoError(t, err)

	kind, _, request, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, KindGapFillRequest, kind)
	assert.Equal(t, GapFillRequest{MissingSeq: 7}, request)
}

func TestDecode_RejectsUnknownKind(t *testing.T) {
	_, _, _, err := Decode([]byte(`{"kind":"NotARealKind","data":{}}`))
	assert.Error(t, err)
}

func TestDecode_RejectsMalformedPayload(t *testing.T) {
	_, _, _, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}
