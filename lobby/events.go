// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import "github.com/konnekt/session/identity"

// EventKind names every authoritative event a Lobby can emit. These are
// the event side of the command table in spec.md §4.E/§4.G; package acl
// maps each one to and from its wire representation.
type EventKind string

const (
	EventLobbyCreated             EventKind = "LobbyCreated"
	EventGuestJoined              EventKind = "GuestJoined"
	EventGuestLeft                EventKind = "GuestLeft"
	EventGuestKicked              EventKind = "GuestKicked"
	EventParticipationModeChanged EventKind = "ParticipationModeChanged"
	EventPasswordChanged          EventKind = "PasswordChanged"
	EventLobbyClosed              EventKind = "LobbyClosed"
	EventActivityPlanned          EventKind = "ActivityPlanned"
	EventActivityStarted          EventKind = "ActivityStarted"
	EventResultRecorded           EventKind = "ResultRecorded"
	EventActivityCompleted        EventKind = "ActivityCompleted"
	EventActivityCancelled        EventKind = "ActivityCancelled"
	EventLeaderboardUpdated       EventKind = "LeaderboardUpdated"
	EventHostDelegated            EventKind = "HostDelegated"
)

// DomainEvent is implemented by every concrete event type below.
type DomainEvent interface {
	Kind() EventKind
}

type LobbyCreatedEvent struct {
	LobbyID  string
	Name     string
	HostID   identity.PeerID
	MaxGuests int
}

func (LobbyCreatedEvent) Kind() EventKind { return EventLobbyCreated }

type GuestJoinedEvent struct {
	Participant Participant
}

func (GuestJoinedEvent) Kind() EventKind { return EventGuestJoined }

type GuestLeftEvent struct {
	ParticipantID identity.PeerID
}

func (GuestLeftEvent) Kind() EventKind { return EventGuestLeft }

type GuestKickedEvent struct {
	ParticipantID identity.PeerID
	KickedBy      identity.PeerID
}

func (GuestKickedEvent) Kind() EventKind { return EventGuestKicked }

type ParticipationModeChangedEvent struct {
	ParticipantID identity.PeerID
	Mode          Mode
}

func (ParticipationModeChangedEvent) Kind() EventKind { return EventParticipationModeChanged }

type PasswordChangedEvent struct {
	// Cleared is true when the new password is empty (password removed).
	Cleared bool
}

func (PasswordChangedEvent) Kind() EventKind { return EventPasswordChanged }

type LobbyClosedEvent struct{}

func (LobbyClosedEvent) Kind() EventKind { return EventLobbyClosed }

type ActivityPlannedEvent struct {
	ActivityID         string
	ActivityKind       string
	Config             []byte
	ExpectedSubmitters []identity.PeerID
}

func (ActivityPlannedEvent) Kind() EventKind { return EventActivityPlanned }

type ActivityStartedEvent struct {
	ActivityID string
}

func (ActivityStartedEvent) Kind() EventKind { return EventActivityStarted }

type ResultRecordedEvent struct {
	ActivityID string
	Result     Result
}

func (ResultRecordedEvent) Kind() EventKind { return EventResultRecorded }

type ActivityCompletedEvent struct {
	ActivityID  string
	Leaderboard []Result // ranked: score desc, elapsedMs asc
}

func (ActivityCompletedEvent) Kind() EventKind { return EventActivityCompleted }

type ActivityCancelledEvent struct {
	ActivityID string
	Reason     string
}

func (ActivityCancelledEvent) Kind() EventKind { return EventActivityCancelled }

type LeaderboardUpdatedEvent struct {
	ActivityID  string
	Leaderboard []Result
}

func (LeaderboardUpdatedEvent) Kind() EventKind { return EventLeaderboardUpdated }

// HostDelegatedEvent announces that authority has moved to a new
// host: after a successful election (package authority) once the
// previous host was confirmed disconnected, after an accepted reclaim,
// or on a voluntary delegation.
type HostDelegatedEvent struct {
	NewHostID identity.PeerID
	OldHostID identity.PeerID
}

func (HostDelegatedEvent) Kind() EventKind { return EventHostDelegated }
