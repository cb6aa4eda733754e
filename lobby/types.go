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

// Package lobby implements the replicated Lobby aggregate of spec.md
// §3/§4.E: Participants, Activities, the command table, and the eight
// invariants that must hold after every apply. Activity lifecycle
// (Planned/InProgress/Completed/Cancelled) lives here too, because it
// mutates the same in-memory aggregate the other commands do and
// shares invariants 3, 4 and 8 with it; package activity supplies the
// pure, stateless parts of that lifecycle (leaderboard ranking and the
// consumer activity-kind registry) that don't need aggregate access.
package lobby

import (
	"time"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/ordering"
)

// Role is a participant's authority role within the lobby.
type Role int

const (
	Guest Role = iota
	Host
)

func (r Role) String() string {
	if r == Host {
		return "Host"
	}
	return "Guest"
}

// Mode is a participant's participation mode, orthogonal to Role.
type Mode int

const (
	Active Mode = iota
	Spectating
)

func (m Mode) String() string {
	if m == Spectating {
		return "Spectating"
	}
	return "Active"
}

// ConnectionStatus reuses the ordering package's liveness enum so the
// guard's derivation and the domain's view of a participant never
// disagree about what "online" means.
type ConnectionStatus = ordering.ConnectionStatus

const (
	Online              = ordering.Online
	SuspectedDisconnect = ordering.SuspectedDisconnect
	ConfirmedDisconnect = ordering.ConfirmedDisconnect
)

// Status is the lobby's own lifecycle state (spec.md §3).
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusArchived
)

// Participant is one member of the lobby (spec.md §3).
type Participant struct {
	ID               identity.PeerID
	DisplayName      string
	Role             Role
	Mode             Mode
	JoinedAt         int64 // ms since epoch, assigned by host on admission
	LastHeartbeatAt  time.Time
	ConnectionStatus ConnectionStatus
}

// ActivityStatus is the activity lifecycle state (spec.md §4.G).
type ActivityStatus int

const (
	Planned ActivityStatus = iota
	InProgress
	Completed
	Cancelled
)

func (s ActivityStatus) String() string {
	switch s {
	case Planned:
		return "Planned"
	case InProgress:
		return "InProgress"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Result is one participant's submission to an activity.
type Result struct {
	ParticipantID identity.PeerID
	Score         int
	ElapsedMs     int64
	SubmittedAt   time.Time
}

// Activity is a single planned/running/finished activity (spec.md §3).
type Activity struct {
	ID                 string
	Kind               string
	Config             []byte
	Status             ActivityStatus
	StartedAt          *time.Time
	CompletedAt        *time.Time
	Results            []Result // ordered by submission, keyed by ParticipantID (unique)
	ExpectedSubmitters map[identity.PeerID]struct{}
}

func (a *Activity) hasResultFrom(id identity.PeerID) bool {
	for _, r := range a.Results {
		if r.ParticipantID == id {
			return true
		}
	}
	return false
}
