// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package controller

import (
	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/lobby"
)

// Snapshot is the read-only view Status() returns. It is built from the
// mailbox goroutine so it always reflects a state that was actually
// valid at one instant, never a torn read across concurrent mutation.
type Snapshot struct {
	Ready           bool
	LobbyID         string
	Name            string
	Status          lobby.Status
	MaxGuests       int
	HostID          identity.PeerID
	HostFingerprint string
	Self            identity.PeerID
	IsHost          bool
	Participants    []lobby.Participant
	Activities      []lobby.Activity
}

func (s *Session) buildSnapshot() Snapshot {
	if s.lobby == nil {
		return Snapshot{Self: s.selfID}
	}
	st := s.lobby.Export()
	return Snapshot{
		Ready:           true,
		LobbyID:         st.ID,
		Name:            st.Name,
		Status:          st.Status,
		MaxGuests:       st.MaxGuests,
		HostID:          st.HostID,
		HostFingerprint: st.HostKeyFingerprint,
		Self:            s.selfID,
		IsHost:          st.HostID == s.selfID,
		Participants:    st.Participants,
		Activities:      st.Activities,
	}
}
