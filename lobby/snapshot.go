// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import (
	"time"

	"github.com/konnekt/session/identity"
)

// State is a serializable snapshot of every replicated field of a
// Lobby. The core spec defines how events move an already-joined
// peer's replica forward, but is silent on how a brand-new guest
// bootstraps its very first copy; package controller resolves that by
// having the host Export its State directly to a newly admitted guest
// over a unicast, and the guest Hydrate its local replica from it
// (see DESIGN.md).
type State struct {
	ID                 string
	Name               string
	MaxGuests          int
	Status             Status
	HostID             identity.PeerID
	HostKeyFingerprint string
	Participants       []Participant
	Activities         []Activity
}

// Export copies every replicated field into a State suitable for
// transmission to a newly admitted guest. The lobby's password hash
// is deliberately not included: a guest's local replica never
// validates passwords itself (only the host ever calls Join).
func (l *Lobby) Export() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	participants := make([]Participant, 0, len(l.Participants))
	for _, p := range l.Participants {
		participants = append(participants, *p)
	}
	activities := make([]Activity, len(l.Activities))
	for i, a := range l.Activities {
		activities[i] = *a
	}
	return State{
		ID:                 l.ID,
		Name:               l.Name,
		MaxGuests:          l.MaxGuests,
		Status:             l.Status,
		HostID:             l.HostID,
		HostKeyFingerprint: l.HostKeyFingerprint,
		Participants:       participants,
		Activities:         activities,
	}
}

// Hydrate builds a Lobby replica from a State previously produced by
// Export. The replica has no password hash (it never needs one) and
// uses the real wall clock unless overridden with SetClock.
func Hydrate(s State) *Lobby {
	l := &Lobby{
		ID:                 s.ID,
		Name:               s.Name,
		MaxGuests:          s.MaxGuests,
		Status:             s.Status,
		HostID:             s.HostID,
		HostKeyFingerprint: s.HostKeyFingerprint,
		Participants:       make(map[identity.PeerID]*Participant, len(s.Participants)),
		clock:              time.Now,
	}
	for i := range s.Participants {
		p := s.Participants[i]
		l.Participants[p.ID] = &p
	}
	for i := range s.Activities {
		a := s.Activities[i]
		l.Activities = append(l.Activities, &a)
	}
	return l
}
