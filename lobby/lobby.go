// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/konnekterr"
)

// Lobby is the replicated aggregate root. Every peer holds one
// in-memory copy; the host's copy is authoritative and every other
// peer's copy converges onto it by applying the host's broadcast
// events in order (package acl / controller wire this up).
//
// The command methods (Join, Leave, Kick, ChangePassword, Close, the
// activity commands, ...) run against the host's own copy — whether the
// command originated locally at the host or arrived as a guest's
// request — and mutate it directly. Apply replays an already-
// authoritative event received from the host against a replica; the
// host does not Apply its own events.
type Lobby struct {
	mu sync.Mutex

	ID           string
	Name         string
	passwordHash *passwordHash
	MaxGuests    int
	Status       Status

	Participants map[identity.PeerID]*Participant
	Activities   []*Activity

	HostID identity.PeerID

	// HostKeyFingerprint is set once, by the founding host, to its own
	// PeerID hex (spec.md §3). A peer presenting a HostReclaim request
	// signed by the key matching this fingerprint is the original host
	// attempting to resume authority after a reconnect (spec.md §4.F).
	HostKeyFingerprint string

	clock func() time.Time
}

// New creates a brand-new lobby with host as its sole participant and
// emits the corresponding LobbyCreatedEvent. This is the one operation
// that is not a method on an existing aggregate, since there is no
// aggregate yet to call it against.
func New(name string, password string, maxGuests int, host identity.PeerID, hostDisplayName string) (*Lobby, []DomainEvent, error) {
	ph, err := hashPassword(password)
	if err != nil {
		return nil, nil, err
	}
	if password == "" {
		ph = nil
	}

	l := &Lobby{
		ID:                 uuid.NewString(),
		Name:               name,
		passwordHash:       ph,
		MaxGuests:          maxGuests,
		Status:             StatusOpen,
		Participants:       make(map[identity.PeerID]*Participant),
		HostID:             host,
		HostKeyFingerprint: host.String(),
		clock:              time.Now,
	}
	now := l.clock()
	l.Participants[host] = &Participant{
		ID:               host,
		DisplayName:      hostDisplayName,
		Role:             Host,
		Mode:             Active,
		JoinedAt:         now.UnixMilli(),
		LastHeartbeatAt:  now,
		ConnectionStatus: Online,
	}

	return l, []DomainEvent{LobbyCreatedEvent{LobbyID: l.ID, Name: name, HostID: host, MaxGuests: maxGuests}}, nil
}

// SetClock overrides the lobby's notion of "now", for deterministic tests.
func (l *Lobby) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = now
}

func (l *Lobby) requireOpen() *konnekterr.CommandFailure {
	if l.Status != StatusOpen {
		return konnekterr.Fail(konnekterr.ReasonArchived, "lobby is not open")
	}
	return nil
}

func (l *Lobby) requireHost(sender identity.PeerID) *konnekterr.CommandFailure {
	if sender != l.HostID {
		return konnekterr.Fail(konnekterr.ReasonNotAuthorized, "only the host may perform this action")
	}
	return nil
}

// Join admits a new participant. Any peer may issue this request; the
// host is the only one who ever actually runs it (spec.md §4.E/§4.F).
func (l *Lobby) Join(sender identity.PeerID, displayName, password string) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireOpen(); fail != nil {
		return nil, fail
	}
	if _, exists := l.Participants[sender]; exists {
		return nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, "already a participant")
	}
	if !l.passwordHash.matches(password) {
		return nil, konnekterr.Fail(konnekterr.ReasonInvalidPassword, "")
	}
	guestCount := 0
	for _, p := range l.Participants {
		if p.Role == Guest {
			guestCount++
		}
		if p.DisplayName == displayName {
			return nil, konnekterr.Fail(konnekterr.ReasonNameAlreadyTaken, displayName)
		}
	}
	if guestCount >= l.MaxGuests {
		return nil, konnekterr.Fail(konnekterr.ReasonLobbyFull, "")
	}

	now := l.clock()
	p := Participant{
		ID:               sender,
		DisplayName:      displayName,
		Role:             Guest,
		Mode:             Active,
		JoinedAt:         now.UnixMilli(),
		LastHeartbeatAt:  now,
		ConnectionStatus: Online,
	}
	l.Participants[sender] = &p
	return []DomainEvent{GuestJoinedEvent{Participant: p}}, nil
}

// Leave removes a participant who is voluntarily departing.
func (l *Lobby) Leave(sender identity.PeerID) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.Participants[sender]; !ok {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	delete(l.Participants, sender)
	l.removeFromExpectedSubmitters(sender)
	return []DomainEvent{GuestLeftEvent{ParticipantID: sender}}, nil
}

// Kick removes a guest at the host's direction.
func (l *Lobby) Kick(sender, target identity.PeerID) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireHost(sender); fail != nil {
		return nil, fail
	}
	p, ok := l.Participants[target]
	if !ok {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	if p.Role == Host {
		return nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, "cannot kick the host")
	}
	delete(l.Participants, target)
	l.removeFromExpectedSubmitters(target)
	return []DomainEvent{GuestKickedEvent{ParticipantID: target, KickedBy: sender}}, nil
}

// ToggleParticipationMode flips a participant between Active and
// Spectating. Self-service for any participant, or host acting on
// behalf of anyone; it is rejected while an activity is InProgress so
// the expectedSubmitters snapshot can't be invalidated mid-run.
func (l *Lobby) ToggleParticipationMode(sender, target identity.PeerID) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sender != target && sender != l.HostID {
		return nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, "")
	}
	p, ok := l.Participants[target]
	if !ok {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	if l.hasInProgressActivity() {
		return nil, konnekterr.Fail(konnekterr.ReasonCannotChangeModeDuringRun, "")
	}
	if p.Mode == Active {
		p.Mode = Spectating
	} else {
		p.Mode = Active
	}
	return []DomainEvent{ParticipationModeChangedEvent{ParticipantID: target, Mode: p.Mode}}, nil
}

// ChangePassword updates (or clears, with an empty string) the lobby's join password.
func (l *Lobby) ChangePassword(sender identity.PeerID, newPassword string) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireHost(sender); fail != nil {
		return nil, fail
	}
	if newPassword == "" {
		l.passwordHash = nil
		return []DomainEvent{PasswordChangedEvent{Cleared: true}}, nil
	}
	ph, err := hashPassword(newPassword)
	if err != nil {
		return nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, err.Error())
	}
	l.passwordHash = ph
	return []DomainEvent{PasswordChangedEvent{Cleared: false}}, nil
}

// Close ends the lobby permanently; further joins are rejected. Other
// commands do not check the lobby's status.
func (l *Lobby) Close(sender identity.PeerID) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireHost(sender); fail != nil {
		return nil, fail
	}
	l.Status = StatusClosed
	return []DomainEvent{LobbyClosedEvent{}}, nil
}

// DelegateHost commits a host transition the controller has already
// decided (an election confirmed through authority.ConfirmDelegation,
// an accepted reclaim, or a voluntary delegation); it does not itself
// re-check authorization, since by the time the controller calls this
// the outcome is already final.
func (l *Lobby) DelegateHost(newHost identity.PeerID) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.Participants[newHost]; !ok {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "elected host is not a participant")
	}
	oldHost := l.HostID
	if old, ok := l.Participants[oldHost]; ok {
		old.Role = Guest
	}
	l.Participants[newHost].Role = Host
	l.HostID = newHost
	return []DomainEvent{HostDelegatedEvent{NewHostID: newHost, OldHostID: oldHost}}, nil
}

// SetConnectionStatus records a participant's locally observed liveness
// (spec.md §4.D). Every peer derives this independently from its own
// heartbeat view, so the update itself is purely informational; only
// when it reaches ConfirmedDisconnect does it also retire the
// participant from any in-progress activity's expectedSubmitters and
// potentially complete that activity (spec.md §4.G) — which matters only
// on the host's own copy, since a replica never populates
// expectedSubmitters in the first place (see Apply's ActivityPlannedEvent
// case) and so never produces completion events of its own.
func (l *Lobby) SetConnectionStatus(id identity.PeerID, status ConnectionStatus) []DomainEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.Participants[id]
	if !ok || p.ConnectionStatus == status {
		return nil
	}
	p.ConnectionStatus = status
	if status != ConfirmedDisconnect {
		return nil
	}

	var events []DomainEvent
	for _, a := range l.Activities {
		if a.Status != InProgress {
			continue
		}
		if _, expected := a.ExpectedSubmitters[id]; !expected {
			continue
		}
		delete(a.ExpectedSubmitters, id)
		if l.allExpectedSubmitted(a) {
			events = append(events, l.completeActivityLocked(a, "")...)
		}
	}
	return events
}

func (l *Lobby) hasInProgressActivity() bool {
	for _, a := range l.Activities {
		if a.Status == InProgress {
			return true
		}
	}
	return false
}

func (l *Lobby) removeFromExpectedSubmitters(id identity.PeerID) {
	for _, a := range l.Activities {
		if a.Status == InProgress {
			delete(a.ExpectedSubmitters, id)
		}
	}
}

// Snapshot returns a read lock'd view for read-only callers such as
// the ACL and controller status endpoint; it copies nothing and must
// not be mutated by the caller.
func (l *Lobby) Snapshot(fn func(*Lobby)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}
