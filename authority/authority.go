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

// Package authority implements the host-as-truth authorization gate
// and delegation election of spec.md §4.F: every state-mutating event
// is accepted only from the current host, except a join request any
// peer may issue; a host confirmed disconnected (per package ordering's
// liveness derivation) is replaced by deterministic election among the
// remaining participants, with a grace period for the elected
// candidate to claim before the next-ranked candidate is tried.
package authority

import (
	"sort"
	"time"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/konnekterr"
)

// DefaultClaimGracePeriod is how long an elected candidate has to
// broadcast its host claim before the next candidate is tried.
const DefaultClaimGracePeriod = 30 * time.Second

// ElectionState tracks whether a delegation is in flight.
type ElectionState int

const (
	Stable ElectionState = iota
	PendingClaim
)

// Candidate is a participant eligible to become host, ranked by
// (JoinedAt, PeerID) ascending — the earliest-joined, and lowest peer
// id as a deterministic tiebreaker, wins (spec.md §4.F).
type Candidate struct {
	ID       identity.PeerID
	JoinedAt int64
}

// Authority tracks the current host and any election in progress. It
// holds no knowledge of lobby contents beyond the candidate list it is
// given; package lobby and package authority compose in controller.
type Authority struct {
	hostID    identity.PeerID
	state     ElectionState
	elected   identity.PeerID
	remaining []Candidate // candidates not yet tried this election, in rank order
	deadline  time.Time

	// delegationCompleted is set once a ConfirmDelegation has
	// succeeded; per spec.md §4.F, a later HostReclaim must be refused
	// once a delegation has completed, even though the former host may
	// still be a lobby member.
	delegationCompleted bool
}

// New creates an Authority with initialHost as the current host.
func New(initialHost identity.PeerID) *Authority {
	return &Authority{hostID: initialHost, state: Stable}
}

// HostID returns the current authoritative host.
func (a *Authority) HostID() identity.PeerID { return a.hostID }

// State reports whether a delegation election is in progress.
func (a *Authority) State() ElectionState { return a.state }

// CheckAuthority enforces spec.md §4.F's sender rule: every event must
// come from the current host, except when exempt is true (the
// JoinRequest case, which any peer may issue).
func (a *Authority) CheckAuthority(sender identity.PeerID, exempt bool) *konnekterr.CommandFailure {
	if exempt {
		return nil
	}
	if sender != a.hostID {
		return konnekterr.Fail(konnekterr.ReasonNotAuthorized, "sender is not the current host")
	}
	return nil
}

func rankCandidates(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].JoinedAt != ranked[j].JoinedAt {
			return ranked[i].JoinedAt < ranked[j].JoinedAt
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})
	return ranked
}

// BeginElection starts a delegation election among candidates (which
// must exclude the disconnected host) and returns the first elected
// candidate. It is a no-op returning (zero, false) if candidates is
// empty or an election is already in progress.
func (a *Authority) BeginElection(candidates []Candidate, now time.Time) (identity.PeerID, bool) {
	if a.state == PendingClaim || len(candidates) == 0 {
		return identity.PeerID{}, false
	}
	ranked := rankCandidates(candidates)
	a.remaining = ranked[1:]
	a.elected = ranked[0].ID
	a.state = PendingClaim
	a.deadline = now.Add(DefaultClaimGracePeriod)
	return a.elected, true
}

// ConfirmDelegation is called when a host claim from newHost arrives,
// or by the elected candidate itself when it claims. It succeeds only if an election is in progress and newHost
// is the currently elected candidate; otherwise the claim is rejected,
// guarding against an unelected peer self-promoting.
func (a *Authority) ConfirmDelegation(newHost identity.PeerID, now time.Time) *konnekterr.CommandFailure {
	if a.state != PendingClaim || newHost != a.elected {
		return konnekterr.Fail(konnekterr.ReasonNotAuthorized, "sender is not the elected candidate")
	}
	a.hostID = newHost
	a.state = Stable
	a.remaining = nil
	a.elected = identity.PeerID{}
	a.delegationCompleted = true
	return nil
}

// DelegationCompleted reports whether a delegation has ever completed
// since this Authority was constructed.
func (a *Authority) DelegationCompleted() bool { return a.delegationCompleted }

// Reclaim restores hostID to candidate, the peer presenting a valid
// HostReclaim request whose fingerprint the caller has already
// verified against the lobby's stored hostKeyFingerprint. It refuses
// once a delegation has completed (spec.md §4.F, seed-suite scenario
// 4): the former host must then rejoin as an ordinary guest instead.
func (a *Authority) Reclaim(candidate identity.PeerID) *konnekterr.CommandFailure {
	if a.delegationCompleted {
		return konnekterr.Fail(konnekterr.ReasonNotAuthorized, "delegation already completed; reclaim refused")
	}
	a.hostID = candidate
	a.state = Stable
	a.remaining = nil
	a.elected = identity.PeerID{}
	return nil
}

// SetHost directly installs newHost as the current host, bypassing
// the election protocol. Used by the controller for the voluntary
// delegate-back path (the current host accepting a reclaim before any
// election has ever run) and for applying a HostDelegatedEvent that a
// remote peer issued as the deterministic election winner.
func (a *Authority) SetHost(newHost identity.PeerID) {
	a.hostID = newHost
}

// CheckClaimTimeout advances the election to the next-ranked candidate
// if the grace period has elapsed without a confirmed claim. It
// returns (nextCandidate, true) when a new candidate is now elected,
// or (zero, false) when no election is pending, the deadline has not
// yet passed, or no candidates remain (the election then ends and
// HostID still names the previous host).
func (a *Authority) CheckClaimTimeout(now time.Time) (identity.PeerID, bool) {
	if a.state != PendingClaim || now.Before(a.deadline) {
		return identity.PeerID{}, false
	}
	if len(a.remaining) == 0 {
		a.state = Stable
		return identity.PeerID{}, false
	}
	a.elected = a.remaining[0].ID
	a.remaining = a.remaining[1:]
	a.deadline = now.Add(DefaultClaimGracePeriod)
	return a.elected, true
}

// Deadline returns the current election's claim deadline; only
// meaningful while State() == PendingClaim.
func (a *Authority) Deadline() time.Time { return a.deadline }
