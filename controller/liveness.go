// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package controller

import (
	"context"
	"time"

	"github.com/konnekt/session/acl"
	"github.com/konnekt/session/authority"
	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/internal/logger"
	"github.com/konnekt/session/ordering"
)

// onHeartbeatTick broadcasts the no-op signed envelope every peer sends
// every 5s (spec.md §4.D/§4.I), the sole mechanism every other peer uses
// to derive this peer's liveness.
func (s *Session) onHeartbeatTick() {
	if s.lobby == nil {
		return
	}
	payload, err := acl.EncodeRequest(acl.KindHeartbeat, acl.Heartbeat{})
	if err != nil {
		s.log.Error("controller: encode heartbeat failed", logger.Error(err))
		return
	}
	env := s.sign(payload)
	if err := s.tr.Broadcast(context.Background(), env); err != nil {
		s.log.Warn("controller: heartbeat broadcast failed", logger.Error(err))
		return
	}
	s.met.EnvelopesSent.WithLabelValues("broadcast").Inc()
}

// onLivenessTick re-derives every known participant's connectionStatus
// from its own heartbeat view and, if the current host has reached
// ConfirmedDisconnect, drives the deterministic election of spec.md
// §4.F. Every peer runs this independently and is expected to compute
// the same outcome.
func (s *Session) onLivenessTick() {
	if s.lobby == nil {
		return
	}
	now := s.now()
	s.updateConnectionStatuses(now)
	s.checkHostElection(now)
}

// onActivityTick auto-cancels any activity that has been InProgress
// longer than lobby.DefaultActivityTimeout (spec.md §4.G). Only the
// host runs this: it is a business rule, not a replication step, so a
// replica waits for the host's broadcast ActivityCancelledEvent like
// any other authoritative event.
func (s *Session) onActivityTick() {
	if s.lobby == nil || !s.isHost() {
		return
	}
	events := s.lobby.CheckActivityTimeouts(s.now())
	if len(events) == 0 {
		return
	}
	s.notifyAll(events)
	s.broadcastEvents(events)
}

func (s *Session) updateConnectionStatuses(now time.Time) {
	for id := range s.lobby.Participants {
		if id == s.selfID {
			continue
		}
		since, ok := s.guard.LastHeartbeatAt(id)
		if !ok {
			continue
		}
		status := s.opts.Liveness.Derive(now.Sub(since))
		events := s.lobby.SetConnectionStatus(id, status)
		if len(events) == 0 {
			continue
		}
		s.notifyAll(events)
		if s.isHost() {
			s.broadcastEvents(events)
		}
	}
}

// checkHostElection implements spec.md §4.F scenario 3: once the
// current host is ConfirmedDisconnect, every remaining peer
// independently ranks the same candidate list and, if it is itself the
// winner, broadcasts a HostClaim. If the elected candidate's own grace
// period lapses without a confirmed claim, the next-ranked candidate is
// tried the same way.
func (s *Session) checkHostElection(now time.Time) {
	if s.isHost() {
		return
	}
	hostID := s.auth.HostID()

	switch s.auth.State() {
	case authority.Stable:
		since, ok := s.guard.LastHeartbeatAt(hostID)
		if !ok || s.opts.Liveness.Derive(now.Sub(since)) != ordering.ConfirmedDisconnect {
			return
		}
		elected, ok := s.auth.BeginElection(s.electionCandidates(hostID), now)
		if !ok {
			return
		}
		s.met.ElectionsStarted.Inc()
		if elected == s.selfID {
			s.claimHost(hostID, now)
		}

	case authority.PendingClaim:
		next, ok := s.auth.CheckClaimTimeout(now)
		if !ok {
			return
		}
		if next == s.selfID {
			s.claimHost(hostID, now)
		}
	}
}

// claimHost commits this peer's own election win locally, then
// broadcasts the HostClaim so every other peer can corroborate it
// (package authority's ConfirmDelegation on the receiving end), before
// broadcasting the resulting HostDelegatedEvent. The claim is sent
// first so the ordering guard on every receiver delivers it ahead of
// the event that depends on the new host already being recognized.
func (s *Session) claimHost(previousHost identity.PeerID, now time.Time) {
	if err := s.auth.ConfirmDelegation(s.selfID, now); err != nil {
		return
	}
	events, fail := s.lobby.DelegateHost(s.selfID)
	if fail != nil {
		return
	}

	var joinedAt int64
	if p, ok := s.lobby.Participants[s.selfID]; ok {
		joinedAt = p.JoinedAt
	}
	payload, err := acl.EncodeRequest(acl.KindHostClaim, acl.HostClaim{PreviousHostID: previousHost, JoinedAt: joinedAt})
	if err != nil {
		s.log.Error("controller: encode HostClaim failed", logger.Error(err))
	} else {
		env := s.sign(payload)
		if err := s.tr.Broadcast(context.Background(), env); err != nil {
			s.log.Warn("controller: HostClaim broadcast failed", logger.Error(err))
		} else {
			s.met.EnvelopesSent.WithLabelValues("broadcast").Inc()
		}
	}

	s.notifyAll(events)
	s.broadcastEvents(events)
}
