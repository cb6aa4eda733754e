// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package controller

import (
	"context"

	"github.com/konnekt/session/acl"
	"github.com/konnekt/session/authority"
	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/internal/logger"
	"github.com/konnekt/session/konnekterr"
	"github.com/konnekt/session/lobby"
	"github.com/konnekt/session/ordering"
	"github.com/konnekt/session/wire"
)

// processEnvelope is the sole entry point for a remote envelope: verify
// the signature (rule 1 of spec.md §4.D — ordering.Guard's own doc
// comment notes this is the caller's responsibility), then hand off to
// the ordering guard, then decode and dispatch whatever it delivers,
// in the order it delivers them.
func (s *Session) processEnvelope(env wire.Envelope) {
	if err := env.Verify(); err != nil {
		s.log.Warn("controller: signature verification failed", logger.String("sender", env.SenderID.String()))
		return
	}

	result := s.guard.Accept(env)
	s.met.EnvelopesReceived.WithLabelValues(outcomeLabel(result.Outcome)).Inc()

	switch result.Outcome {
	case ordering.Dropped:
		if result.Err != nil {
			s.log.Debug("controller: envelope dropped", logger.String("reason", string(result.Err.Reason)))
		}
		return

	case ordering.Queued:
		if result.RequestMissing != nil {
			s.sendGapFillRequest(env.SenderID, *result.RequestMissing)
		}
		return

	case ordering.Delivered:
		for _, e := range result.Delivered {
			s.applyDelivered(e)
		}
	}
}

func outcomeLabel(o ordering.Outcome) string {
	switch o {
	case ordering.Delivered:
		return "delivered"
	case ordering.Queued:
		return "queued"
	default:
		return "dropped"
	}
}

func (s *Session) applyDelivered(env wire.Envelope) {
	kind, event, request, err := acl.Decode(env.Payload)
	if err != nil {
		s.log.Warn("controller: malformed payload", logger.Error(err))
		return
	}
	if request != nil {
		s.handleRequest(env.SenderID, kind, request)
		return
	}
	if event != nil {
		s.handleEvent(env.SenderID, event)
	}
}

func (s *Session) handleRequest(sender identity.PeerID, kind acl.MessageKind, request any) {
	switch kind {
	case acl.KindGapFillRequest:
		r := request.(acl.GapFillRequest)
		s.resendFromLog(sender, r.MissingSeq)

	case acl.KindHeartbeat:
		// Arrival alone already refreshed the guard's per-sender
		// lastHeartbeatAt; nothing further to do.

	case acl.KindHostClaim:
		r := request.(acl.HostClaim)
		s.handleHostClaim(sender, r)

	case acl.KindJoinRequest:
		if s.lobby == nil || !s.isHost() {
			return
		}
		r := request.(acl.JoinRequest)
		s.handleJoinRequest(sender, r)

	case acl.KindLobbySync:
		r := request.(acl.LobbySync)
		s.handleLobbySync(r)

	case acl.KindJoinRejected:
		r := request.(acl.JoinRejected)
		s.handleJoinRejected(r)

	case acl.KindLeaveRequest:
		if s.isHost() {
			s.runHost(s.lobby.Leave(sender))
		}

	case acl.KindToggleModeRequest:
		if s.isHost() {
			s.runHost(s.lobby.ToggleParticipationMode(sender, sender))
		}

	case acl.KindSubmitResultRequest:
		if s.isHost() {
			r := request.(acl.SubmitResultRequest)
			s.runHost(s.lobby.SubmitResult(sender, r.ActivityID, r.Score, r.ElapsedMs))
		}

	case acl.KindHostReclaimRequest:
		if s.isHost() {
			r := request.(acl.HostReclaimRequest)
			s.handleHostReclaimRequest(sender, r)
		}
	}
}

// handleEvent applies an already-authoritative event to this replica.
// LobbyCreatedEvent has no Apply case (package lobby's New already
// built the aggregate directly, so replaying it would only ever happen
// if a peer somehow received its own creation broadcast) and is
// otherwise purely informational, so it is not replayed here.
func (s *Session) handleEvent(sender identity.PeerID, event lobby.DomainEvent) {
	if s.lobby == nil || event.Kind() == lobby.EventLobbyCreated {
		return
	}
	if fail := s.auth.CheckAuthority(sender, false); fail != nil {
		s.log.Warn("controller: event from non-host rejected", logger.String("sender", sender.String()), logger.String("kind", string(event.Kind())))
		return
	}
	if err := s.lobby.Apply(event); err != nil {
		s.log.Debug("controller: apply failed", logger.Error(err))
		return
	}
	if hd, ok := event.(lobby.HostDelegatedEvent); ok {
		s.auth.SetHost(hd.NewHostID)
	}
	if event.Kind() == lobby.EventActivityCompleted {
		s.met.ActivitiesCompleted.Inc()
	}
	s.notifyAll([]lobby.DomainEvent{event})
}

func (s *Session) handleJoinRequest(sender identity.PeerID, r acl.JoinRequest) {
	events, fail := s.lobby.Join(sender, r.DisplayName, r.Password)
	if fail != nil {
		s.sendJoinRejected(sender, fail.Reason)
		return
	}
	s.notifyAll(events)
	s.broadcastEvents(events)
	s.sendLobbySync(sender)
}

// handleHostReclaimRequest is only ever invoked while s.isHost(). The
// returning original host is restored to authority if its fingerprint
// matches and no delegation has completed since (spec.md §4.F); any
// other outcome falls back to ordinary Join admission as a guest.
func (s *Session) handleHostReclaimRequest(sender identity.PeerID, r acl.HostReclaimRequest) {
	if r.Fingerprint == s.lobby.HostKeyFingerprint {
		if fail := s.auth.Reclaim(sender); fail == nil {
			events, dfail := s.lobby.DelegateHost(sender)
			if dfail == nil {
				s.notifyAll(events)
				s.broadcastEvents(events)
				return
			}
		}
	}
	s.handleJoinRequest(sender, acl.JoinRequest{DisplayName: r.DisplayName})
}

// handleHostClaim corroborates an election claim against this peer's
// own independently-computed winner before accepting it (package
// authority's ConfirmDelegation). If this peer hasn't yet noticed the
// old host is gone, it opportunistically starts its own election first
// so the claim isn't dropped purely on a detection race.
func (s *Session) handleHostClaim(sender identity.PeerID, r acl.HostClaim) {
	if s.lobby == nil {
		return
	}
	if s.auth.State() == authority.Stable {
		if s.auth.HostID() != r.PreviousHostID {
			return
		}
		s.auth.BeginElection(s.electionCandidates(r.PreviousHostID), s.now())
		s.met.ElectionsStarted.Inc()
	}
	if err := s.auth.ConfirmDelegation(sender, s.now()); err != nil {
		return
	}
	events, fail := s.lobby.DelegateHost(sender)
	if fail != nil {
		return
	}
	s.notifyAll(events)
}

func (s *Session) handleLobbySync(r acl.LobbySync) {
	if s.lobby != nil {
		return
	}
	s.lobby = lobby.Hydrate(r.State)
	s.auth = authority.New(r.State.HostID)
	if s.pendingJoinReady != nil {
		s.pendingJoinReady <- nil
		s.pendingJoinReady = nil
	}
}

func (s *Session) handleJoinRejected(r acl.JoinRejected) {
	if s.lobby != nil || s.pendingJoinReady == nil {
		return
	}
	s.pendingJoinReady <- konnekterr.Fail(r.Reason, "")
	s.pendingJoinReady = nil
}

// sendJoinRejected unicasts the reason a join was refused directly back
// to the joiner (spec.md §7 "report to joiner"): a rejected peer is not
// yet a participant, so a broadcast CommandFailed (never sent anyway,
// per spec.md §4.H) would not even reach it.
func (s *Session) sendJoinRejected(to identity.PeerID, reason konnekterr.Reason) {
	payload, err := acl.EncodeRequest(acl.KindJoinRejected, acl.JoinRejected{Reason: reason})
	if err != nil {
		s.log.Error("controller: encode JoinRejected failed", logger.Error(err))
		return
	}
	env := s.sign(payload)
	if err := s.tr.Unicast(context.Background(), to, env); err != nil {
		s.log.Warn("controller: unicast JoinRejected failed", logger.Error(err))
	}
}

func (s *Session) sendLobbySync(to identity.PeerID) {
	state := s.lobby.Export()
	payload, err := acl.EncodeRequest(acl.KindLobbySync, acl.LobbySync{State: state})
	if err != nil {
		s.log.Error("controller: encode LobbySync failed", logger.Error(err))
		return
	}
	env := s.sign(payload)
	if err := s.tr.Unicast(context.Background(), to, env); err != nil {
		s.log.Warn("controller: unicast LobbySync failed", logger.Error(err))
	}
}

func (s *Session) sendGapFillRequest(to identity.PeerID, missingSeq uint64) {
	payload, err := acl.EncodeRequest(acl.KindGapFillRequest, acl.GapFillRequest{MissingSeq: missingSeq})
	if err != nil {
		return
	}
	env := s.sign(payload)
	_ = s.tr.Unicast(context.Background(), to, env)
}

func (s *Session) resendFromLog(to identity.PeerID, seq uint64) {
	env, ok := s.sentLog[seq]
	if !ok {
		return
	}
	_ = s.tr.Unicast(context.Background(), to, env)
}

func (s *Session) electionCandidates(exclude identity.PeerID) []authority.Candidate {
	candidates := make([]authority.Candidate, 0, len(s.lobby.Participants))
	for id, p := range s.lobby.Participants {
		if id == exclude {
			continue
		}
		candidates = append(candidates, authority.Candidate{ID: id, JoinedAt: p.JoinedAt})
	}
	return candidates
}
