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

// Package acl is the anti-corruption layer of spec.md §4.H: the only
// place that knows how a lobby.DomainEvent (or a pre-authority
// request like JoinRequest) is serialized onto an envelope's Payload,
// and the only place that knows how to read one back. Nothing outside
// this package encodes or decodes wire bytes; Lobby, Authority and
// Activity never see JSON.
package acl

import (
	"encoding/json"
	"fmt"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/konnekterr"
	"github.com/konnekt/session/lobby"
)

// MessageKind names every shape that can appear on the wire: both
// lobby.EventKind values (host-authored, already authoritative) and
// the handful of pre-authority requests any peer may send.
type MessageKind string

const (
	KindJoinRequest         MessageKind = "JoinRequest"
	KindLeaveRequest        MessageKind = "LeaveRequest"
	KindToggleModeRequest   MessageKind = "ToggleModeRequest"
	KindSubmitResultRequest MessageKind = "SubmitResultRequest"
	KindHostReclaimRequest  MessageKind = "HostReclaimRequest"
	KindGapFillRequest      MessageKind = "GapFillRequest"
	KindHeartbeat           MessageKind = "Heartbeat"
)

// JoinRequest is the one message a non-member peer may send before it
// has been admitted; the host alone turns it into a GuestJoinedEvent.
type JoinRequest struct {
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// LeaveRequest is sent by a guest to the host to voluntarily leave the
// lobby (spec.md §4.E LeaveLobby); the host alone turns it into a
// GuestLeftEvent, since only the host's copy of the aggregate mutates
// directly.
type LeaveRequest struct{}

// ToggleModeRequest is sent by a participant to the host asking to
// flip its own participation mode (spec.md §4.E ToggleParticipationMode).
type ToggleModeRequest struct{}

// SubmitResultRequest is sent by an Active participant to the host
// with its activity submission (spec.md §4.G SubmitResult).
type SubmitResultRequest struct {
	ActivityID string `json:"activityId"`
	Score      int    `json:"score"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// HostReclaimRequest is sent by a peer that once held host status,
// asking the current host to revert the role (spec.md §4.F reclaim).
// Fingerprint is the requester's own PeerID hex, checked against the
// lobby's stored hostKeyFingerprint by the receiving host.
type HostReclaimRequest struct {
	Fingerprint string `json:"fingerprint"`
	DisplayName string `json:"displayName"`
}

// GapFillRequest asks the named sender to re-broadcast the envelope at
// MissingSeq, emitted by ordering.Guard's RequestMissing.
type GapFillRequest struct {
	MissingSeq uint64 `json:"missingSeq"`
}

// Heartbeat carries no data; its mere arrival refreshes the sender's
// liveness state in package ordering.
type Heartbeat struct{}

// HostClaim is broadcast by the peer a deterministic election elected
// (package authority), so every other peer can corroborate the claim
// against its own independently-computed winner before accepting it.
type HostClaim struct {
	PreviousHostID identity.PeerID `json:"previousHostId"`
	JoinedAt       int64           `json:"joinedAt"`
}

const KindHostClaim MessageKind = "HostClaim"

// LobbySync carries a full lobby.State, unicast by the host directly
// to a guest it just admitted so the guest can Hydrate its own
// replica (spec.md has no bootstrap mechanism of its own; see
// DESIGN.md).
type LobbySync struct {
	State lobby.State `json:"state"`
}

const KindLobbySync MessageKind = "LobbySync"

// JoinRejected is unicast by the host directly back to a rejected
// joiner, carrying the reason a bare CommandFailed (never broadcast,
// per spec.md §4.H) cannot: the joiner has no other channel to learn
// why it wasn't admitted, since it isn't a participant yet.
type JoinRejected struct {
	Reason konnekterr.Reason `json:"reason"`
}

const KindJoinRejected MessageKind = "JoinRejected"

// envelope is the on-wire shape of every Payload: a kind tag plus the
// kind-specific data, so Decode can dispatch without guessing.
type envelope struct {
	Kind MessageKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// eventKindToMessageKind and its inverse let Encode/Decode treat
// lobby.EventKind values as a subset of MessageKind without the two
// packages needing to share a type.
func eventKindToMessageKind(k lobby.EventKind) MessageKind { return MessageKind(k) }

// Encode serializes a domain event into the bytes that belong in an
// Envelope's Payload.
func Encode(event lobby.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("acl: encode %s: %w", event.Kind(), err)
	}
	return json.Marshal(envelope{Kind: eventKindToMessageKind(event.Kind()), Data: data})
}

// EncodeRequest serializes a pre-authority request (JoinRequest,
// GapFillRequest, Heartbeat) the same way Encode does for events.
func EncodeRequest(kind MessageKind, request any) ([]byte, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("acl: encode request %s: %w", kind, err)
	}
	return json.Marshal(envelope{Kind: kind, Data: data})
}

// Decode reads a Payload back into either a lobby.DomainEvent or one
// of the pre-authority request types, identified by kind. The caller
// switches on kind to know which return value is populated.
func Decode(payload []byte) (kind MessageKind, event lobby.DomainEvent, request any, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, nil, fmt.Errorf("acl: malformed envelope payload: %w", err)
	}

	switch env.Kind {
	case KindJoinRequest:
		var r JoinRequest
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed JoinRequest: %w", err)
		}
		return env.Kind, nil, r, nil

	case KindLeaveRequest:
		return env.Kind, nil, LeaveRequest{}, nil

	case KindToggleModeRequest:
		return env.Kind, nil, ToggleModeRequest{}, nil

	case KindSubmitResultRequest:
		var r SubmitResultRequest
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed SubmitResultRequest: %w", err)
		}
		return env.Kind, nil, r, nil

	case KindHostReclaimRequest:
		var r HostReclaimRequest
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed HostReclaimRequest: %w", err)
		}
		return env.Kind, nil, r, nil

	case KindHostClaim:
		var r HostClaim
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed HostClaim: %w", err)
		}
		return env.Kind, nil, r, nil

	case KindLobbySync:
		var r LobbySync
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed LobbySync: %w", err)
		}
		return env.Kind, nil, r, nil

	case KindGapFillRequest:
		var r GapFillRequest
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed GapFillRequest: %w", err)
		}
		return env.Kind, nil, r, nil

	case KindHeartbeat:
		return env.Kind, nil, Heartbeat{}, nil

	case KindJoinRejected:
		var r JoinRejected
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return "", nil, nil, fmt.Errorf("acl: malformed JoinRejected: %w", err)
		}
		return env.Kind, nil, r, nil

	default:
		ev, derr := decodeEvent(lobby.EventKind(env.Kind), env.Data)
		if derr != nil {
			return "", nil, nil, derr
		}
		return env.Kind, ev, nil, nil
	}
}

func decodeEvent(kind lobby.EventKind, data json.RawMessage) (lobby.DomainEvent, error) {
	var target lobby.DomainEvent
	switch kind {
	case lobby.EventLobbyCreated:
		var e lobby.LobbyCreatedEvent
		target = &e
	case lobby.EventGuestJoined:
		var e lobby.GuestJoinedEvent
		target = &e
	case lobby.EventGuestLeft:
		var e lobby.GuestLeftEvent
		target = &e
	case lobby.EventGuestKicked:
		var e lobby.GuestKickedEvent
		target = &e
	case lobby.EventParticipationModeChanged:
		var e lobby.ParticipationModeChangedEvent
		target = &e
	case lobby.EventPasswordChanged:
		var e lobby.PasswordChangedEvent
		target = &e
	case lobby.EventLobbyClosed:
		var e lobby.LobbyClosedEvent
		target = &e
	case lobby.EventActivityPlanned:
		var e lobby.ActivityPlannedEvent
		target = &e
	case lobby.EventActivityStarted:
		var e lobby.ActivityStartedEvent
		target = &e
	case lobby.EventResultRecorded:
		var e lobby.ResultRecordedEvent
		target = &e
	case lobby.EventActivityCompleted:
		var e lobby.ActivityCompletedEvent
		target = &e
	case lobby.EventActivityCancelled:
		var e lobby.ActivityCancelledEvent
		target = &e
	case lobby.EventLeaderboardUpdated:
		var e lobby.LeaderboardUpdatedEvent
		target = &e
	case lobby.EventHostDelegated:
		var e lobby.HostDelegatedEvent
		target = &e
	default:
		return nil, fmt.Errorf("acl: unknown event kind %q", kind)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("acl: malformed %s: %w", kind, err)
	}
	return derefEvent(target), nil
}

// derefEvent unwraps the pointer decodeEvent used so json.Unmarshal
// could populate it, returning the value type every constructor in
// package lobby actually produces and every Handle/Apply call expects.
func derefEvent(e lobby.DomainEvent) lobby.DomainEvent {
	switch v := e.(type) {
	case *lobby.LobbyCreatedEvent:
		return *v
	case *lobby.GuestJoinedEvent:
		return *v
	case *lobby.GuestLeftEvent:
		return *v
	case *lobby.GuestKickedEvent:
		return *v
	case *lobby.ParticipationModeChangedEvent:
		return *v
	case *lobby.PasswordChangedEvent:
		return *v
	case *lobby.LobbyClosedEvent:
		return *v
	case *lobby.ActivityPlannedEvent:
		return *v
	case *lobby.ActivityStartedEvent:
		return *v
	case *lobby.ResultRecordedEvent:
		return *v
	case *lobby.ActivityCompletedEvent:
		return *v
	case *lobby.ActivityCancelledEvent:
		return *v
	case *lobby.LeaderboardUpdatedEvent:
		return *v
	case *lobby.HostDelegatedEvent:
		return *v
	default:
		return e
	}
}
