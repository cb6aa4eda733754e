// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import "fmt"

// Apply replicates an already-authoritative event (one the caller has
// verified came from the current HostID) onto this copy of the
// aggregate. It never returns a CommandFailure: the host already ran
// every business-rule check in its command methods before emitting the event, so a
// replica trusts it and only needs to reach the same state.
func (l *Lobby) Apply(event DomainEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e := event.(type) {
	case GuestJoinedEvent:
		l.Participants[e.Participant.ID] = &e.Participant

	case GuestLeftEvent:
		delete(l.Participants, e.ParticipantID)
		l.removeFromExpectedSubmitters(e.ParticipantID)

	case GuestKickedEvent:
		delete(l.Participants, e.ParticipantID)
		l.removeFromExpectedSubmitters(e.ParticipantID)

	case ParticipationModeChangedEvent:
		if p, ok := l.Participants[e.ParticipantID]; ok {
			p.Mode = e.Mode
		}

	case PasswordChangedEvent:
		// The replica never learns the new password itself; only the
		// host validates join attempts, so nothing to mutate here.

	case LobbyClosedEvent:
		l.Status = StatusClosed

	case ActivityPlannedEvent:
		l.Activities = append(l.Activities, &Activity{
			ID:     e.ActivityID,
			Kind:   e.ActivityKind,
			Config: e.Config,
			Status: Planned,
		})

	case ActivityStartedEvent:
		if a := l.findActivity(e.ActivityID); a != nil {
			now := l.clock()
			a.Status = InProgress
			a.StartedAt = &now
		}

	case ResultRecordedEvent:
		if a := l.findActivity(e.ActivityID); a != nil && !a.hasResultFrom(e.Result.ParticipantID) {
			a.Results = append(a.Results, e.Result)
		}

	case ActivityCompletedEvent:
		if a := l.findActivity(e.ActivityID); a != nil {
			now := l.clock()
			a.Status = Completed
			a.CompletedAt = &now
		}

	case ActivityCancelledEvent:
		if a := l.findActivity(e.ActivityID); a != nil {
			a.Status = Cancelled
		}

	case LeaderboardUpdatedEvent:
		// Derived view only; nothing to apply beyond ActivityCompleted.

	case HostDelegatedEvent:
		if old, ok := l.Participants[e.OldHostID]; ok {
			old.Role = Guest
		}
		if newHost, ok := l.Participants[e.NewHostID]; ok {
			newHost.Role = Host
		}
		l.HostID = e.NewHostID

	default:
		return fmt.Errorf("lobby: no Apply case for event kind %q", event.Kind())
	}
	return nil
}
