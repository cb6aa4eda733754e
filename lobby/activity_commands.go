// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import (
	"time"

	"github.com/google/uuid"

	"github.com/konnekt/session/activity"
	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/konnekterr"
)

// DefaultActivityTimeout is how long an InProgress activity may run
// before the host auto-cancels it (spec.md §4.G).
const DefaultActivityTimeout = 30 * time.Minute

// PlanActivity registers a new activity in the Planned state. Only the
// host may plan one, and only when no other activity is InProgress.
func (l *Lobby) PlanActivity(sender identity.PeerID, kind string, config []byte) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireHost(sender); fail != nil {
		return nil, fail
	}
	if l.hasInProgressActivity() {
		return nil, konnekterr.Fail(konnekterr.ReasonOnlyOneActivityInProgress, "")
	}
	if v, ok := activity.Lookup(kind); ok {
		if err := v.ValidateConfig(config); err != nil {
			return nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, err.Error())
		}
	}

	a := &Activity{
		ID:     uuid.NewString(),
		Kind:   kind,
		Config: config,
		Status: Planned,
	}
	l.Activities = append(l.Activities, a)

	expected := make([]identity.PeerID, 0, len(l.Participants))
	for id, p := range l.Participants {
		if p.Mode == Active {
			expected = append(expected, id)
		}
	}
	return []DomainEvent{ActivityPlannedEvent{ActivityID: a.ID, ActivityKind: kind, Config: config, ExpectedSubmitters: expected}}, nil
}

// StartActivity transitions a Planned activity to InProgress and
// freezes its ExpectedSubmitters snapshot (spec.md invariant 8).
func (l *Lobby) StartActivity(sender identity.PeerID, activityID string) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireHost(sender); fail != nil {
		return nil, fail
	}
	a := l.findActivity(activityID)
	if a == nil {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	if a.Status != Planned {
		return nil, konnekterr.Fail(konnekterr.ReasonActivityAlreadyCompleted, "")
	}
	if l.hasInProgressActivity() {
		return nil, konnekterr.Fail(konnekterr.ReasonOnlyOneActivityInProgress, "")
	}

	a.ExpectedSubmitters = make(map[identity.PeerID]struct{})
	for id, p := range l.Participants {
		if p.Mode == Active {
			a.ExpectedSubmitters[id] = struct{}{}
		}
	}
	now := l.clock()
	a.Status = InProgress
	a.StartedAt = &now
	return []DomainEvent{ActivityStartedEvent{ActivityID: activityID}}, nil
}

// SubmitResult records one participant's result against the running
// activity. Spectators are rejected outright; a late submitter not in
// ExpectedSubmitters is accepted but does not trigger completion on
// its own (spec.md §4.G edge case).
func (l *Lobby) SubmitResult(sender identity.PeerID, activityID string, score int, elapsedMs int64) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.Participants[sender]
	if !ok {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	if p.Mode == Spectating {
		return nil, konnekterr.Fail(konnekterr.ReasonSpectatorsCannotSubmit, "")
	}
	a := l.findActivity(activityID)
	if a == nil {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	if a.Status != InProgress {
		return nil, konnekterr.Fail(konnekterr.ReasonActivityAlreadyCompleted, "")
	}
	if v, ok := activity.Lookup(a.Kind); ok {
		if err := v.ValidateScore(a.Config, score); err != nil {
			return nil, konnekterr.Fail(konnekterr.ReasonNotAuthorized, err.Error())
		}
	}
	if a.hasResultFrom(sender) {
		return nil, konnekterr.Fail(konnekterr.ReasonDuplicateSequence, "result already submitted")
	}

	result := Result{ParticipantID: sender, Score: score, ElapsedMs: elapsedMs, SubmittedAt: l.clock()}
	a.Results = append(a.Results, result)
	events := []DomainEvent{ResultRecordedEvent{ActivityID: activityID, Result: result}}

	if l.allExpectedSubmitted(a) {
		events = append(events, l.completeActivityLocked(a, "")...)
	}
	return events, nil
}

// CancelActivity aborts a Planned or InProgress activity before it
// completes naturally.
func (l *Lobby) CancelActivity(sender identity.PeerID, activityID string) ([]DomainEvent, *konnekterr.CommandFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fail := l.requireHost(sender); fail != nil {
		return nil, fail
	}
	a := l.findActivity(activityID)
	if a == nil {
		return nil, konnekterr.Fail(konnekterr.ReasonNotFound, "")
	}
	if a.Status == Completed || a.Status == Cancelled {
		return nil, konnekterr.Fail(konnekterr.ReasonActivityAlreadyCompleted, "")
	}
	a.Status = Cancelled
	return []DomainEvent{ActivityCancelledEvent{ActivityID: activityID, Reason: "cancelled by host"}}, nil
}

// CheckActivityTimeouts is invoked by the controller's ticker; any
// activity InProgress for longer than DefaultActivityTimeout is
// auto-cancelled.
func (l *Lobby) CheckActivityTimeouts(now time.Time) []DomainEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	var events []DomainEvent
	for _, a := range l.Activities {
		if a.Status == InProgress && a.StartedAt != nil && now.Sub(*a.StartedAt) >= DefaultActivityTimeout {
			a.Status = Cancelled
			events = append(events, ActivityCancelledEvent{ActivityID: a.ID, Reason: "timed out"})
		}
	}
	return events
}

func (l *Lobby) findActivity(id string) *Activity {
	for _, a := range l.Activities {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (l *Lobby) allExpectedSubmitted(a *Activity) bool {
	if len(a.ExpectedSubmitters) == 0 {
		return false
	}
	for id := range a.ExpectedSubmitters {
		if !a.hasResultFrom(id) {
			return false
		}
	}
	return true
}

// completeActivityLocked transitions a to Completed and computes its
// leaderboard. Caller must hold l.mu.
func (l *Lobby) completeActivityLocked(a *Activity, reason string) []DomainEvent {
	now := l.clock()
	a.Status = Completed
	a.CompletedAt = &now

	toRank := make([]activity.Result, len(a.Results))
	for i, r := range a.Results {
		toRank[i] = activity.Result{ParticipantID: r.ParticipantID.String(), Score: r.Score, ElapsedMs: r.ElapsedMs}
	}
	ranked := activity.Leaderboard(toRank)
	leaderboard := make([]Result, len(ranked))
	for i, r := range ranked {
		for _, orig := range a.Results {
			if orig.ParticipantID.String() == r.ParticipantID {
				leaderboard[i] = orig
				break
			}
		}
	}

	return []DomainEvent{
		ActivityCompletedEvent{ActivityID: a.ID, Leaderboard: leaderboard},
		LeaderboardUpdatedEvent{ActivityID: a.ID, Leaderboard: leaderboard},
	}
}
