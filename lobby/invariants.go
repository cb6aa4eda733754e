// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import "fmt"

// checkInvariants is a debug hook called from tests after mutations;
// no production code path calls it. It checks unique display names,
// exactly one Host named by HostID (only while the lobby is Open), the
// guest count against MaxGuests, at most one InProgress activity, and
// that no Spectating participant holds a recorded result, and returns
// the first violation. It does not check that results come from
// expected submitters, that an Archived lobby is read-only, or that
// modes stay fixed during a run.
func (l *Lobby) checkInvariants() error {
	hosts := 0
	seenNames := make(map[string]bool)
	inProgress := 0

	for _, p := range l.Participants {
		if p.Role == Host {
			hosts++
		}
		if seenNames[p.DisplayName] {
			return fmt.Errorf("invariant violated: duplicate display name %q", p.DisplayName)
		}
		seenNames[p.DisplayName] = true
	}

	// Invariant: exactly one Host while the lobby is Open.
	if l.Status == StatusOpen && hosts != 1 {
		return fmt.Errorf("invariant violated: expected exactly one Host, found %d", hosts)
	}

	// Invariant: HostID refers to a real participant with Role Host.
	if l.Status == StatusOpen {
		host, ok := l.Participants[l.HostID]
		if !ok || host.Role != Host {
			return fmt.Errorf("invariant violated: HostID %s does not name a Host participant", l.HostID)
		}
	}

	// Invariant: guest headcount never exceeds MaxGuests.
	guestCount := 0
	for _, p := range l.Participants {
		if p.Role == Guest {
			guestCount++
		}
	}
	if guestCount > l.MaxGuests {
		return fmt.Errorf("invariant violated: guest count %d exceeds MaxGuests %d", guestCount, l.MaxGuests)
	}

	// Invariant: at most one Activity InProgress at a time.
	for _, a := range l.Activities {
		if a.Status == InProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		return fmt.Errorf("invariant violated: %d activities InProgress simultaneously", inProgress)
	}

	// Invariant: spectators never appear in a Result set.
	for _, a := range l.Activities {
		for _, r := range a.Results {
			p, ok := l.Participants[r.ParticipantID]
			if ok && p.Mode == Spectating {
				return fmt.Errorf("invariant violated: spectator %s has a recorded result", r.ParticipantID)
			}
		}
	}

	return nil
}
