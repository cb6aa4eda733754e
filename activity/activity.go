// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package activity holds the stateless parts of activity-lifecycle
// handling (spec.md §4.G): the pluggable activity-kind registry and
// leaderboard ranking. The stateful parts — Planned/InProgress/
// Completed/Cancelled transitions — live in package lobby because they
// mutate the Lobby aggregate directly and share its invariants.
package activity

import "sort"

// Result is the minimal shape package lobby's Result needs to expose
// for ranking; it is duplicated rather than imported to keep this
// package free of a dependency on package lobby (which depends on
// this one for ranking and kind validation).
type Result struct {
	ParticipantID string
	Score         int
	ElapsedMs     int64
}

// Leaderboard ranks results by score descending, elapsed time
// ascending as the tiebreaker, per spec.md §4.G. The input is not
// mutated.
func Leaderboard(results []Result) []Result {
	ranked := make([]Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ElapsedMs < ranked[j].ElapsedMs
	})
	return ranked
}

// Validator checks a proposed activity config before it is planned and
// validates a submitted result's score against the same config,
// letting a host application register its own activity kinds (quiz,
// race, poll, ...) without this module knowing about them.
type Validator interface {
	ValidateConfig(config []byte) error
	ValidateScore(config []byte, score int) error
}

var registry = map[string]Validator{}

// Register adds (or replaces) the Validator for a named activity kind.
// Call during process init, before any lobby plans an activity of that
// kind.
func Register(kind string, v Validator) {
	registry[kind] = v
}

// Lookup returns the Validator registered for kind, if any.
func Lookup(kind string) (Validator, bool) {
	v, ok := registry[kind]
	return v, ok
}
