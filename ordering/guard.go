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

// Package ordering implements the per-sender sequence guard of
// spec.md §4.D: staleness rejection (signature checks are left to the
// caller; see Accept), gap buffering with a
// bounded queue, and replay (duplicate) detection. It is the one place
// a remote envelope is allowed to be dropped silently.
package ordering

import (
	"sync"
	"time"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/konnekterr"
	"github.com/konnekt/session/wire"
)

// Defaults mirror spec.md §6's configuration surface.
const (
	DefaultStaleMessageMaxAge  = 60 * time.Second
	DefaultFutureSkewTolerance = 5 * time.Second
	DefaultGapRequestInterval  = 500 * time.Millisecond
	DefaultQueueBound          = 32
)

// Outcome classifies what the guard did with an incoming envelope.
type Outcome int

const (
	// Delivered means the envelope (and possibly queued successors)
	// should now be applied, in ascending seq order.
	Delivered Outcome = iota
	// Queued means the envelope arrived ahead of expectedSeq and was
	// buffered; a RequestMissing unicast may have been emitted.
	Queued
	// Dropped means the envelope was rejected; err explains why.
	Dropped
)

// Result is returned by Guard.Accept.
type Result struct {
	Outcome Outcome
	// Delivered holds, in ascending seq order, every envelope now
	// ready to apply: the incoming one plus any contiguous successors
	// drained from the queue.
	Delivered []wire.Envelope
	// RequestMissing is set when the guard wants a gap-fill request
	// sent to the sender for the given seq.
	RequestMissing *uint64
	Err            *konnekterr.CommandFailure
}

// Config bundles the tunables spec.md §6 exposes.
type Config struct {
	StaleMessageMaxAge  time.Duration
	FutureSkewTolerance time.Duration
	GapRequestInterval  time.Duration
	QueueBound          int
}

// DefaultConfig returns the spec.md §6 default values.
func DefaultConfig() Config {
	return Config{
		StaleMessageMaxAge:  DefaultStaleMessageMaxAge,
		FutureSkewTolerance: DefaultFutureSkewTolerance,
		GapRequestInterval:  DefaultGapRequestInterval,
		QueueBound:          DefaultQueueBound,
	}
}

// senderState tracks one remote sender's delivery progress.
type senderState struct {
	expectedSeq      uint64
	queue            map[uint64]wire.Envelope
	lastAppliedAt    time.Time
	lastHeartbeatAt  time.Time
	lastGapRequestAt map[uint64]time.Time
}

// Guard implements the replay/ordering state machine for every remote
// sender seen so far, keyed by PeerID.
type Guard struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	senders map[identity.PeerID]*senderState
}

// New creates a Guard with the given config. now defaults to
// time.Now but can be overridden for deterministic tests.
func New(cfg Config) *Guard {
	return &Guard{
		cfg:     cfg,
		now:     time.Now,
		senders: make(map[identity.PeerID]*senderState),
	}
}

// SetClock overrides the guard's notion of "now"; used by tests that
// need to simulate staleness and heartbeat timeouts without sleeping.
func (g *Guard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

func (g *Guard) stateFor(sender identity.PeerID) *senderState {
	s, ok := g.senders[sender]
	if !ok {
		s = &senderState{
			queue:            make(map[uint64]wire.Envelope),
			lastGapRequestAt: make(map[uint64]time.Time),
		}
		g.senders[sender] = s
	}
	return s
}

// Accept runs every rule of spec.md §4.D against one incoming
// envelope. The envelope's signature MUST already have been checked
// by the caller using env.Verify() — rule 1 ("reject SignatureInvalid")
// is the caller's responsibility because the guard has no way to
// distinguish "never verified" from "verified OK" on its own; see
// controller.Session.processEnvelope for the call site that enforces
// this ordering.
func (g *Guard) Accept(env wire.Envelope) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	skew := now.UnixMilli() - env.TimestampMs
	if skew > g.cfg.StaleMessageMaxAge.Milliseconds() ||
		skew < -g.cfg.FutureSkewTolerance.Milliseconds() {
		return Result{Outcome: Dropped, Err: konnekterr.Fail(konnekterr.ReasonStale, "")}
	}

	s := g.stateFor(env.SenderID)
	s.lastHeartbeatAt = now

	switch {
	case env.Seq < s.expectedSeq:
		return Result{Outcome: Dropped, Err: konnekterr.Fail(konnekterr.ReasonDuplicateSequence, "")}

	case env.Seq == s.expectedSeq:
		delivered := []wire.Envelope{env}
		s.expectedSeq++
		s.lastAppliedAt = now
		delete(s.lastGapRequestAt, env.Seq)
		for {
			next, ok := s.queue[s.expectedSeq]
			if !ok {
				break
			}
			delete(s.queue, s.expectedSeq)
			delivered = append(delivered, next)
			s.expectedSeq++
			s.lastAppliedAt = now
		}
		return Result{Outcome: Delivered, Delivered: delivered}

	default: // env.Seq > s.expectedSeq
		if len(s.queue) < g.cfg.QueueBound {
			s.queue[env.Seq] = env
		}
		gapSeq := env.Seq - 1
		last, asked := s.lastGapRequestAt[gapSeq]
		if !asked || now.Sub(last) >= g.cfg.GapRequestInterval {
			s.lastGapRequestAt[gapSeq] = now
			return Result{Outcome: Queued, RequestMissing: &gapSeq, Err: konnekterr.Fail(konnekterr.ReasonGapDetected, "")}
		}
		return Result{Outcome: Queued, Err: konnekterr.Fail(konnekterr.ReasonGapDetected, "")}
	}
}

// LastHeartbeatAt returns the last time any envelope (including a
// no-op heartbeat) was accepted from sender, for liveness derivation.
func (g *Guard) LastHeartbeatAt(sender identity.PeerID) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.senders[sender]
	if !ok {
		return time.Time{}, false
	}
	return s.lastHeartbeatAt, true
}

// Forget drops all tracked state for a sender, e.g. on LeaveLobby/Kick.
func (g *Guard) Forget(sender identity.PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.senders, sender)
}
