// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package ordering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konnekt/session/identity"
	"github.com/konnekt/session/konnekterr"
	"github.com/konnekt/session/wire"
)

func mustKeypair(t *testing.T) identity.Keypair {
	t.Helper()
	kp, err := identity.Derive("Peer", "pw")
	require.NoError(t, err)
	return kp
}

func env(t *testing.T, kp identity.Keypair, seq uint64, at time.Time) wire.Envelope {
	t.Helper()
	return wire.New(kp, seq, at.UnixMilli(), nil)
}

func TestGuard_InOrderDelivery(t *testing.T) {
	kp := mustKeypair(t)
	g := New(DefaultConfig())
	now := time.Now()

	for seq := uint64(0); seq < 5; seq++ {
		res := g.Accept(env(t, kp, seq, now))
		require.Equal(t, Delivered, res.Outcome)
		require.Len(t, res.Delivered, 1)
		assert.Equal(t, seq, res.Delivered[0].Seq)
	}
}

func TestGuard_OutOfOrderBufferedThenDrainedInAscendingOrder(t *testing.T) {
	kp := mustKeypair(t)
	g := New(DefaultConfig())
	now := time.Now()

	require.Equal(t, Delivered, g.Accept(env(t, kp, 0, now)).Outcome)

	res := g.Accept(env(t, kp, 2, now))
	assert.Equal(t, Queued, res.Outcome)
	require.NotNil(t, res.RequestMissing)
	assert.Equal(t, uint64(1), *res.RequestMissing)

	res = g.Accept(env(t, kp, 1, now))
	require.Equal(t, Delivered, res.Outcome)
	require.Len(t, res.Delivered, 2)
	assert.Equal(t, uint64(1), res.Delivered[0].Seq)
	assert.Equal(t, uint64(2), res.Delivered[1].Seq)
}

func TestGuard_DuplicateDropped(t *testing.T) {
	kp := mustKeypair(t)
	g := New(DefaultConfig())
	now := time.Now()

	require.Equal(t, Delivered, g.Accept(env(t, kp, 0, now)).Outcome)
	res := g.Accept(env(t, kp, 0, now))
	require.Equal(t, Dropped, res.Outcome)
	assert.Equal(t, konnekterr.ReasonDuplicateSequence, res.Err.Reason)
}

func TestGuard_GapRequestThrottled(t *testing.T) {
	kp := mustKeypair(t)
	g := New(DefaultConfig())
	now := time.Now()
	g.SetClock(func() time.Time { return now })

	// seq 5 with expectedSeq 0 leaves a gap at seq 4.
	res := g.Accept(env(t, kp, 5, now))
	require.NotNil(t, res.RequestMissing)
	assert.Equal(t, uint64(4), *res.RequestMissing)

	// Another envelope arriving with the same gap (seq 4 still
	// missing) within 500ms must not re-request.
	g.SetClock(func() time.Time { return now.Add(100 * time.Millisecond) })
	res = g.Accept(env(t, kp, 5, now.Add(100*time.Millisecond)))
	assert.Nil(t, res.RequestMissing, "should not re-request the same gap within 500ms")

	// Past the throttle window, the same gap may be re-requested.
	g.SetClock(func() time.Time { return now.Add(600 * time.Millisecond) })
	res = g.Accept(env(t, kp, 5, now.Add(600*time.Millisecond)))
	require.NotNil(t, res.RequestMissing)
	assert.Equal(t, uint64(4), *res.RequestMissing)
}

func TestGuard_StaleBoundary(t *testing.T) {
	kp := mustKeypair(t)
	g := New(DefaultConfig())
	base := time.Now()

	// +5000ms accepted, +5001ms rejected (future skew tolerance).
	future := wire.New(kp, 0, base.Add(5000*time.Millisecond).UnixMilli(), nil)
	g.SetClock(func() time.Time { return base })
	res := g.Accept(future)
	assert.Equal(t, Delivered, res.Outcome)

	g2 := New(DefaultConfig())
	g2.SetClock(func() time.Time { return base })
	tooFuture := wire.New(kp, 0, base.Add(5001*time.Millisecond).UnixMilli(), nil)
	res = g2.Accept(tooFuture)
	assert.Equal(t, Dropped, res.Outcome)
	assert.Equal(t, konnekterr.ReasonStale, res.Err.Reason)

	// -60000ms accepted, -60001ms rejected (past tolerance).
	g3 := New(DefaultConfig())
	g3.SetClock(func() time.Time { return base })
	past := wire.New(kp, 0, base.Add(-60000*time.Millisecond).UnixMilli(), nil)
	res = g3.Accept(past)
	assert.Equal(t, Delivered, res.Outcome)

	g4 := New(DefaultConfig())
	g4.SetClock(func() time.Time { return base })
	tooPast := wire.New(kp, 0, base.Add(-60001*time.Millisecond).UnixMilli(), nil)
	res = g4.Accept(tooPast)
	assert.Equal(t, Dropped, res.Outcome)
	assert.Equal(t, konnekterr.ReasonStale, res.Err.Reason)
}

func TestGuard_ReplayDefenseScenario(t *testing.T) {
	// Seed suite scenario 6: a valid envelope recorded at T, a copy at
	// T+10s is a duplicate, a copy at T+65s is Stale.
	kp := mustKeypair(t)
	g := New(DefaultConfig())
	base := time.Now()
	g.SetClock(func() time.Time { return base })

	e := env(t, kp, 0, base)
	require.Equal(t, Delivered, g.Accept(e).Outcome)

	g.SetClock(func() time.Time { return base.Add(10 * time.Second) })
	res := g.Accept(e)
	assert.Equal(t, Dropped, res.Outcome)
	assert.Equal(t, konnekterr.ReasonDuplicateSequence, res.Err.Reason)

	g.SetClock(func() time.Time { return base.Add(65 * time.Second) })
	res = g.Accept(e)
	assert.Equal(t, Dropped, res.Outcome)
	assert.Equal(t, konnekterr.ReasonStale, res.Err.Reason)
}

func TestLivenessConfig_Derive(t *testing.T) {
	c := DefaultLivenessConfig()
	assert.Equal(t, Online, c.Derive(9*time.Second))
	assert.Equal(t, SuspectedDisconnect, c.Derive(10*time.Second))
	assert.Equal(t, SuspectedDisconnect, c.Derive(29*time.Second))
	assert.Equal(t, ConfirmedDisconnect, c.Derive(30*time.Second))
}
