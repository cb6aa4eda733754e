// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package controller

import (
	"context"
	"testing"
	"time"

	"github.com/konnekt/session/internal/health"
	"github.com/konnekt/session/transport/loopback"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckReportsHealthyWhileLoopRuns(t *testing.T) {
	bus := loopback.NewBus()
	kp := mustDerive(t, "HealthHost")
	s, err := NewHost(kp, "Host", "lobby", "", 10, bus.Join(kp.PeerID()), Options{})
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	checker := health.New(time.Second)
	checker.Register("controller", s.HealthCheck())

	result, err := checker.Check(context.Background(), "controller")
	require.NoError(t, err)
	require.Equal(t, health.StatusHealthy, result.Status)
}

func TestHealthCheckReportsUnhealthyAfterShutdown(t *testing.T) {
	bus := loopback.NewBus()
	kp := mustDerive(t, "HealthHost2")
	s, err := NewHost(kp, "Host", "lobby", "", 10, bus.Join(kp.PeerID()), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Shutdown(context.Background()))

	checker := health.New(50 * time.Millisecond)
	checker.Register("controller", s.HealthCheck())

	result, err := checker.Check(context.Background(), "controller")
	require.NoError(t, err)
	require.Equal(t, health.StatusUnhealthy, result.Status)
}
