// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package controller

import (
	"context"
	"fmt"
	"time"
)

// HealthCheck returns an internal/health.Check that reports the
// controller's single-owner mailbox loop is still alive and
// responsive: it round-trips a Status() call through the same ops
// channel every command and event uses, so a wedged or deadlocked
// loop shows up as unhealthy rather than as a silent hang.
//
// This is the "a non-browser deployment should adopt the same model"
// liveness surface spec.md §5 calls for, for deployments embedding a
// Session outside a browser tab where nothing else observes it.
func (s *Session) HealthCheck() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-s.done:
			return fmt.Errorf("controller: session is shut down")
		default:
		}
		done := make(chan Snapshot, 1)
		go func() { done <- s.Status() }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("controller: mailbox loop did not respond within %s", deadlineOf(ctx))
		}
	}
}

func deadlineOf(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		return time.Until(dl).Round(time.Millisecond)
	}
	return 0
}
