// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerReportsHealthy(t *testing.T) {
	c := New(0)
	c.Register("ok", func(ctx context.Context) error { return nil })

	result, err := c.Check(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, StatusHealthy, c.OverallStatus(context.Background()))
}

func TestCheckerReportsUnhealthy(t *testing.T) {
	c := New(0)
	c.Register("broken", func(ctx context.Context) error { return errors.New("down") })

	result, err := c.Check(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Equal(t, "down", result.Message)
	assert.Equal(t, StatusUnhealthy, c.OverallStatus(context.Background()))
}

func TestCheckUnknownNameErrors(t *testing.T) {
	c := New(0)
	_, err := c.Check(context.Background(), "missing")
	assert.Error(t, err)
}

func TestOverallStatusHealthyWithNoChecks(t *testing.T) {
	c := New(0)
	assert.Equal(t, StatusHealthy, c.OverallStatus(context.Background()))
}

func TestCheckAllRunsEveryRegisteredCheck(t *testing.T) {
	c := New(0)
	c.Register("a", func(ctx context.Context) error { return nil })
	c.Register("b", func(ctx context.Context) error { return errors.New("fail") })

	results := c.CheckAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, StatusHealthy, results["a"].Status)
	assert.Equal(t, StatusUnhealthy, results["b"].Status)
}
