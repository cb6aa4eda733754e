// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.level.String())
	}
}

func TestStructuredLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)

	l.Info("lobby created", String("lobby_id", "abc123"), Int("max_guests", 10))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lobby created", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "abc123", entry["lobby_id"])
	assert.Equal(t, float64(10), entry["max_guests"])
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, WarnLevel)

	l.Debug("dropped")
	l.Info("also dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestStructuredLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, DebugLevel).WithFields(String("component", "authority"))

	l.Info("election started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "authority", entry["component"])
}

func TestStructuredLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)
	l.SetConsoleFormat(true)

	l.Warn("peer suspected disconnect", String("peer_id", "deadbeef"))

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "peer_id=deadbeef")
}

func TestErrorField(t *testing.T) {
	assert.Nil(t, Error(nil).Value)
	f := Error(errors.New("boom"))
	assert.Equal(t, "boom", f.Value)
}

func TestDefaultLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewLogger(&buf, DebugLevel))
	defer SetDefaultLogger(NewDefaultLogger())

	Info("hello", String("k", "v"))
	assert.Contains(t, buf.String(), "hello")
}
