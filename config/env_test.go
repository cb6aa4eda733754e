// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import "testing"

func TestSubstituteEnvVarsUsesSetValue(t *testing.T) {
	t.Setenv("KONNEKT_TEST_URL", "wss://set.example.com")
	got := substituteEnvVars("signallingUrl: ${KONNEKT_TEST_URL}")
	if got != "signallingUrl: wss://set.example.com" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteEnvVarsFallsBackToDefault(t *testing.T) {
	got := substituteEnvVars("signallingUrl: ${KONNEKT_UNSET_VAR:wss://fallback}")
	if got != "signallingUrl: wss://fallback" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteEnvVarsFallsBackToEmpty(t *testing.T) {
	got := substituteEnvVars("signallingUrl: ${KONNEKT_UNSET_VAR}")
	if got != "signallingUrl: " {
		t.Errorf("got %q", got)
	}
}

func TestLoadSubstitutesEnvInFile(t *testing.T) {
	t.Setenv("KONNEKT_TEST_URL2", "wss://from-env.example.com")
	path := writeConfig(t, "signallingUrl: ${KONNEKT_TEST_URL2}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SignallingURL != "wss://from-env.example.com" {
		t.Errorf("signallingUrl = %q", cfg.SignallingURL)
	}
}
