// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "konnekt.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "signallingUrl: wss://signal.example.com/ws\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := Default()
	if cfg.MaxGuests != d.MaxGuests {
		t.Errorf("maxGuests = %d, want default %d", cfg.MaxGuests, d.MaxGuests)
	}
	if cfg.HeartbeatIntervalMs != d.HeartbeatIntervalMs {
		t.Errorf("heartbeatIntervalMs = %d, want default %d", cfg.HeartbeatIntervalMs, d.HeartbeatIntervalMs)
	}
	if cfg.SignallingURL != "wss://signal.example.com/ws" {
		t.Errorf("signallingUrl not preserved: %q", cfg.SignallingURL)
	}
}

func TestLoadRejectsMissingSignallingURL(t *testing.T) {
	path := writeConfig(t, "maxGuests: 4\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for missing signallingUrl")
	}
}

func TestLoadRejectsOutOfRangeMaxGuests(t *testing.T) {
	path := writeConfig(t, "signallingUrl: wss://x\nmaxGuests: 11\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for maxGuests > 10")
	}
}

func TestOrderingConfigTranslatesMilliseconds(t *testing.T) {
	cfg := Default()
	cfg.SignallingURL = "wss://x"
	oc := cfg.OrderingConfig()
	if oc.StaleMessageMaxAge.Milliseconds() != cfg.StaleMessageMaxAgeMs {
		t.Errorf("StaleMessageMaxAge = %v, want %dms", oc.StaleMessageMaxAge, cfg.StaleMessageMaxAgeMs)
	}
	if oc.FutureSkewTolerance.Milliseconds() != cfg.FutureSkewToleranceMs {
		t.Errorf("FutureSkewTolerance = %v, want %dms", oc.FutureSkewTolerance, cfg.FutureSkewToleranceMs)
	}
}

func TestLivenessConfigTranslatesMilliseconds(t *testing.T) {
	cfg := Default()
	cfg.SignallingURL = "wss://x"
	lc := cfg.LivenessConfig()
	if lc.Suspected.Milliseconds() != cfg.LivenessSuspectedMs {
		t.Errorf("Suspected = %v, want %dms", lc.Suspected, cfg.LivenessSuspectedMs)
	}
	if lc.Confirmed.Milliseconds() != cfg.LivenessConfirmedMs {
		t.Errorf("Confirmed = %v, want %dms", lc.Confirmed, cfg.LivenessConfirmedMs)
	}
}
