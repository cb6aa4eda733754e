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

// Package config loads the enumerated configuration surface of
// spec.md §6 from a YAML file, applying the spec's defaults for any
// field the file omits. It is the host application's entry point for
// producing a controller.Options.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/konnekt/session/ordering"
	"gopkg.in/yaml.v3"
)

// Config is the spec.md §6 configuration surface. YAML field names
// mirror the spec's camelCase keys rather than the Go convention of
// snake_case, so an operator's config file can be copied verbatim out
// of the specification.
type Config struct {
	SignallingURL           string `yaml:"signallingUrl"`
	MaxGuests               int    `yaml:"maxGuests"`
	HeartbeatIntervalMs     int64  `yaml:"heartbeatIntervalMs"`
	LivenessSuspectedMs     int64  `yaml:"livenessSuspectedMs"`
	LivenessConfirmedMs     int64  `yaml:"livenessConfirmedMs"`
	StaleMessageMaxAgeMs    int64  `yaml:"staleMessageMaxAgeMs"`
	FutureSkewToleranceMs   int64  `yaml:"futureSkewToleranceMs"`
	ActivityTimeoutMs       int64  `yaml:"activityTimeoutMs"`
	ArchivePolicyMs         int64  `yaml:"archivePolicyMs"`
}

// Default returns the spec.md §6 defaults. SignallingURL is left
// empty: it has no default and Validate rejects it.
func Default() Config {
	return Config{
		MaxGuests:             10,
		HeartbeatIntervalMs:   5000,
		LivenessSuspectedMs:   10000,
		LivenessConfirmedMs:   30000,
		StaleMessageMaxAgeMs:  60000,
		FutureSkewToleranceMs: 5000,
		ActivityTimeoutMs:     1800000,
		ArchivePolicyMs:       86400000,
	}
}

// Load reads a YAML config file from path, filling any zero-valued
// field with the spec.md §6 default, and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(raw))), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg = fillDefaults(cfg)
	return cfg, cfg.Validate()
}

func fillDefaults(cfg Config) Config {
	d := Default()
	if cfg.MaxGuests == 0 {
		cfg.MaxGuests = d.MaxGuests
	}
	if cfg.HeartbeatIntervalMs == 0 {
		cfg.HeartbeatIntervalMs = d.HeartbeatIntervalMs
	}
	if cfg.LivenessSuspectedMs == 0 {
		cfg.LivenessSuspectedMs = d.LivenessSuspectedMs
	}
	if cfg.LivenessConfirmedMs == 0 {
		cfg.LivenessConfirmedMs = d.LivenessConfirmedMs
	}
	if cfg.StaleMessageMaxAgeMs == 0 {
		cfg.StaleMessageMaxAgeMs = d.StaleMessageMaxAgeMs
	}
	if cfg.FutureSkewToleranceMs == 0 {
		cfg.FutureSkewToleranceMs = d.FutureSkewToleranceMs
	}
	if cfg.ActivityTimeoutMs == 0 {
		cfg.ActivityTimeoutMs = d.ActivityTimeoutMs
	}
	if cfg.ArchivePolicyMs == 0 {
		cfg.ArchivePolicyMs = d.ArchivePolicyMs
	}
	return cfg
}

// Validate rejects configurations spec.md §6 does not allow.
func (c Config) Validate() error {
	if c.SignallingURL == "" {
		return errors.New("config: signallingUrl is required")
	}
	if c.MaxGuests < 1 || c.MaxGuests > 10 {
		return fmt.Errorf("config: maxGuests must be 1..10, got %d", c.MaxGuests)
	}
	return nil
}

// OrderingConfig translates the millisecond fields of this surface
// into package ordering's Config, for wiring into a controller.
func (c Config) OrderingConfig() ordering.Config {
	d := ordering.DefaultConfig()
	return ordering.Config{
		StaleMessageMaxAge:  time.Duration(c.StaleMessageMaxAgeMs) * time.Millisecond,
		FutureSkewTolerance: time.Duration(c.FutureSkewToleranceMs) * time.Millisecond,
		GapRequestInterval:  d.GapRequestInterval,
		QueueBound:          d.QueueBound,
	}
}

// LivenessConfig translates this surface's liveness thresholds into
// package ordering's LivenessConfig.
func (c Config) LivenessConfig() ordering.LivenessConfig {
	return ordering.LivenessConfig{
		Suspected: time.Duration(c.LivenessSuspectedMs) * time.Millisecond,
		Confirmed: time.Duration(c.LivenessConfirmedMs) * time.Millisecond,
	}
}

// HeartbeatInterval returns the configured heartbeat period.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// ActivityTimeout returns the configured activity auto-cancel timeout.
func (c Config) ActivityTimeout() time.Duration {
	return time.Duration(c.ActivityTimeoutMs) * time.Millisecond
}

// ArchivePolicy returns how long after Closed a lobby is archived.
func (c Config) ArchivePolicy() time.Duration {
	return time.Duration(c.ArchivePolicyMs) * time.Millisecond
}
