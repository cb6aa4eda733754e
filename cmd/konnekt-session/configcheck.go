// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/konnekt/session/config"
	"github.com/spf13/cobra"
)

var configCheckPath string

var configCheckCmd = &cobra.Command{
	Use:   "config-check",
	Short: "Load and validate a konnekt-session YAML config file",
	Long: `config-check loads the spec.md §6 configuration surface from a YAML
file, fills in any omitted field with its documented default, and
reports the effective values.`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCheckCmd)
	configCheckCmd.Flags().StringVarP(&configCheckPath, "file", "f", "konnekt.yaml", "path to the config file")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configCheckPath)
	if err != nil {
		return err
	}
	fmt.Printf("signallingUrl:         %s\n", cfg.SignallingURL)
	fmt.Printf("maxGuests:             %d\n", cfg.MaxGuests)
	fmt.Printf("heartbeatIntervalMs:   %d\n", cfg.HeartbeatIntervalMs)
	fmt.Printf("livenessSuspectedMs:   %d\n", cfg.LivenessSuspectedMs)
	fmt.Printf("livenessConfirmedMs:   %d\n", cfg.LivenessConfirmedMs)
	fmt.Printf("staleMessageMaxAgeMs:  %d\n", cfg.StaleMessageMaxAgeMs)
	fmt.Printf("futureSkewToleranceMs: %d\n", cfg.FutureSkewToleranceMs)
	fmt.Printf("activityTimeoutMs:     %d\n", cfg.ActivityTimeoutMs)
	fmt.Printf("archivePolicyMs:       %d\n", cfg.ArchivePolicyMs)
	return nil
}
