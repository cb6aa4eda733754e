// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/konnekt/session/identity"
	"github.com/spf13/cobra"
)

var backupName string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export a printable backup string for a derived identity",
	RunE:  runBackup,
}

var restoreBackupString string

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a PeerId from a backup string",
	RunE:  runRestore,
}

func init() {
	rootCmd.AddCommand(backupCmd, restoreCmd)
	backupCmd.Flags().StringVarP(&backupName, "name", "n", "", "display name (required)")
	backupCmd.MarkFlagRequired("name")
	restoreCmd.Flags().StringVarP(&restoreBackupString, "backup", "b", "", "backup string produced by 'backup' (required)")
	restoreCmd.MarkFlagRequired("backup")
}

func runBackup(cmd *cobra.Command, args []string) error {
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	kp, err := identity.Derive(backupName, password)
	if err != nil {
		return err
	}
	fmt.Println(identity.ExportBackup(kp))
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	kp, err := identity.ImportBackup(restoreBackupString)
	if err != nil {
		return err
	}
	fmt.Printf("peerId: %s\n", kp.PeerID())
	return nil
}
