// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"bufio"
	"fmt"
	"os"
	"syscall"

	"github.com/konnekt/session/identity"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var deriveName string

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a peer identity from a name and password",
	Long: `Derive deterministically computes the Ed25519 peer identity for a
(name, password) pair. The same pair always yields the same PeerId;
the password is read from stdin without echo and is never printed.`,
	Example: `  # Derive and print the PeerId for "Alice"
  konnekt-session derive --name Alice`,
	RunE: runDerive,
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	deriveCmd.Flags().StringVarP(&deriveName, "name", "n", "", "display name (required)")
	deriveCmd.MarkFlagRequired("name")
}

func runDerive(cmd *cobra.Command, args []string) error {
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	kp, err := identity.Derive(deriveName, password)
	if err != nil {
		return err
	}
	fmt.Printf("peerId: %s\n", kp.PeerID())
	return nil
}

// readPassword reads a line without echo when stdin is a terminal,
// falling back to a plain scanned line (for piped/test input).
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text(), scanner.Err()
}
