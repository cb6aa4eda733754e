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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "konnekt-session",
	Short: "konnekt-session - identity, backup and config tools for a konnekt lobby",
	Long: `konnekt-session derives and manages the Ed25519 peer identities that
sign every authoritative message in a konnekt-session lobby, and validates
the YAML configuration surface a host application loads at startup.

This tool supports:
- Deterministic keypair derivation from a name/password pair (derive)
- Printable, checksummed backup export and import (backup, restore)
- Config loading and validation against the spec.md §6 surface (config-check)`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	// Commands are registered in their respective files:
	// - derive.go: deriveCmd
	// - backup.go: backupCmd, restoreCmd
	// - configcheck.go: configCheckCmd
}
