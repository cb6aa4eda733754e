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

// Package controller implements the Session Controller of spec.md
// §4.I: the single facade that wires identity, wire, transport,
// ordering, authority, lobby and acl into one cooperative,
// single-goroutine state machine per lobby membership.
package controller

import (
	"fmt"

	"github.com/konnekt/session/identity"
)

// Command is submitted by the local caller through Session.Submit. Each
// concrete type below corresponds to one row of spec.md §4.E/§4.G's
// command table; which ones a given Session may actually run (versus
// forward to the host as a pre-authority request, versus reject
// outright) depends on whether this peer currently holds host
// authority, decided in session.go's dispatch.
type Command interface {
	commandName() string
}

type LeaveCommand struct{}

func (LeaveCommand) commandName() string { return "Leave" }

// KickCommand removes Target; only the host may issue it.
type KickCommand struct {
	Target identity.PeerID
}

func (KickCommand) commandName() string { return "Kick" }

// ToggleModeCommand flips Target's participation mode. A zero Target
// means "myself"; only the host may target anyone else.
type ToggleModeCommand struct {
	Target identity.PeerID
}

func (ToggleModeCommand) commandName() string { return "ToggleMode" }

// ChangePasswordCommand sets (or, with an empty string, clears) the
// lobby's join password; only the host may issue it.
type ChangePasswordCommand struct {
	NewPassword string
}

func (ChangePasswordCommand) commandName() string { return "ChangePassword" }

// CloseCommand ends the lobby permanently; only the host may issue it.
type CloseCommand struct{}

func (CloseCommand) commandName() string { return "Close" }

// PlanActivityCommand registers a new Planned activity; only the host
// may issue it.
type PlanActivityCommand struct {
	Kind   string
	Config []byte
}

func (PlanActivityCommand) commandName() string { return "PlanActivity" }

// StartActivityCommand transitions a Planned activity to InProgress;
// only the host may issue it.
type StartActivityCommand struct {
	ActivityID string
}

func (StartActivityCommand) commandName() string { return "StartActivity" }

// SubmitResultCommand records the caller's own result against a
// running activity.
type SubmitResultCommand struct {
	ActivityID string
	Score      int
	ElapsedMs  int64
}

func (SubmitResultCommand) commandName() string { return "SubmitResult" }

// CancelActivityCommand aborts a Planned or InProgress activity; only
// the host may issue it.
type CancelActivityCommand struct {
	ActivityID string
}

func (CancelActivityCommand) commandName() string { return "CancelActivity" }

// DelegateHostCommand voluntarily hands host authority to NewHost; only
// the current host may issue it.
type DelegateHostCommand struct {
	NewHost identity.PeerID
}

func (DelegateHostCommand) commandName() string { return "DelegateHost" }

// HostReclaimCommand is issued by a peer that once held host status,
// asking the current host to revert the role (spec.md §4.F).
type HostReclaimCommand struct{}

func (HostReclaimCommand) commandName() string { return "HostReclaim" }

func commandLabel(cmd Command) string {
	if cmd == nil {
		return "nil"
	}
	return fmt.Sprintf("%s", cmd.commandName())
}
