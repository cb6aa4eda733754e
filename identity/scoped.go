// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package identity

import "sync"

// ScopedKey owns a Keypair's private material for the lifetime of a
// controller session. Zero is safe to call more than once and from
// concurrent goroutines; after Zero, Keypair panics-free callers get
// the zero Keypair back rather than stale key bytes (spec.md §5:
// "the private key is held in a scoped container zeroed on shutdown
// and never copied into a snapshot").
type ScopedKey struct {
	mu sync.Mutex
	kp Keypair
	ok bool
}

// NewScopedKey wraps a Keypair for scoped ownership.
func NewScopedKey(kp Keypair) *ScopedKey {
	return &ScopedKey{kp: kp, ok: true}
}

// Keypair returns the held keypair, or the zero value once Zero has
// been called.
func (s *ScopedKey) Keypair() (Keypair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok {
		return Keypair{}, false
	}
	return s.kp, true
}

// Zero wipes the private key bytes in place and marks the container
// empty.
func (s *ScopedKey) Zero() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok {
		return
	}
	for i := range s.kp.private {
		s.kp.private[i] = 0
	}
	for i := range s.kp.public {
		s.kp.public[i] = 0
	}
	s.kp = Keypair{}
	s.ok = false
}
