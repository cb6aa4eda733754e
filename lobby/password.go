// Copyright (C) 2026 konnekt
//
// SPDX-License-Identifier: LGPL-3.0-or-later

package lobby

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordSaltLen = 16
	passwordKeyLen  = 32
	pbkdf2Iters     = 100_000
)

// passwordHash is a salted PBKDF2-SHA256 hash of a lobby password.
// Lobbies created with an empty password leave this nil.
type passwordHash struct {
	Salt []byte
	Hash []byte
}

func hashPassword(password string) (*passwordHash, error) {
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return &passwordHash{
		Salt: salt,
		Hash: pbkdf2.Key([]byte(password), salt, pbkdf2Iters, passwordKeyLen, sha256.New),
	}, nil
}

// matches reports whether password unlocks the lobby. A nil receiver
// means the lobby requires no password, so every attempt matches.
func (p *passwordHash) matches(password string) bool {
	if p == nil {
		return true
	}
	candidate := pbkdf2.Key([]byte(password), p.Salt, pbkdf2Iters, passwordKeyLen, sha256.New)
	return subtle.ConstantTimeCompare(candidate, p.Hash) == 1
}
