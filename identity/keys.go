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

// Package identity implements deterministic peer identity: keypair
// derivation from a name/password pair, signing, verification, and a
// printable backup format. All operations here are pure (no I/O), so
// they can be exercised by property tests.
package identity

import (
	"crypto"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrInvalidSignature is returned by Verify when the signature does
// not match the message under the given public key.
var ErrInvalidSignature = errors.New("identity: invalid signature")

// derivationInfo namespaces the HKDF expansion so that this library's
// key derivation can never collide with an unrelated use of the same
// password by another HKDF consumer.
const derivationInfo = "konnekt-session-identity-v1"

// PeerID is the public verification key of a participant: an opaque
// 32-byte Ed25519 public key, displayed as a 64-character hex string.
type PeerID [32]byte

// String renders the PeerID as lowercase hex, per spec.md §6.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// Bytes returns a copy of the underlying 32 raw bytes.
func (p PeerID) Bytes() []byte {
	b := make([]byte, 32)
	copy(b, p[:])
	return b
}

// ParsePeerID decodes a 64-character hex string into a PeerID.
func ParsePeerID(s string) (PeerID, error) {
	var id PeerID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, errors.New("identity: malformed peer id")
	}
	if len(raw) != 32 {
		return id, errors.New("identity: peer id must be 32 bytes")
	}
	copy(id[:], raw)
	return id, nil
}

// MarshalText renders a PeerID as the 64-character hex string of
// spec.md §6. Implementing encoding.TextMarshaler (rather than just
// json.Marshaler) is what lets encoding/json use PeerID as a map key,
// which lobby.Lobby.Participants relies on.
func (p PeerID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the hex string produced by MarshalText.
func (p *PeerID) UnmarshalText(text []byte) error {
	id, err := ParsePeerID(string(text))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// Keypair is a derived Ed25519 identity. The private key is held only
// in memory for the lifetime of the scoped owner; see ScopedKey.
type Keypair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// PeerID returns the public verification key as a PeerID.
func (k Keypair) PeerID() PeerID {
	var id PeerID
	copy(id[:], k.public)
	return id
}

// PublicKey exposes the raw crypto.PublicKey, for interop with code
// that accepts the standard library's generic key interfaces.
func (k Keypair) PublicKey() crypto.PublicKey { return k.public }

// Sign signs bytes with the keypair's private key, producing a 64-byte
// Ed25519 signature.
func (k Keypair) Sign(message []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.private, message))
	return sig
}

// Derive deterministically derives a Keypair from a display name and a
// password. The same (name, password) pair always yields the same
// keypair; changing either input by even one byte yields an unrelated
// key (property tested in keys_test.go).
//
// The seed is HKDF-SHA256(secret=password, salt=name, info=derivationInfo),
// truncated to the 32 bytes Ed25519 requires as a seed.
func Derive(name, password string) (Keypair, error) {
	if name == "" {
		return Keypair{}, errors.New("identity: name must not be empty")
	}
	reader := hkdf.New(sha256.New, []byte(password), []byte(name), []byte(derivationInfo))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return Keypair{}, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return Keypair{public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// Verify checks a signature over message for the given public key.
func Verify(pub PeerID, message []byte, signature [64]byte) error {
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), message, signature[:]) {
		return ErrInvalidSignature
	}
	return nil
}
