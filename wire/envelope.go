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

// Package wire implements the single signed envelope shape that ever
// crosses the network (spec.md §4.B): sender, sequence, timestamp and
// payload, signed end to end. Canonical serialization is deterministic
// so that signing, hashing and wire transmission all agree bit for bit.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/konnekt/session/identity"
)

// ErrMalformed is returned when a byte slice cannot be decoded into an
// Envelope, either because it is truncated or its JSON mirror doesn't
// parse (spec.md §7 "MalformedEnvelope").
var ErrMalformed = errors.New("wire: malformed envelope")

// Envelope is the only shape that crosses the network. Payload carries
// the canonical serialization of a P2P event or join request; its
// interpretation is the anti-corruption layer's job (package acl), not
// this package's.
type Envelope struct {
	SenderID    identity.PeerID
	Seq         uint64
	TimestampMs int64
	Payload     []byte
	Signature   [64]byte
}

// New builds and signs an Envelope. timestampMs would normally be
// time.Now().UnixMilli(), passed in explicitly so callers (and tests)
// control the clock.
func New(kp identity.Keypair, seq uint64, timestampMs int64, payload []byte) Envelope {
	e := Envelope{
		SenderID:    kp.PeerID(),
		Seq:         seq,
		TimestampMs: timestampMs,
		Payload:     payload,
	}
	e.Signature = kp.Sign(e.signedPreimage())
	return e
}

// signedPreimage is the canonical byte sequence signatures are
// computed over: senderId ‖ seq ‖ timestampMs ‖ payload, with seq and
// timestampMs in fixed-width big-endian form so the preimage never
// depends on formatting choices.
func (e Envelope) signedPreimage() []byte {
	buf := make([]byte, 32+8+8+len(e.Payload))
	copy(buf[0:32], e.SenderID[:])
	binary.BigEndian.PutUint64(buf[32:40], e.Seq)
	binary.BigEndian.PutUint64(buf[40:48], uint64(e.TimestampMs))
	copy(buf[48:], e.Payload)
	return buf
}

// Verify checks the envelope's signature against its sender.
func (e Envelope) Verify() error {
	return identity.Verify(e.SenderID, e.signedPreimage(), e.Signature)
}

// SkewMs returns localNow - TimestampMs, the quantity ordering.Guard
// compares against the staleness tolerance (spec.md §4.D rule 2).
func (e Envelope) SkewMs(localNow time.Time) int64 {
	return localNow.UnixMilli() - e.TimestampMs
}

// MarshalBinary encodes the envelope as a fixed, length-prefixed
// binary frame: this is the canonical, deterministic wire format
// (spec.md §4.B, §9 open question ii).
//
// Layout: senderId(32) | seq(8) | timestampMs(8) | payloadLen(4) |
// payload(N) | signature(64).
func (e Envelope) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 32+8+8+4+len(e.Payload)+64)
	off := 0
	copy(buf[off:off+32], e.SenderID[:])
	off += 32
	binary.BigEndian.PutUint64(buf[off:off+8], e.Seq)
	off += 8
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(e.TimestampMs))
	off += 8
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(e.Payload)))
	off += 4
	copy(buf[off:off+len(e.Payload)], e.Payload)
	off += len(e.Payload)
	copy(buf[off:off+64], e.Signature[:])
	return buf, nil
}

// UnmarshalBinary decodes the frame produced by MarshalBinary.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	if len(data) < 32+8+8+4+64 {
		return ErrMalformed
	}
	off := 0
	var senderID identity.PeerID
	copy(senderID[:], data[off:off+32])
	off += 32
	seq := binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	ts := int64(binary.BigEndian.Uint64(data[off : off+8]))
	off += 8
	payloadLen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if len(data) != off+payloadLen+64 {
		return ErrMalformed
	}
	payload := make([]byte, payloadLen)
	copy(payload, data[off:off+payloadLen])
	off += payloadLen
	var sig [64]byte
	copy(sig[:], data[off:off+64])

	e.SenderID = senderID
	e.Seq = seq
	e.TimestampMs = ts
	e.Payload = payload
	e.Signature = sig
	return nil
}

// jsonEnvelope mirrors Envelope for the JSON wire encoding accepted
// per spec.md §6 ("both encodings must be accepted but only one
// emitted per session"). Field order here is irrelevant to signing:
// the signature is always computed over the binary preimage, never
// over JSON bytes, so the two encodings can never disagree about what
// was signed.
type jsonEnvelope struct {
	SenderID    string `json:"senderId"`
	Seq         uint64 `json:"seq"`
	TimestampMs int64  `json:"timestampMs"`
	Payload     []byte `json:"payload"`
	Signature   []byte `json:"signature"`
}

// MarshalJSON encodes the envelope as the JSON wire mirror.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonEnvelope{
		SenderID:    e.SenderID.String(),
		Seq:         e.Seq,
		TimestampMs: e.TimestampMs,
		Payload:     e.Payload,
		Signature:   e.Signature[:],
	})
}

// UnmarshalJSON decodes the JSON wire mirror.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var j jsonEnvelope
	if err := json.Unmarshal(data, &j); err != nil {
		return ErrMalformed
	}
	senderID, err := identity.ParsePeerID(j.SenderID)
	if err != nil {
		return ErrMalformed
	}
	if len(j.Signature) != 64 {
		return ErrMalformed
	}
	var sig [64]byte
	copy(sig[:], j.Signature)

	e.SenderID = senderID
	e.Seq = j.Seq
	e.TimestampMs = j.TimestampMs
	e.Payload = j.Payload
	e.Signature = sig
	return nil
}
