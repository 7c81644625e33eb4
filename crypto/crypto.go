// Copyright (C) 2025 sage-x-project
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

package crypto

import (
	"encoding/hex"
)

// Sign produces a detached signature over message using private.
func Sign(message []byte, private KeyPair) ([]byte, error) {
	return private.Sign(message)
}

// Verify reports whether signature is a valid detached signature over
// message under public. It never panics or returns an error: malformed
// input simply fails verification.
func Verify(message, signature []byte, public KeyPair) bool {
	if public == nil {
		return false
	}
	return public.Verify(message, signature) == nil
}

// EncodeHex is the canonical hex encoding used for public keys, private
// keys, and signatures throughout the wire formats.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a hex string, wrapping the stdlib error in
// ErrInvalidHexInput so callers can present a stable error kind.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidHexInput
	}
	return b, nil
}
