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

// Package crypto provides the keypair and signing primitives agents use to
// establish identity and to sign and verify envelopes and reputation records.
package crypto

import (
	"crypto"
	"errors"
)

// KeyType identifies the signing algorithm backing a KeyPair.
type KeyType string

const (
	// KeyTypeEd25519 is the only key type used for agent identity.
	KeyTypeEd25519 KeyType = "Ed25519"
	// KeyTypeSecp256k1 backs the optional chain-anchor operator key (package anchor);
	// it is never used for agent identity.
	KeyTypeSecp256k1 KeyType = "Secp256k1"
)

// KeyPair is a cryptographic identity capable of producing and checking
// detached signatures over arbitrary byte strings.
type KeyPair interface {
	PublicKey() crypto.PublicKey
	PrivateKey() crypto.PrivateKey
	Type() KeyType
	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) error
	// ID returns the hex-encoded public key, the agent's stable identifier.
	ID() string
}

var (
	ErrKeyNotFound      = errors.New("crypto: key not found")
	ErrKeyExists        = errors.New("crypto: key already exists")
	ErrInvalidKeyType   = errors.New("crypto: invalid key type")
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	ErrInvalidHexInput  = errors.New("crypto: input is not valid hex")
	ErrInvalidKeyLength = errors.New("crypto: key has wrong length for its type")
)
