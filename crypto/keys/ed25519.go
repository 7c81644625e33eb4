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

package keys

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"

	sagecrypto "github.com/rookdaemon/agora/crypto"
)

// ed25519KeyPair implements sagecrypto.KeyPair for Ed25519 agent identities.
type ed25519KeyPair struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// GenerateEd25519KeyPair generates a fresh Ed25519 agent identity.
func GenerateEd25519KeyPair() (sagecrypto.KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ed25519KeyPair{privateKey: privateKey, publicKey: publicKey}, nil
}

// ImportEd25519KeyPair reconstructs a KeyPair from hex-encoded public and
// private keys, as read back from a config document or the vault. Non-hex
// input is rejected with sagecrypto.ErrInvalidHexInput; beyond what ed25519
// itself requires (exact key lengths), no further validation is performed.
func ImportEd25519KeyPair(publicHex, privateHex string) (sagecrypto.KeyPair, error) {
	pub, err := sagecrypto.DecodeHex(publicHex)
	if err != nil {
		return nil, err
	}
	priv, err := sagecrypto.DecodeHex(privateHex)
	if err != nil {
		return nil, err
	}
	if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
		return nil, sagecrypto.ErrInvalidKeyLength
	}
	return &ed25519KeyPair{
		privateKey: ed25519.PrivateKey(priv),
		publicKey:  ed25519.PublicKey(pub),
	}, nil
}

// ImportEd25519PublicKey reconstructs a verify-only KeyPair from a
// hex-encoded public key. PrivateKey/Sign are unusable on the result;
// callers that only verify (e.g. a relay checking a claimed sender) use
// this path.
func ImportEd25519PublicKey(publicHex string) (sagecrypto.KeyPair, error) {
	pub, err := sagecrypto.DecodeHex(publicHex)
	if err != nil {
		return nil, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, sagecrypto.ErrInvalidKeyLength
	}
	return &ed25519KeyPair{publicKey: ed25519.PublicKey(pub)}, nil
}

func (kp *ed25519KeyPair) PublicKey() crypto.PublicKey   { return kp.publicKey }
func (kp *ed25519KeyPair) PrivateKey() crypto.PrivateKey { return kp.privateKey }
func (kp *ed25519KeyPair) Type() sagecrypto.KeyType      { return sagecrypto.KeyTypeEd25519 }

func (kp *ed25519KeyPair) Sign(message []byte) ([]byte, error) {
	if len(kp.privateKey) != ed25519.PrivateKeySize {
		return nil, sagecrypto.ErrInvalidKeyLength
	}
	return ed25519.Sign(kp.privateKey, message), nil
}

func (kp *ed25519KeyPair) Verify(message, signature []byte) error {
	if len(kp.publicKey) != ed25519.PublicKeySize {
		return sagecrypto.ErrInvalidKeyLength
	}
	if !ed25519.Verify(kp.publicKey, message, signature) {
		return sagecrypto.ErrInvalidSignature
	}
	return nil
}

// ID returns the hex-encoded public key: the agent's stable identifier.
func (kp *ed25519KeyPair) ID() string {
	return sagecrypto.EncodeHex(kp.publicKey)
}

// PublicHex and PrivateHex expose the raw hex encodings for persistence.
func (kp *ed25519KeyPair) PublicHex() string  { return sagecrypto.EncodeHex(kp.publicKey) }
func (kp *ed25519KeyPair) PrivateHex() string { return sagecrypto.EncodeHex(kp.privateKey) }
