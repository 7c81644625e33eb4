package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	sagecrypto "github.com/rookdaemon/agora/crypto"
)

// secp256k1KeyPair implements sagecrypto.KeyPair for the optional chain-anchor
// operator key (package anchor). It is never used for agent identity or for
// signing envelopes and reputation records; those are Ed25519-only.
type secp256k1KeyPair struct {
	privateKey *secp256k1.PrivateKey
	publicKey  *secp256k1.PublicKey
}

// GenerateSecp256k1KeyPair generates a new anchor operator key pair.
func GenerateSecp256k1KeyPair() (sagecrypto.KeyPair, error) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &secp256k1KeyPair{privateKey: privateKey, publicKey: privateKey.PubKey()}, nil
}

// ImportSecp256k1KeyPair reconstructs an anchor operator key pair from its
// hex-encoded 32-byte private key.
func ImportSecp256k1KeyPair(privateHex string) (sagecrypto.KeyPair, error) {
	raw, err := sagecrypto.DecodeHex(privateHex)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, sagecrypto.ErrInvalidKeyLength
	}
	privateKey := secp256k1.PrivKeyFromBytes(raw)
	return &secp256k1KeyPair{privateKey: privateKey, publicKey: privateKey.PubKey()}, nil
}

// ImportSecp256k1PublicKey reconstructs a verify-only anchor operator key
// from its hex-encoded compressed public key. PrivateKey/Sign are unusable
// on the result.
func ImportSecp256k1PublicKey(publicHex string) (sagecrypto.KeyPair, error) {
	raw, err := sagecrypto.DecodeHex(publicHex)
	if err != nil {
		return nil, err
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sagecrypto.ErrInvalidKeyLength, err)
	}
	return &secp256k1KeyPair{publicKey: pub}, nil
}

func (kp *secp256k1KeyPair) PublicKey() crypto.PublicKey {
	return kp.publicKey.ToECDSA()
}

func (kp *secp256k1KeyPair) PrivateKey() crypto.PrivateKey {
	return kp.privateKey.ToECDSA()
}

func (kp *secp256k1KeyPair) Type() sagecrypto.KeyType {
	return sagecrypto.KeyTypeSecp256k1
}

func (kp *secp256k1KeyPair) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, kp.privateKey.ToECDSA(), hash[:])
	if err != nil {
		return nil, err
	}
	return serializeSignature(r, s), nil
}

func (kp *secp256k1KeyPair) Verify(message, signature []byte) error {
	hash := sha256.Sum256(message)
	r, s, err := deserializeSignature(signature)
	if err != nil {
		return sagecrypto.ErrInvalidSignature
	}
	if !ecdsa.Verify(kp.publicKey.ToECDSA(), hash[:], r, s) {
		return sagecrypto.ErrInvalidSignature
	}
	return nil
}

// ID returns the hex-encoded compressed public key.
func (kp *secp256k1KeyPair) ID() string {
	return sagecrypto.EncodeHex(kp.publicKey.SerializeCompressed())
}

// PrivateHex exposes the raw private scalar for persistence in the anchor
// operator's config, distinct from the agent identity vault.
func (kp *secp256k1KeyPair) PrivateHex() string {
	return sagecrypto.EncodeHex(kp.privateKey.Serialize())
}

// serializeSignature packs an ECDSA signature into a fixed 64-byte R||S form.
func serializeSignature(r, s *big.Int) []byte {
	rBytes := r.Bytes()
	sBytes := s.Bytes()

	signature := make([]byte, 64)
	copy(signature[32-len(rBytes):32], rBytes)
	copy(signature[64-len(sBytes):64], sBytes)

	return signature
}

func deserializeSignature(data []byte) (*big.Int, *big.Int, error) {
	if len(data) != 64 {
		return nil, nil, sagecrypto.ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(data[:32])
	s := new(big.Int).SetBytes(data[32:])
	return r, s, nil
}
