package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Signer signs messages with a private key using Ed25519.
type Signer interface {
	// Sign produces a 64-byte signature over msg.
	Sign(msg []byte) ([]byte, error)
	// PublicKey returns the 32-byte public key.
	PublicKey() []byte
}

// Verifier verifies Ed25519 signatures.
type Verifier interface {
	// Verify checks a signature against a message and public key.
	Verify(msg, signature, publicKey []byte) bool
}

// PrivateKey wraps an Ed25519 private key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// Keypair is a generated Ed25519 signing/verifying pair.
type Keypair struct {
	Private *PrivateKey
	Public  []byte
	Address types.Address
}

// GenerateKeypair creates a new random Ed25519 keypair and derives its
// address as the hex encoding of the public key.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{
		Private: &PrivateKey{key: priv},
		Public:  []byte(pub),
		Address: types.AddressFromPublicKey(pub),
	}, nil
}

// PrivateKeyFromSeed derives a private key deterministically from a 32-byte
// seed (e.g. a BIP-39 mnemonic-derived seed).
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PrivateKeyFromBytes wraps a raw 64-byte Ed25519 private key (seed||pubkey).
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	cp := make([]byte, ed25519.PrivateKeySize)
	copy(cp, b)
	return &PrivateKey{key: cp}, nil
}

// Sign produces a 64-byte signature over msg.
func (pk *PrivateKey) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(pk.key, msg), nil
}

// PublicKey returns the 32-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return []byte(pk.key.Public().(ed25519.PublicKey))
}

// Address returns the hex-encoded public key as the wallet's address.
func (pk *PrivateKey) Address() types.Address {
	return types.AddressFromPublicKey(pk.PublicKey())
}

// Serialize returns the raw 64-byte private key (seed||pubkey).
func (pk *PrivateKey) Serialize() []byte {
	return []byte(pk.key)
}

// Seed returns the 32-byte seed the key was derived from.
func (pk *PrivateKey) Seed() []byte {
	return pk.key.Seed()
}

// Zero overwrites the private key material in place.
func (pk *PrivateKey) Zero() {
	for i := range pk.key {
		pk.key[i] = 0
	}
}

// VerifySignature checks a signature against a message and a raw 32-byte
// public key (a hex-encoded key is rejected). Returns false on any malformed
// input rather than an error, matching the single-CryptoError-kind contract at this boundary.
func VerifySignature(msg, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), msg, signature)
}

// Ed25519Verifier implements the Verifier interface.
type Ed25519Verifier struct{}

// Verify checks a signature against a message and public key.
func (v Ed25519Verifier) Verify(msg, signature, publicKey []byte) bool {
	return VerifySignature(msg, signature, publicKey)
}
