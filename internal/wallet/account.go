package wallet

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
)

// Account is the single signing identity held by a wallet: its Ed25519
// keypair and the address derived from it. Unlike a BIP-44 HD wallet there
// is no derivation tree — one wallet holds exactly one account, deriving
// it directly from the BIP-39 seed.
type Account struct {
	Keypair *crypto.Keypair
}

// DeriveAccount derives the wallet's single account deterministically from
// a BIP-39 seed. Only the seed's first 32 bytes are used: Ed25519 keys are
// generated from a 32-byte seed (crypto.PrivateKeyFromSeed), while BIP-39
// produces a 512-bit (64-byte) seed meant for BIP-32's elliptic-curve child
// derivation, which does not apply to Ed25519 keys. There is deliberately
// no derivation path here — every wallet has exactly one account.
func DeriveAccount(seed []byte) (*Account, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes, got %d", len(seed))
	}
	priv, err := crypto.PrivateKeyFromSeed(seed[:32])
	if err != nil {
		return nil, fmt.Errorf("derive account key: %w", err)
	}
	return &Account{
		Keypair: &crypto.Keypair{
			Private: priv,
			Public:  priv.PublicKey(),
			Address: priv.Address(),
		},
	}, nil
}
