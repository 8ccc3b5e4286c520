package chain

import "github.com/klingnet-core/klingnet-core/pkg/types"

// WalletView resolves a sender address to its Ed25519 public key. Admission
// only accepts non-coinbase, non-staking transactions from addresses
// registered with the view — the "sender wallet must exist" rule from spec
// §4.C. The orchestrator owns the concrete implementation (typically backed
// by a wallet manager); the chain engine only needs this narrow lookup.
type WalletView interface {
	PublicKey(addr types.Address) ([]byte, bool)
}
