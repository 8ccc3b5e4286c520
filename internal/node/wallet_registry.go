package node

import (
	"sync"

	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// walletRegistry is the orchestrator's concrete internal/chain.WalletView: the
// set of addresses this node knows about, each mapped to the raw public key
// it encodes. Since an Address is itself a hex-encoded Ed25519 public key
// (pkg/types.Address), registering one is just recording that it is known —
// there is no separate key material to store beyond the address itself.
//
// The registry is independent of chain history: it only reflects wallets
// created locally (CreateWallet) or restored from the keystore at startup,
// never addresses seen in mined transactions. Per the design decision on
// spec's "resynchronize the wallet view" step after a fork resolution: since
// this registry never derives from chain content, ResolveConflict needs no
// wallet-view resync here — adopting a longer candidate chain cannot change
// which wallets this node has created or loaded.
type walletRegistry struct {
	mu   sync.RWMutex
	keys map[types.Address][]byte
}

func newWalletRegistry() *walletRegistry {
	return &walletRegistry{keys: make(map[types.Address][]byte)}
}

// Register adds addr to the set of known senders.
func (w *walletRegistry) Register(addr types.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keys[addr] = addr.Bytes()
}

// PublicKey implements internal/chain.WalletView.
func (w *walletRegistry) PublicKey(addr types.Address) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	pub, ok := w.keys[addr]
	return pub, ok
}

// Len reports how many wallets are registered.
func (w *walletRegistry) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.keys)
}
