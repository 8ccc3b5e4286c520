package node

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/internal/chain"
	"github.com/klingnet-core/klingnet-core/internal/mempool"
	"github.com/klingnet-core/klingnet-core/internal/wallet"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// This file implements spec §6's external interface as methods on *Node —
// the one place both internal/rpc and cmd/klingnet-cli (via RPC) eventually
// call into. Per SPEC_FULL.md §4.H, the RPC shell has zero independent
// validation logic; every handler here is the full implementation.

// --- Read operations ---

// GetChain returns a snapshot of the full block vector.
func (n *Node) GetChain() []*block.Block { return n.chain.Snapshot() }

// GetBlockByHash looks up a block by hash.
func (n *Node) GetBlockByHash(h types.Hash) (*block.Block, bool) { return n.chain.BlockByHash(h) }

// GetBlockByIndex looks up a block by index.
func (n *Node) GetBlockByIndex(i uint64) (*block.Block, bool) { return n.chain.BlockByIndex(i) }

// GetTipIndex returns the current chain height (the tip block's index).
func (n *Node) GetTipIndex() uint64 { return n.chain.Height() }

// GetDifficulty returns the difficulty the next block must satisfy.
func (n *Node) GetDifficulty() uint64 { return n.chain.Difficulty() }

// IsChainValid revalidates the full local chain.
func (n *Node) IsChainValid() error { return n.chain.IsChainValid() }

// CalculateBalance returns addr's current balance, consulting the
// tip-versioned cache before folding the chain (spec §4.E/§8's cache
// consistency law).
func (n *Node) CalculateBalance(addr types.Address) uint64 {
	tip := n.chain.Height()
	if v, ok := n.cache.Get(addr, tip); ok {
		return v
	}
	v := n.chain.CalculateBalance(addr)
	n.cache.Set(addr, v, tip)
	return v
}

// GetTransactionsForAddress returns every confirmed transaction where addr
// is the sender or recipient.
func (n *Node) GetTransactionsForAddress(addr types.Address) []*tx.Transaction {
	return n.chain.GetTransactionsForAddress(addr)
}

// GetMempoolSnapshot returns a copy of the pending transaction set.
func (n *Node) GetMempoolSnapshot() []*tx.Transaction { return n.pool.Snapshot() }

// MempoolLen returns the number of pending transactions.
func (n *Node) MempoolLen() int { return n.pool.Len() }

// GetPeers returns the addresses of every known P2P peer.
func (n *Node) GetPeers() []string {
	if n.p2pNode == nil {
		return nil
	}
	return n.p2pNode.KnownAddrs()
}

// --- Write operations ---

// SubmitTransaction runs spec §6's admission pipeline: structural check,
// signature verification, chain-balance-minus-pending-spend check, mempool
// double-spend check, insertion, and broadcast.
func (n *Node) SubmitTransaction(t *tx.Transaction) error {
	if err := n.admitTransaction(t); err != nil {
		return err
	}
	if n.p2pNode != nil {
		n.p2pNode.BroadcastTransaction(t)
	}
	return nil
}

// admitTransaction is SubmitTransaction without the broadcast, shared with
// the P2P gossip handler so a received transaction is validated identically
// without being re-flooded back onto the network.
func (n *Node) admitTransaction(t *tx.Transaction) error {
	if t == nil || !t.IsStructurallyValid() {
		return mempool.ErrInvalidTransaction
	}

	pub, ok := n.wallets.PublicKey(t.From)
	if !ok {
		return chain.ErrUnknownSender
	}
	if !t.Verify(pub) {
		return chain.ErrBadSignature
	}

	spent := n.pool.PendingSpent(t.From)
	balance := n.CalculateBalance(t.From)
	if balance < spent+t.Amount+t.Fee {
		return chain.ErrInsufficientFunds
	}

	if n.pool.HasDoubleSpend(t) {
		return ErrMempoolDoubleSpend
	}

	return n.pool.Add(t)
}

// MineBlock drains up to maxTxs pending transactions by fee, mines a block
// paying minerAddr the subsidy plus fees, appends and persists it,
// invalidates the balance cache, and broadcasts the result.
func (n *Node) MineBlock(minerAddr types.Address, maxTxs int) (*block.Block, error) {
	if maxTxs <= 0 || maxTxs > n.genesis.Protocol.Consensus.MaxTransactionsPerBlock {
		maxTxs = n.genesis.Protocol.Consensus.MaxTransactionsPerBlock
	}
	txs := n.pool.TakeTop(maxTxs - 1) // reserve a slot for the coinbase

	blk, err := n.chain.MineBlockWithReward(minerAddr, txs, n.wallets)
	if err != nil {
		// The selected transactions were valid when taken from the pool;
		// put them back rather than losing them on a transient mining failure.
		for _, t := range txs {
			n.pool.Add(t)
		}
		return nil, fmt.Errorf("mine block: %w", err)
	}

	n.cache.Invalidate()
	if n.p2pNode != nil {
		n.p2pNode.BroadcastBlock(blk)
	}
	return blk, nil
}

// CreatedWallet is the result of CreateWallet: the newly generated account
// and the BIP-39 mnemonic it was derived from, returned once so the caller
// can record it — the node itself only retains the address and public key.
type CreatedWallet struct {
	Address  types.Address
	Mnemonic string
}

// CreateWallet generates a new keypair, registers its address with the
// wallet view so it can send and receive once funded, and returns it to the
// caller. The node does not persist the private key; a caller wanting
// durable local storage uses internal/wallet.Keystore directly (see
// cmd/klingnet-cli), passing the same mnemonic back through RestoreWallet.
func (n *Node) CreateWallet() (*CreatedWallet, error) {
	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("generate mnemonic: %w", err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	account, err := wallet.DeriveAccount(seed)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	n.wallets.Register(account.Keypair.Address)
	return &CreatedWallet{Address: account.Keypair.Address, Mnemonic: mnemonic}, nil
}

// RestoreWallet re-derives an account from a previously issued mnemonic and
// registers it with the wallet view, for a node restarting without a
// keystore entry (e.g. a stateless RPC client reusing a remote node).
func (n *Node) RestoreWallet(mnemonic string) (*CreatedWallet, error) {
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	account, err := wallet.DeriveAccount(seed)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}
	n.wallets.Register(account.Keypair.Address)
	return &CreatedWallet{Address: account.Keypair.Address, Mnemonic: mnemonic}, nil
}

// ConnectPeer dials and performs the P2P handshake with addr.
func (n *Node) ConnectPeer(addr string) error {
	if n.p2pNode == nil {
		return ErrP2PDisabled
	}
	if addr == "" {
		return ErrNoSuchPeer
	}
	return n.p2pNode.Connect(addr)
}

// SyncAllPeers re-runs the handshake against every currently known peer,
// pulling their chain if any is ahead.
func (n *Node) SyncAllPeers() error {
	if n.p2pNode == nil {
		return ErrP2PDisabled
	}
	var firstErr error
	for _, addr := range n.p2pNode.KnownAddrs() {
		if err := n.p2pNode.Connect(addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
