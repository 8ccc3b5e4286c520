package node

import "errors"

// Orchestrator-level sentinel errors, styled after internal/chain and
// internal/mempool's per-package error sets (spec §7).
var (
	ErrMempoolDoubleSpend = errors.New("transaction conflicts with a pending transaction from the same sender")
	ErrNoSuchPeer         = errors.New("no peer address given")
	ErrP2PDisabled        = errors.New("p2p is disabled on this node")
)
