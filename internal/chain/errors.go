package chain

import "errors"

// Admission, chain-linkage, and fork errors per spec §7. Structural errors
// (empty block, oversized block, bad coinbase shape, bad Merkle root, bad
// PoW) live in pkg/block and are returned as-is.
var (
	ErrUnknownSender         = errors.New("sender wallet not known to wallet view")
	ErrBadSignature          = errors.New("transaction signature does not verify")
	ErrInsufficientFunds     = errors.New("sender balance insufficient for amount and fee")
	ErrDoubleSpend           = errors.New("transaction conflicts with an earlier transaction from the same sender")
	ErrBadPreviousHash       = errors.New("block previous_hash does not match the preceding block's hash")
	ErrBadIndex              = errors.New("block index does not follow the preceding block's index")
	ErrNonMonotonicTimestamp = errors.New("block timestamp precedes the preceding block's timestamp")
	ErrEmptyChain            = errors.New("chain has no blocks")
)
