package rpc

import (
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// HashParam is used by endpoints that take a single block hash.
type HashParam struct {
	Hash string `json:"hash"`
}

// IndexParam is used by endpoints that take a block index.
type IndexParam struct {
	Index uint64 `json:"index"`
}

// AddressParam is used by endpoints that take a single address.
type AddressParam struct {
	Address string `json:"address"`
}

// TxSubmitParam is used by tx_submit.
type TxSubmitParam struct {
	Transaction *tx.Transaction `json:"transaction"`
}

// MineBlockParam is used by mining_mineBlock.
type MineBlockParam struct {
	MinerAddress string `json:"miner_address"`
	MaxTxs       int    `json:"max_txs,omitempty"`
}

// RestoreWalletParam is used by wallet_restore.
type RestoreWalletParam struct {
	Mnemonic string `json:"mnemonic"`
}

// ConnectPeerParam is used by net_connect.
type ConnectPeerParam struct {
	Addr string `json:"addr"`
}

// ── Result types ────────────────────────────────────────────────────────

// BlockResult wraps a block for RPC responses.
type BlockResult struct {
	Hash         string          `json:"hash"`
	Header       *block.Header   `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// NewBlockResult wraps b for a JSON-RPC response.
func NewBlockResult(b *block.Block) *BlockResult {
	return &BlockResult{
		Hash:         b.Hash.String(),
		Header:       b.Header,
		Transactions: b.Transactions,
	}
}

// ChainInfoResult is returned by chain_getInfo.
type ChainInfoResult struct {
	Height     uint64 `json:"height"`
	TipHash    string `json:"tip_hash"`
	Difficulty uint64 `json:"difficulty"`
	Length     int    `json:"length"`
}

// BalanceResult is returned by account_getBalance.
type BalanceResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// MempoolInfoResult is returned by mempool_getInfo.
type MempoolInfoResult struct {
	Size int `json:"size"`
}

// WalletResult is returned by wallet_create and wallet_restore.
type WalletResult struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

// PeersResult is returned by net_getPeers.
type PeersResult struct {
	Peers []string `json:"peers"`
}
