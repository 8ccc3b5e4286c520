package rpc

import (
	"errors"
	"fmt"

	"github.com/klingnet-core/klingnet-core/internal/chain"
	"github.com/klingnet-core/klingnet-core/internal/mempool"
	nodepkg "github.com/klingnet-core/klingnet-core/internal/node"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetInfo(_ *Request) (interface{}, *Error) {
	tip := s.node.GetTipIndex()
	tipBlock, ok := s.node.GetBlockByIndex(tip)
	if !ok {
		return nil, &Error{Code: CodeInternalError, Message: "tip block missing"}
	}
	return &ChainInfoResult{
		Height:     tip,
		TipHash:    tipBlock.Hash.String(),
		Difficulty: s.node.GetDifficulty(),
		Length:     int(tip) + 1,
	}, nil
}

func (s *Server) handleChainGetBlockByHash(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	hash, decErr := types.HexToHash(params.Hash)
	if decErr != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid hash: %v", decErr)}
	}
	blk, ok := s.node.GetBlockByHash(hash)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: "block not found"}
	}
	return NewBlockResult(blk), nil
}

func (s *Server) handleChainGetBlockByIndex(req *Request) (interface{}, *Error) {
	var params IndexParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	blk, ok := s.node.GetBlockByIndex(params.Index)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no block at index %d", params.Index)}
	}
	return NewBlockResult(blk), nil
}

func (s *Server) handleChainIsValid(_ *Request) (interface{}, *Error) {
	if err := s.node.IsChainValid(); err != nil {
		return map[string]interface{}{"valid": false, "reason": err.Error()}, nil
	}
	return map[string]interface{}{"valid": true}, nil
}

// ── Account endpoints ───────────────────────────────────────────────────

func (s *Server) handleAccountGetBalance(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr := types.Address(params.Address)
	if err := addr.Validate(); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	return &BalanceResult{Address: params.Address, Balance: s.node.CalculateBalance(addr)}, nil
}

func (s *Server) handleAccountGetTransactions(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr := types.Address(params.Address)
	if err := addr.Validate(); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	return s.node.GetTransactionsForAddress(addr), nil
}

// ── Transaction endpoints ───────────────────────────────────────────────

func (s *Server) handleTxSubmit(req *Request) (interface{}, *Error) {
	var params TxSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Transaction == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "transaction is required"}
	}
	if err := s.node.SubmitTransaction(params.Transaction); err != nil {
		return nil, submitError(err)
	}
	return map[string]string{"id": params.Transaction.ID}, nil
}

// submitError maps internal/node and internal/chain sentinel errors to a
// JSON-RPC invalid-params response; anything unrecognized is an internal
// error, since it signals a bug rather than bad client input.
func submitError(err error) *Error {
	switch {
	case errors.Is(err, chain.ErrUnknownSender),
		errors.Is(err, chain.ErrBadSignature),
		errors.Is(err, chain.ErrInsufficientFunds),
		errors.Is(err, chain.ErrDoubleSpend),
		errors.Is(err, nodepkg.ErrMempoolDoubleSpend),
		errors.Is(err, mempool.ErrInvalidTransaction),
		errors.Is(err, mempool.ErrDuplicateTransaction),
		errors.Is(err, mempool.ErrPoolFull):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// ── Mempool endpoints ───────────────────────────────────────────────────

func (s *Server) handleMempoolGetInfo(_ *Request) (interface{}, *Error) {
	return &MempoolInfoResult{Size: s.node.MempoolLen()}, nil
}

func (s *Server) handleMempoolGetContent(_ *Request) (interface{}, *Error) {
	return s.node.GetMempoolSnapshot(), nil
}

// ── Mining endpoints ────────────────────────────────────────────────────

func (s *Server) handleMiningMineBlock(req *Request) (interface{}, *Error) {
	var params MineBlockParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr := types.Address(params.MinerAddress)
	if err := addr.Validate(); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid miner_address: %v", err)}
	}
	blk, err := s.node.MineBlock(addr, params.MaxTxs)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return NewBlockResult(blk), nil
}

// ── Wallet endpoints ────────────────────────────────────────────────────

func (s *Server) handleWalletCreate(_ *Request) (interface{}, *Error) {
	w, err := s.node.CreateWallet()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &WalletResult{Address: w.Address.String(), Mnemonic: w.Mnemonic}, nil
}

func (s *Server) handleWalletRestore(req *Request) (interface{}, *Error) {
	var params RestoreWalletParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Mnemonic == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "mnemonic is required"}
	}
	w, err := s.node.RestoreWallet(params.Mnemonic)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return &WalletResult{Address: w.Address.String()}, nil
}

// ── Net endpoints ───────────────────────────────────────────────────────

func (s *Server) handleNetGetPeers(_ *Request) (interface{}, *Error) {
	return &PeersResult{Peers: s.node.GetPeers()}, nil
}

func (s *Server) handleNetConnect(req *Request) (interface{}, *Error) {
	var params ConnectPeerParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.node.ConnectPeer(params.Addr); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return map[string]bool{"connected": true}, nil
}

func (s *Server) handleNetSyncAll(_ *Request) (interface{}, *Error) {
	if err := s.node.SyncAllPeers(); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return map[string]bool{"synced": true}, nil
}
