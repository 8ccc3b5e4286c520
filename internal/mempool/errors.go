package mempool

import "errors"

// Mempool errors per spec §7, styled after internal/chain's sentinel errors.
var (
	ErrInvalidTransaction   = errors.New("transaction failed structural validation")
	ErrDuplicateTransaction = errors.New("transaction id already pending")
	ErrPoolFull             = errors.New("mempool is at capacity")
)
