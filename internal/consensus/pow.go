// Package consensus implements proof-of-work block sealing, verification,
// and difficulty retargeting.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klingnet-core/klingnet-core/pkg/block"
)

// PoW errors.
var (
	ErrInsufficientWork = errors.New("hash does not meet difficulty target")
	ErrZeroDifficulty   = errors.New("difficulty must be > 0")
	ErrBadDifficulty    = errors.New("block difficulty does not match expected")
	ErrNilBlock         = errors.New("nil block or header")
)

// MinDifficulty and MaxDifficulty bound the retargeted difficulty.
const (
	MinDifficulty = 1
	MaxDifficulty = 20
)

// PoW implements proof-of-work consensus. Difficulty is a count of leading
// ASCII '0' characters a block's hex hash must have; it is stored in the
// block header and carried forward/retargeted by the chain engine. The
// engine itself holds no mutable state.
type PoW struct {
	InitialDifficulty uint64 // Starting difficulty.
	RetargetInterval  int    // Blocks between difficulty adjustments (0 = no adjustment).
	TargetBlockTime   int64  // Target seconds between blocks.

	// Threads controls the number of parallel mining goroutines. 0 or 1
	// means single-threaded. Each goroutine searches a strided partition
	// of the nonce space; the first to find a valid hash wins.
	Threads int
}

// NewPoW creates a new PoW engine.
func NewPoW(difficulty uint64, retargetInterval int, targetBlockTime int64) (*PoW, error) {
	if difficulty == 0 {
		return nil, ErrZeroDifficulty
	}
	return &PoW{
		InitialDifficulty: difficulty,
		RetargetInterval:  retargetInterval,
		TargetBlockTime:   targetBlockTime,
	}, nil
}

// ShouldRetarget reports whether difficulty should be recalculated for the
// next block, given the chain's current length chainLength (before that
// block is appended).
func (p *PoW) ShouldRetarget(chainLength int) bool {
	return p.RetargetInterval > 0 &&
		chainLength >= 2 &&
		chainLength%p.RetargetInterval == 0
}

// VerifyHeader checks that a sealed block's hash satisfies its own stated
// difficulty and matches its recomputed value.
func VerifyHeader(b *block.Block) error {
	if b == nil || b.Header == nil {
		return ErrNilBlock
	}
	if b.Header.Difficulty == 0 {
		return ErrZeroDifficulty
	}
	if !block.SatisfiesDifficulty(b.Hash, b.Header.Difficulty) {
		return ErrInsufficientWork
	}
	if b.RecomputeHash() != b.Hash {
		return block.ErrBadHash
	}
	return nil
}

// Seal mines blk by iterating its nonce until the header hash satisfies
// blk.Header.Difficulty, which the caller must already have set.
func (p *PoW) Seal(blk *block.Block) error {
	return p.SealWithCancel(context.Background(), blk)
}

// SealWithCancel mines blk with cooperative cancellation: the shutdown
// signal is checked between nonce batches, and dropping mid-search is
// always safe since no partial state escapes this function.
func (p *PoW) SealWithCancel(ctx context.Context, blk *block.Block) error {
	if blk == nil || blk.Header == nil {
		return ErrNilBlock
	}
	if blk.Header.Difficulty == 0 {
		return ErrZeroDifficulty
	}

	if p.Threads <= 1 {
		return p.sealSingle(ctx, blk)
	}
	return p.sealParallel(ctx, blk, p.Threads)
}

// sealSingle mines with a single goroutine.
func (p *PoW) sealSingle(ctx context.Context, blk *block.Block) error {
	txCount := len(blk.Transactions)
	difficulty := blk.Header.Difficulty

	for nonce := uint64(0); ; nonce++ {
		if nonce&0xFFFF == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		blk.Header.Nonce = nonce
		hash := blk.Header.Hash(txCount)
		if block.SatisfiesDifficulty(hash, difficulty) {
			blk.Hash = hash
			return nil
		}
		if nonce == ^uint64(0) {
			return fmt.Errorf("nonce space exhausted")
		}
	}
}

// sealParallel mines with multiple goroutines, each searching a strided
// partition of the nonce space (goroutine i starts at nonce=i, step=threads).
// Block fields are identical across workers except for Nonce; the first
// worker to find a valid hash wins and cancels the rest.
func (p *PoW) sealParallel(ctx context.Context, blk *block.Block, threads int) error {
	txCount := len(blk.Transactions)
	difficulty := blk.Header.Difficulty
	baseHeader := *blk.Header

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		nonce uint64
		hash  [32]byte
		err   error
	}
	found := make(chan result, 1)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		startNonce := uint64(i)
		stride := uint64(threads)
		go func() {
			defer wg.Done()
			h := baseHeader

			for nonce := startNonce; ; nonce += stride {
				if (nonce/stride)&0xFFFF == 0 && nonce > 0 {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}

				h.Nonce = nonce
				hash := h.Hash(txCount)
				if block.SatisfiesDifficulty(hash, difficulty) {
					select {
					case found <- result{nonce: nonce, hash: hash}:
					default:
					}
					cancel()
					return
				}

				if nonce > ^uint64(0)-stride {
					select {
					case found <- result{err: fmt.Errorf("nonce space exhausted")}:
					default:
					}
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	select {
	case r, ok := <-found:
		if !ok {
			return fmt.Errorf("nonce space exhausted")
		}
		if r.err != nil {
			return r.err
		}
		blk.Header.Nonce = r.nonce
		blk.Hash = r.hash
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retarget computes the new difficulty given the previous difficulty and
// the observed timestamp span over the last retarget interval, per §4.C:
// ratio = expected/span (span==0 treated as ratio 1.0); ratio<0.8
// increments, ratio>1.2 decrements, clamped to [MinDifficulty, MaxDifficulty].
func Retarget(currentDifficulty uint64, span, expected int64) uint64 {
	ratio := 1.0
	if span > 0 {
		ratio = float64(expected) / float64(span)
	}

	next := currentDifficulty
	switch {
	case ratio < 0.8:
		next++
	case ratio > 1.2:
		if next > 0 {
			next--
		}
	}

	if next < MinDifficulty {
		next = MinDifficulty
	}
	if next > MaxDifficulty {
		next = MaxDifficulty
	}
	return next
}
