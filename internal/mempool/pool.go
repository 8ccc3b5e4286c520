// Package mempool holds pending, not-yet-mined transactions for the
// account-model chain engine in internal/chain.
package mempool

import (
	"sort"
	"sync"

	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Pool is a bounded, RWMutex-guarded multiset of pending transactions keyed
// by id. There is no UTXO set to index conflicts against, so double-spend
// detection runs directly over the pending set (HasDoubleSpend), and a
// per-sender running total (PendingSpent) lets an orchestrating caller
// check a sender isn't committing more than their chain balance covers
// before it has been mined.
type Pool struct {
	mu      sync.RWMutex
	txs     map[string]*tx.Transaction
	order   []string // insertion order, for deterministic Snapshot/TakeTop
	maxSize int
}

// New creates an empty pool capped at maxSize pending transactions. A
// non-positive maxSize falls back to 1000, matching config.Genesis's own
// default mempool cap, so a caller that forgets to wire the configured
// value still gets a bounded pool rather than an unbounded one.
func New(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Pool{
		txs:     make(map[string]*tx.Transaction),
		maxSize: maxSize,
	}
}

// Add inserts t into the pool. It rejects a structurally invalid
// transaction, a duplicate id, and insertion once the pool is already at
// capacity. Add does not check chain balance or run the double-spend
// heuristic itself — per spec, admission (chain balance minus pending
// spend, then HasDoubleSpend) is an orchestrating caller's responsibility,
// since only the caller holds both the chain and the mempool together.
func (p *Pool) Add(t *tx.Transaction) error {
	if t == nil || !t.IsStructurallyValid() {
		return ErrInvalidTransaction
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[t.ID]; exists {
		return ErrDuplicateTransaction
	}
	if len(p.txs) >= p.maxSize {
		return ErrPoolFull
	}

	p.txs[t.ID] = t
	p.order = append(p.order, t.ID)
	return nil
}

// Remove deletes the pending transaction with the given id, reporting
// whether it was present.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(id)
}

func (p *Pool) removeLocked(id string) bool {
	if _, ok := p.txs[id]; !ok {
		return false
	}
	delete(p.txs, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveConfirmed drops every transaction in confirmed from the pool, used
// once a block carrying them has been mined locally or accepted from a peer.
func (p *Pool) RemoveConfirmed(confirmed []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range confirmed {
		p.removeLocked(t.ID)
	}
}

// Has reports whether a transaction with the given id is pending.
func (p *Pool) Has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.txs[id]
	return ok
}

// Get returns the pending transaction with the given id, or nil if absent.
func (p *Pool) Get(id string) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.txs[id]
}

// PendingSpent sums amount+fee across every pending transaction sent by
// addr. An orchestrating caller subtracts this from the sender's
// chain-derived balance before admitting a new transaction from them:
// chain_balance(sender) - PendingSpent(sender) >= amount + fee.
func (p *Pool) PendingSpent(addr types.Address) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total uint64
	for _, id := range p.order {
		t := p.txs[id]
		if t.From == addr {
			total += t.Amount + t.Fee
		}
	}
	return total
}

// HasDoubleSpend reports whether t collides with some other pending
// transaction under the same-sender/different-id/same-amount/same-timestamp
// heuristic, the same one internal/chain runs against confirmed history. A
// transaction already present under its own id is not a collision with
// itself.
func (p *Pool) HasDoubleSpend(t *tx.Transaction) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, id := range p.order {
		other := p.txs[id]
		if other.ID == t.ID {
			continue
		}
		if tx.SameSenderDifferentIDSameAmountAndTime(t, other) {
			return true
		}
	}
	return false
}

// TakeTop removes and returns up to n pending transactions ordered by fee
// descending, for block assembly. Ordering by fee is applied here, at
// selection time — the pool itself is an unordered bounded multiset, not a
// priority queue.
func (p *Pool) TakeTop(n int) []*tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > len(p.order) {
		n = len(p.order)
	}

	sorted := make([]*tx.Transaction, 0, len(p.order))
	for _, id := range p.order {
		sorted = append(sorted, p.txs[id])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fee > sorted[j].Fee
	})

	top := sorted[:n]
	for _, t := range top {
		p.removeLocked(t.ID)
	}
	return top
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Snapshot returns a copy of the pending set in insertion order, safe for a
// caller to range over without holding the pool's lock.
func (p *Pool) Snapshot() []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*tx.Transaction, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.txs[id])
	}
	return out
}
