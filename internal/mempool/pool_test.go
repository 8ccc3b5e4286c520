package mempool

import (
	"testing"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

func transfer(t *testing.T, signer *crypto.Keypair, to types.Address, amount, fee uint64, id string, timestamp int64) *tx.Transaction {
	t.Helper()
	txn := &tx.Transaction{
		ID: id, From: signer.Address, To: to,
		Amount: amount, Fee: fee, Timestamp: timestamp,
	}
	if err := txn.Sign(signer.Private); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return txn
}

func TestPool_Add(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)

	txn := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)
	if err := p.Add(txn); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
}

func TestPool_Add_Duplicate(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)

	txn := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)
	if err := p.Add(txn); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Add(txn); err != ErrDuplicateTransaction {
		t.Errorf("Add duplicate = %v, want ErrDuplicateTransaction", err)
	}
}

func TestPool_Add_InvalidRejected(t *testing.T) {
	p := New(100)
	if err := p.Add(&tx.Transaction{ID: "bad"}); err != ErrInvalidTransaction {
		t.Errorf("Add(invalid) = %v, want ErrInvalidTransaction", err)
	}
}

func TestPool_Add_PoolFull(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(2)

	p.Add(transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000))
	p.Add(transfer(t, alice, bob.Address, 11, 1, "tx-2", 1700000001))

	err := p.Add(transfer(t, alice, bob.Address, 12, 1, "tx-3", 1700000002))
	if err != ErrPoolFull {
		t.Errorf("Add on full pool = %v, want ErrPoolFull", err)
	}
}

func TestPool_Remove(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)

	txn := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)
	p.Add(txn)

	if !p.Remove("tx-1") {
		t.Error("Remove should report true for a present id")
	}
	if p.Len() != 0 {
		t.Errorf("Len after Remove = %d, want 0", p.Len())
	}
	if p.Has("tx-1") {
		t.Error("Has should be false after Remove")
	}
	if p.Remove("tx-1") {
		t.Error("Remove should report false for an already-absent id")
	}
}

func TestPool_RemoveConfirmed(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)

	tx1 := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)
	tx2 := transfer(t, alice, bob.Address, 11, 1, "tx-2", 1700000001)
	p.Add(tx1)
	p.Add(tx2)

	p.RemoveConfirmed([]*tx.Transaction{tx1})
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
	if p.Has("tx-1") {
		t.Error("tx-1 should be removed")
	}
	if !p.Has("tx-2") {
		t.Error("tx-2 should still be pending")
	}
}

func TestPool_PendingSpent(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	charlie, _ := crypto.GenerateKeypair()
	p := New(100)

	p.Add(transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000))
	p.Add(transfer(t, alice, charlie.Address, 20, 2, "tx-2", 1700000001))
	p.Add(transfer(t, bob, charlie.Address, 5, 0, "tx-3", 1700000002))

	if got := p.PendingSpent(alice.Address); got != 33 {
		t.Errorf("PendingSpent(alice) = %d, want 33", got)
	}
	if got := p.PendingSpent(bob.Address); got != 5 {
		t.Errorf("PendingSpent(bob) = %d, want 5", got)
	}
	if got := p.PendingSpent(charlie.Address); got != 0 {
		t.Errorf("PendingSpent(charlie) = %d, want 0", got)
	}
}

func TestPool_HasDoubleSpend(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	charlie, _ := crypto.GenerateKeypair()
	p := New(100)

	original := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)
	p.Add(original)

	// Same sender, amount, and timestamp, but a different id and recipient —
	// the exact double-spend heuristic trigger.
	conflicting := transfer(t, alice, charlie.Address, 10, 1, "tx-2", 1700000000)
	if !p.HasDoubleSpend(conflicting) {
		t.Error("expected HasDoubleSpend to flag a same-sender/amount/timestamp collision")
	}

	// A transaction already in the pool under its own id is not a collision
	// with itself.
	if p.HasDoubleSpend(original) {
		t.Error("a transaction should not collide with its own pending entry")
	}

	// Different amount: no collision.
	distinct := transfer(t, alice, charlie.Address, 99, 1, "tx-3", 1700000000)
	if p.HasDoubleSpend(distinct) {
		t.Error("different amount should not be flagged as a double-spend")
	}
}

func TestPool_TakeTop(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)

	low := transfer(t, alice, bob.Address, 10, 1, "low", 1700000000)
	mid := transfer(t, alice, bob.Address, 10, 5, "mid", 1700000001)
	high := transfer(t, alice, bob.Address, 10, 9, "high", 1700000002)
	p.Add(low)
	p.Add(mid)
	p.Add(high)

	top := p.TakeTop(2)
	if len(top) != 2 {
		t.Fatalf("TakeTop(2) returned %d, want 2", len(top))
	}
	if top[0].ID != "high" || top[1].ID != "mid" {
		t.Errorf("TakeTop order = [%s %s], want [high mid]", top[0].ID, top[1].ID)
	}
	if p.Len() != 1 {
		t.Errorf("Len after TakeTop = %d, want 1 (taken entries removed)", p.Len())
	}
	if !p.Has("low") {
		t.Error("the untaken entry should still be pending")
	}
}

func TestPool_TakeTop_LimitExceedsPool(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)
	p.Add(transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000))

	top := p.TakeTop(50)
	if len(top) != 1 {
		t.Errorf("TakeTop(50) on a 1-entry pool returned %d, want 1", len(top))
	}
}

func TestPool_Snapshot(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	p := New(100)

	tx1 := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)
	tx2 := transfer(t, alice, bob.Address, 11, 1, "tx-2", 1700000001)
	p.Add(tx1)
	p.Add(tx2)

	snap := p.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot len = %d, want 2", len(snap))
	}
	if snap[0].ID != "tx-1" || snap[1].ID != "tx-2" {
		t.Errorf("Snapshot order = [%s %s], want insertion order", snap[0].ID, snap[1].ID)
	}

	// Mutating the pool afterwards must not affect an already-taken snapshot.
	p.Remove("tx-1")
	if len(snap) != 2 {
		t.Error("snapshot should be unaffected by later pool mutation")
	}
}

func TestNew_DefaultMaxSize(t *testing.T) {
	p := New(0)
	if p.maxSize != 1000 {
		t.Errorf("maxSize = %d, want 1000", p.maxSize)
	}
}

func TestPolicy_Check(t *testing.T) {
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	txn := transfer(t, alice, bob.Address, 10, 1, "tx-1", 1700000000)

	policy := DefaultPolicy()
	if err := policy.Check(txn); err != nil {
		t.Errorf("valid tx should pass policy: %v", err)
	}

	policy.MaxTxSize = 1
	if err := policy.Check(txn); err == nil {
		t.Error("oversized tx should fail policy")
	}
}
