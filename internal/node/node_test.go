package node

import (
	"testing"
	"time"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/chain"
	"github.com/klingnet-core/klingnet-core/internal/mempool"
	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Network: config.Testnet,
		DataDir: t.TempDir(),
		P2P:     config.P2PConfig{Enabled: false},
		Mining:  config.MiningConfig{Enabled: false},
	}
}

func mustNewNode(t *testing.T) *Node {
	t.Helper()
	n, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

// fundedSender registers a fresh keypair with the node's wallet view and
// mines it a coinbase reward, so tests can submit transactions from an
// address with a real chain balance.
func fundedSender(t *testing.T, n *Node) *crypto.Keypair {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	n.wallets.Register(kp.Address)
	if _, err := n.chain.MineBlockWithReward(kp.Address, nil, n.wallets); err != nil {
		t.Fatalf("fund sender: %v", err)
	}
	n.cache.Invalidate()
	return kp
}

func signedTransfer(t *testing.T, from *crypto.Keypair, to types.Address, amount, fee uint64) *tx.Transaction {
	t.Helper()
	txn := &tx.Transaction{
		ID:        from.Address.String() + "-" + to.String(),
		From:      from.Address,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Timestamp: time.Now().Unix(),
	}
	if err := txn.Sign(from.Private); err != nil {
		t.Fatalf("sign transaction: %v", err)
	}
	return txn
}

func TestNew_BuildsChainWithoutBackgroundWork(t *testing.T) {
	n := mustNewNode(t)
	if n.chain.Height() != 0 {
		t.Errorf("expected a fresh genesis-only chain, got height %d", n.chain.Height())
	}
	if n.pool.Len() != 0 {
		t.Errorf("expected an empty mempool, got %d", n.pool.Len())
	}
	if n.wallets.Len() != 0 {
		t.Errorf("expected no restored wallets, got %d", n.wallets.Len())
	}
	if n.p2pNode != nil {
		t.Error("expected no p2p node when P2P.Enabled is false")
	}
	if n.bgMiner != nil {
		t.Error("expected no background miner when Mining.Enabled is false")
	}
}

func TestNode_StartStop_NoBackgroundServices(t *testing.T) {
	n := mustNewNode(t)
	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestNode_CalculateBalance_CacheConsistencyLaw(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)

	first := n.CalculateBalance(kp.Address)
	if first == 0 {
		t.Fatal("expected a non-zero balance after funding")
	}
	if _, ok := n.cache.Get(kp.Address, n.chain.Height()); !ok {
		t.Error("expected CalculateBalance to populate the cache at the current tip")
	}

	// Mining a new block advances the tip, so the old cache entry must miss.
	if _, err := n.chain.MineBlockWithReward(kp.Address, nil, n.wallets); err != nil {
		t.Fatalf("mine block: %v", err)
	}
	n.cache.Invalidate()

	second := n.CalculateBalance(kp.Address)
	if second <= first {
		t.Errorf("expected balance to grow after a second reward, got %d then %d", first, second)
	}
}

func TestNode_SubmitTransaction_RejectsUnknownSender(t *testing.T) {
	n := mustNewNode(t)
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	txn := signedTransfer(t, kp, recipient.Address, 10, 1)

	if err := n.SubmitTransaction(txn); err != chain.ErrUnknownSender {
		t.Errorf("expected ErrUnknownSender, got %v", err)
	}
}

func TestNode_SubmitTransaction_RejectsBadSignature(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)
	other, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	txn := signedTransfer(t, other, kp.Address, 10, 1)
	txn.From = kp.Address // claims to be the registered sender, signed by a different key

	if err := n.SubmitTransaction(txn); err != chain.ErrBadSignature {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestNode_SubmitTransaction_RejectsInsufficientFunds(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	balance := n.CalculateBalance(kp.Address)
	txn := signedTransfer(t, kp, recipient.Address, balance+1, 0)

	if err := n.SubmitTransaction(txn); err != chain.ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestNode_SubmitTransaction_RejectsMempoolDoubleSpend(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	now := time.Now().Unix()
	first := &tx.Transaction{ID: "tx-1", From: kp.Address, To: recipient.Address, Amount: 5, Timestamp: now}
	if err := first.Sign(kp.Private); err != nil {
		t.Fatalf("sign: %v", err)
	}
	second := &tx.Transaction{ID: "tx-2", From: kp.Address, To: recipient.Address, Amount: 5, Timestamp: now}
	if err := second.Sign(kp.Private); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := n.SubmitTransaction(first); err != nil {
		t.Fatalf("first submission should succeed, got %v", err)
	}
	if err := n.SubmitTransaction(second); err != ErrMempoolDoubleSpend {
		t.Errorf("expected ErrMempoolDoubleSpend, got %v", err)
	}
}

func TestNode_SubmitTransaction_AdmitsValidTransaction(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	txn := signedTransfer(t, kp, recipient.Address, 10, 1)

	if err := n.SubmitTransaction(txn); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if !n.pool.Has(txn.ID) {
		t.Error("expected transaction to be pending in the mempool")
	}
	if n.MempoolLen() != 1 {
		t.Errorf("expected mempool length 1, got %d", n.MempoolLen())
	}
	snap := n.GetMempoolSnapshot()
	if len(snap) != 1 || snap[0].ID != txn.ID {
		t.Errorf("unexpected mempool snapshot: %+v", snap)
	}
}

func TestNode_MineBlock_DrainsMempoolAndUpdatesBalance(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	txn := signedTransfer(t, kp, recipient.Address, 10, 1)
	if err := n.SubmitTransaction(txn); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}

	heightBefore := n.GetTipIndex()
	blk, err := n.MineBlock(kp.Address, 0)
	if err != nil {
		t.Fatalf("MineBlock: %v", err)
	}
	if blk.Header.Index != heightBefore+1 {
		t.Errorf("expected block index %d, got %d", heightBefore+1, blk.Header.Index)
	}
	if n.pool.Has(txn.ID) {
		t.Error("expected mined transaction to be removed from the mempool")
	}
	if got := n.CalculateBalance(recipient.Address); got != 10 {
		t.Errorf("expected recipient balance 10, got %d", got)
	}
	if err := n.IsChainValid(); err != nil {
		t.Errorf("expected chain to remain valid after mining, got %v", err)
	}
}

func TestNode_MineBlock_RestoresPoolOnFailure(t *testing.T) {
	n := mustNewNode(t)
	kp := fundedSender(t, n)
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	txn := signedTransfer(t, kp, recipient.Address, 10, 1)
	if err := n.SubmitTransaction(txn); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}

	if _, err := n.MineBlock(types.Address(""), 0); err == nil {
		t.Fatal("expected mining with an invalid coinbase recipient to fail")
	}
	if !n.pool.Has(txn.ID) {
		t.Error("expected the drained transaction to be restored to the mempool on failure")
	}
}

func TestNode_CreateAndRestoreWallet(t *testing.T) {
	n := mustNewNode(t)
	created, err := n.CreateWallet()
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if _, ok := n.wallets.PublicKey(created.Address); !ok {
		t.Fatal("expected CreateWallet to register the new address with the wallet view")
	}

	restored, err := n.RestoreWallet(created.Mnemonic)
	if err != nil {
		t.Fatalf("RestoreWallet: %v", err)
	}
	if restored.Address != created.Address {
		t.Errorf("expected restoring the same mnemonic to recover address %s, got %s", created.Address, restored.Address)
	}
}

func TestNode_ConnectPeer_ErrorsWhenP2PDisabled(t *testing.T) {
	n := mustNewNode(t)
	if err := n.ConnectPeer("127.0.0.1:9999"); err != ErrP2PDisabled {
		t.Errorf("expected ErrP2PDisabled, got %v", err)
	}
	if err := n.SyncAllPeers(); err != ErrP2PDisabled {
		t.Errorf("expected ErrP2PDisabled, got %v", err)
	}
	if n.GetPeers() != nil {
		t.Errorf("expected no peers when p2p is disabled, got %v", n.GetPeers())
	}
}

func TestNode_ReadOperations(t *testing.T) {
	n := mustNewNode(t)
	chainSnap := n.GetChain()
	if len(chainSnap) != 1 {
		t.Fatalf("expected a single genesis block, got %d", len(chainSnap))
	}
	genesis := chainSnap[0]

	if byIndex, ok := n.GetBlockByIndex(0); !ok || byIndex.Hash != genesis.Hash {
		t.Error("GetBlockByIndex(0) should return genesis")
	}
	if byHash, ok := n.GetBlockByHash(genesis.Hash); !ok || byHash.Header.Index != 0 {
		t.Error("GetBlockByHash(genesis.Hash) should return genesis")
	}
	if n.GetDifficulty() == 0 {
		t.Error("expected a non-zero next difficulty")
	}
	if err := n.IsChainValid(); err != nil {
		t.Errorf("fresh chain should validate, got %v", err)
	}
}

func TestNode_admitTransaction_RejectsStructurallyInvalid(t *testing.T) {
	n := mustNewNode(t)
	if err := n.SubmitTransaction(nil); err != mempool.ErrInvalidTransaction {
		t.Errorf("expected ErrInvalidTransaction for a nil transaction, got %v", err)
	}
}

// --- P2P integration ---

func p2pTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testConfig(t)
	cfg.P2P = config.P2PConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1",
		Port:       0,
		MaxPeers:   8,
		NoDiscover: true,
	}
	return cfg
}

func TestNode_P2P_GossipedTransactionIsAdmitted(t *testing.T) {
	nodeA, err := New(p2pTestConfig(t))
	if err != nil {
		t.Fatalf("New(A): %v", err)
	}
	nodeB, err := New(p2pTestConfig(t))
	if err != nil {
		t.Fatalf("New(B): %v", err)
	}
	if err := nodeA.Start(); err != nil {
		t.Fatalf("Start(A): %v", err)
	}
	defer nodeA.Stop()
	if err := nodeB.Start(); err != nil {
		t.Fatalf("Start(B): %v", err)
	}
	defer nodeB.Stop()

	// B must share A's chain (for the sender's balance) and know the
	// sender's address (the wallet view is per-node, not chain-derived)
	// before it will admit a transaction gossiped from A.
	kp := fundedSender(t, nodeA)
	nodeB.wallets.Register(kp.Address)

	if err := nodeB.ConnectPeer(nodeA.p2pNode.Addr()); err != nil {
		t.Fatalf("ConnectPeer: %v", err)
	}
	syncDeadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(syncDeadline) && nodeB.GetTipIndex() != nodeA.GetTipIndex() {
		time.Sleep(20 * time.Millisecond)
	}
	if nodeB.GetTipIndex() != nodeA.GetTipIndex() {
		t.Fatalf("B did not sync A's chain before funding gossip: A=%d B=%d", nodeA.GetTipIndex(), nodeB.GetTipIndex())
	}

	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	txn := signedTransfer(t, kp, recipient.Address, 10, 1)

	if err := nodeA.SubmitTransaction(txn); err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if nodeB.pool.Has(txn.ID) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !nodeB.pool.Has(txn.ID) {
		t.Fatal("expected the gossiped transaction to reach B's mempool")
	}
}

func TestNode_P2P_PeerSyncAdoptsLongerChain(t *testing.T) {
	nodeA, err := New(p2pTestConfig(t))
	if err != nil {
		t.Fatalf("New(A): %v", err)
	}
	nodeB, err := New(p2pTestConfig(t))
	if err != nil {
		t.Fatalf("New(B): %v", err)
	}
	if err := nodeA.Start(); err != nil {
		t.Fatalf("Start(A): %v", err)
	}
	defer nodeA.Stop()
	if err := nodeB.Start(); err != nil {
		t.Fatalf("Start(B): %v", err)
	}
	defer nodeB.Stop()

	kp := fundedSender(t, nodeA)
	for i := 0; i < 3; i++ {
		if _, err := nodeA.chain.MineBlockWithReward(kp.Address, nil, nodeA.wallets); err != nil {
			t.Fatalf("mine block %d: %v", i, err)
		}
	}

	if err := nodeB.ConnectPeer(nodeA.p2pNode.Addr()); err != nil {
		t.Fatalf("ConnectPeer: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if nodeB.GetTipIndex() == nodeA.GetTipIndex() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if nodeB.GetTipIndex() != nodeA.GetTipIndex() {
		t.Fatalf("expected B to adopt A's longer chain: A height %d, B height %d", nodeA.GetTipIndex(), nodeB.GetTipIndex())
	}
}
