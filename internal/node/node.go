// Package node wires the chain, wallet view, mempool, balance cache, P2P
// node, and block store into a single orchestrator and exposes the read/write
// operations external collaborators (RPC, CLI, tests) use to drive the chain.
//
// Grounded on the teacher's internal/node/node.go lifecycle (New builds every
// subsystem without starting background work; Start launches goroutines;
// Stop tears them down in reverse order), generalized from its multi-subchain
// PoA/PoW branching down to this spec's single PoW chain.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/cache"
	"github.com/klingnet-core/klingnet-core/internal/chain"
	klog "github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/internal/mempool"
	"github.com/klingnet-core/klingnet-core/internal/miner"
	"github.com/klingnet-core/klingnet-core/internal/p2p"
	"github.com/klingnet-core/klingnet-core/internal/storage"
	"github.com/klingnet-core/klingnet-core/internal/wallet"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized account-model chain node: chain engine,
// mempool, balance cache, wallet registry, and (optionally) a P2P node and
// background miner. It owns no RPC transport — internal/rpc wraps a *Node
// and exposes its operations over HTTP.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	chain    *chain.Chain
	pool     *mempool.Pool
	cache    *cache.BalanceCache
	wallets  *walletRegistry
	keystore *wallet.Keystore

	p2pNode *p2p.Node
	bgMiner *miner.Miner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds every subsystem (storage, chain, mempool, cache, wallet
// registry, P2P node) but starts no background goroutines; call Start for
// that. Per spec §4.H's lock order (chain → wallet view → mempool → cache),
// construction wires the subsystems in that same order.
func New(cfg *config.Config) (*Node, error) {
	logger := klog.WithComponent("node")
	genesis := config.GenesisFor(cfg.Network)

	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Uint64("difficulty", genesis.Protocol.Consensus.InitialDifficulty).
		Int64("target_block_time", genesis.Protocol.Consensus.TargetBlockTime).
		Msg("starting klingnet node")

	ch, err := chain.New(cfg.BlocksDir(), genesis)
	if err != nil {
		return nil, fmt.Errorf("open chain: %w", err)
	}
	logger.Info().
		Uint64("height", ch.Height()).
		Str("tip", ch.TipHash().String()).
		Str("difficulty", formatDifficulty(ch.Difficulty())).
		Msg("chain ready")

	pool := mempool.New(genesis.Protocol.Consensus.MempoolMaxSize)
	bal := cache.New()
	wallets := newWalletRegistry()

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}
	registered, err := restoreWallets(ks, wallets)
	if err != nil {
		return nil, fmt.Errorf("restore keystore wallets: %w", err)
	}
	if registered > 0 {
		logger.Info().Int("count", registered).Msg("wallets restored from keystore")
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:      cfg,
		genesis:  genesis,
		logger:   logger,
		chain:    ch,
		pool:     pool,
		cache:    bal,
		wallets:  wallets,
		keystore: ks,
		ctx:      ctx,
		cancel:   cancel,
	}

	if cfg.P2P.Enabled {
		db, err := storage.NewBadger(cfg.PeerDBDir())
		if err != nil {
			cancel()
			return nil, fmt.Errorf("open peer database: %w", err)
		}
		seeds := make([]string, 0, len(cfg.P2P.Seeds)+len(cfg.P2P.Bootstrap))
		seeds = append(seeds, cfg.P2P.Seeds...)
		seeds = append(seeds, cfg.P2P.Bootstrap...)

		n.p2pNode = p2p.New(p2p.Config{
			ListenAddr:            cfg.P2P.ListenAddr,
			Port:                  cfg.P2P.Port,
			Seeds:                 seeds,
			MaxPeers:              cfg.P2P.MaxPeers,
			NoDiscover:            cfg.P2P.NoDiscover,
			DB:                    db,
			DiscoveryInterval:     time.Duration(cfg.P2P.DiscoveryIntervalSeconds) * time.Second,
			DiscoveryInitialDelay: time.Duration(cfg.P2P.DiscoveryInitialDelaySecond) * time.Second,
			DiscoveryMaxNew:       cfg.P2P.DiscoveryMaxConnections,
		}, n, p2p.Callbacks{
			OnBlock:       n.onBlockAnnounced,
			OnBlocks:      n.onBlocksReceived,
			OnTransaction: n.onTransactionAnnounced,
		})
	} else {
		logger.Warn().Msg("p2p disabled by config; node will run offline")
	}

	if cfg.Mining.Enabled {
		coinbase, err := resolveCoinbase(cfg.Mining.Coinbase)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("resolve coinbase: %w", err)
		}
		n.bgMiner = miner.New(n, coinbase, genesis.Protocol.Consensus.MaxTransactionsPerBlock, miner.DefaultInterval)
		logger.Info().Str("coinbase", string(coinbase)).Msg("background mining enabled")
	}

	return n, nil
}

// Start launches background goroutines: the P2P node's own loops (it
// manages its own accept/discovery/cleanup goroutines internally) and,
// if mining is enabled, the periodic miner.
func (n *Node) Start() error {
	if n.p2pNode != nil {
		if err := n.p2pNode.Start(); err != nil {
			return fmt.Errorf("start p2p: %w", err)
		}
		n.logger.Info().Str("addr", n.p2pNode.Addr()).Msg("p2p node started")
	}

	if n.bgMiner != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.bgMiner.Run(n.ctx)
		}()
	}

	n.logger.Info().
		Uint64("height", n.chain.Height()).
		Str("tip", n.chain.TipHash().String()).
		Bool("mining", n.bgMiner != nil).
		Bool("p2p", n.p2pNode != nil).
		Msg("node started")
	return nil
}

// Stop cancels background work and closes the P2P listener, in reverse
// order of Start.
func (n *Node) Stop() error {
	n.cancel()
	n.wg.Wait()

	if n.p2pNode != nil {
		if err := n.p2pNode.Stop(); err != nil {
			return fmt.Errorf("stop p2p: %w", err)
		}
	}
	n.logger.Info().Msg("node stopped")
	return nil
}

// restoreWallets registers every address already persisted in the keystore
// with the wallet view, so wallets created in a previous run remain usable
// senders without re-running CreateWallet.
func restoreWallets(ks *wallet.Keystore, wallets *walletRegistry) (int, error) {
	names, err := ks.List()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, name := range names {
		addrStr, err := ks.Address(name)
		if err != nil {
			continue
		}
		addr := types.Address(addrStr)
		if addr.Validate() != nil {
			continue
		}
		wallets.Register(addr)
		count++
	}
	return count, nil
}

// --- p2p.ChainView ---
//
// Node satisfies internal/p2p.ChainView directly by delegating to its
// chain engine, so the P2P layer can answer GetBlocks/Version requests
// without a separate adapter type.

func (n *Node) Len() int                                      { return n.chain.Len() }
func (n *Node) TipHash() types.Hash                            { return n.chain.TipHash() }
func (n *Node) Snapshot() []*block.Block                       { return n.chain.Snapshot() }
func (n *Node) BlockByHash(h types.Hash) (*block.Block, bool)  { return n.chain.BlockByHash(h) }

// --- p2p.Callbacks ---

// onBlockAnnounced handles a NewBlock broadcast the P2P layer has not seen
// before. There is no operation to apply a single externally-mined block in
// isolation (internal/chain.AddBlock always mines a fresh one locally); the
// announcement is instead treated as a signal that from may be ahead, and
// handled by re-running the handshake's chain-pull against it.
func (n *Node) onBlockAnnounced(from string, b *block.Block) {
	n.logger.Debug().Str("peer", from).Uint64("index", b.Header.Index).Msg("new block announced, pulling from peer")
	go func() {
		if err := n.p2pNode.Connect(from); err != nil {
			n.logger.Debug().Str("peer", from).Err(err).Msg("pull after announcement failed")
		}
	}()
}

// onBlocksReceived handles a full chain pulled from a peer (either via the
// outbound handshake or onBlockAnnounced's re-pull) by running it through
// fork resolution.
func (n *Node) onBlocksReceived(from string, blocks []*block.Block) {
	accepted, err := n.chain.ResolveConflict(blocks)
	if err != nil {
		n.logger.Debug().Str("peer", from).Err(err).Msg("candidate chain rejected")
		return
	}
	if !accepted {
		return
	}
	n.cache.Invalidate()
	for _, b := range blocks {
		n.pool.RemoveConfirmed(b.Transactions)
	}
	n.logger.Info().Str("peer", from).Uint64("height", n.chain.Height()).Msg("chain replaced via fork resolution")
}

// onTransactionAnnounced admits a gossiped transaction into the local
// mempool. It is not re-broadcast: every peer runs its own discovery/gossip
// cycle, so re-flooding an already-seen transaction only wastes bandwidth.
func (n *Node) onTransactionAnnounced(from string, t *tx.Transaction) {
	if err := n.admitTransaction(t); err != nil {
		n.logger.Debug().Str("peer", from).Err(err).Str("tx", t.ID).Msg("rejected gossiped transaction")
		return
	}
	n.logger.Debug().Str("peer", from).Str("tx", t.ID).Msg("gossiped transaction admitted")
}
