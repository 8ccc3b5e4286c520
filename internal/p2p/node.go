// Package p2p implements the account-model chain's peer-to-peer wire
// protocol: length-prefixed JSON messages over plain TCP, a
// connection-per-goroutine listener, an outbound version handshake, and a
// fixed dispatch table (§4.F). It replaces the teacher's libp2p transport
// (GossipSub, Kademlia DHT, multiaddrs, mDNS) with a small, closed protocol
// that does not need any of that machinery.
package p2p

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	klog "github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/internal/storage"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

const (
	dialTimeout      = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	pingTimeout      = 5 * time.Second
	connIdleTimeout  = 90 * time.Second
)

// Config holds P2P node configuration.
type Config struct {
	ListenAddr string
	Port       int
	Seeds      []string
	MaxPeers   int
	NoDiscover bool
	DB         storage.DB // Peer/ban persistence (nil = disabled, for tests)

	DiscoveryInterval     time.Duration // default 120s
	DiscoveryInitialDelay time.Duration // default 10s
	DiscoveryMaxNew       int           // K, default 8
}

// ChainView is the read-only slice of internal/chain.Chain the P2P layer
// needs to answer GetBlocks/Version requests and recognize blocks it
// already has.
type ChainView interface {
	Len() int
	TipHash() types.Hash
	Snapshot() []*block.Block
	BlockByHash(h types.Hash) (*block.Block, bool)
}

// Callbacks are invoked by the dispatch table for messages that require
// chain/mempool state the P2P layer itself doesn't own.
type Callbacks struct {
	// OnBlock handles a NewBlock announcement not already present locally.
	OnBlock func(from string, b *block.Block)
	// OnBlocks handles a Blocks(list) reply, e.g. during a chain pull.
	OnBlocks func(from string, blocks []*block.Block)
	// OnTransaction handles a NewTransaction announcement.
	OnTransaction func(from string, t *tx.Transaction)
}

// Node is a P2P node speaking the length-prefixed JSON wire protocol.
type Node struct {
	config Config
	chain  ChainView
	cb     Callbacks

	listener net.Listener
	addr     string

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	peers map[string]*Peer

	BanManager *BanManager // nil until Start
	peerStore  *PeerStore  // nil if Config.DB is nil
}

// New creates a new P2P node. chainView and cb may be partially populated
// in tests; a nil callback is simply not invoked.
func New(cfg Config, chainView ChainView, cb Callbacks) *Node {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		config: cfg,
		chain:  chainView,
		cb:     cb,
		ctx:    ctx,
		cancel: cancel,
		peers:  make(map[string]*Peer),
	}
	if cfg.DB != nil {
		n.peerStore = NewPeerStore(cfg.DB)
	}
	return n
}

// Start opens the listener, restores ban state, and launches the accept,
// discovery, cleanup, and persistence loops.
func (n *Node) Start() error {
	listenAddr := fmt.Sprintf("%s:%d", n.config.ListenAddr, n.config.Port)
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	n.listener = l
	n.addr = l.Addr().String()

	if n.config.DB != nil {
		n.BanManager = NewBanManager(NewBanStore(n.config.DB), n)
	} else {
		n.BanManager = NewBanManager(nil, n)
	}
	n.BanManager.LoadBans()

	go n.acceptLoop()

	if len(n.config.Seeds) > 0 {
		klog.P2P.Info().Int("seeds", len(n.config.Seeds)).Msg("connecting to seed peers")
		n.connectSeeds()
	}

	if !n.config.NoDiscover {
		go n.discoveryLoop()
	}
	go n.cleanupLoop()

	if n.peerStore != nil {
		go n.loadPersistedPeers()
		go n.persistLoop()
	}

	return nil
}

// Stop persists peer state and shuts the node down.
func (n *Node) Stop() error {
	n.persistPeers()
	n.cancel()
	if n.listener != nil {
		return n.listener.Close()
	}
	return nil
}

// Addr returns the node's local listen address ("host:port").
func (n *Node) Addr() string {
	return n.addr
}

func (n *Node) connectSeeds() {
	for _, addr := range n.config.Seeds {
		if addr == "" {
			continue
		}
		if err := n.Connect(addr); err != nil {
			klog.P2P.Warn().Str("peer", addr).Err(err).Msg("seed connect failed")
		}
	}
}

func (n *Node) loadPersistedPeers() {
	n.peerStore.PruneStale(staleThreshold)
	records, err := n.peerStore.LoadAll()
	if err != nil {
		return
	}
	for _, rec := range records {
		if rec.Addr == n.addr {
			continue
		}
		if err := n.Connect(rec.Addr); err != nil {
			klog.P2P.Debug().Str("peer", rec.Addr).Err(err).Msg("reconnect to persisted peer failed")
		}
	}
}

func (n *Node) persistLoop() {
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.persistPeers()
			n.peerStore.PruneStale(staleThreshold)
		}
	}
}

func (n *Node) persistPeers() {
	if n.peerStore == nil {
		return
	}
	for _, p := range n.PeerList() {
		n.peerStore.Save(PeerRecord{Addr: p.Addr, LastSeen: p.LastSeen.Unix(), Source: p.Source})
	}
}

// --- accept / dispatch ---

func (n *Node) acceptLoop() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.ctx.Done():
				return
			default:
				klog.P2P.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		go n.handleConn(conn)
	}
}

// handleConn runs the §4.F connection lifecycle: read a message, dispatch
// it, optionally write one reply, and loop until the peer disconnects or
// goes idle.
func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	addr := conn.RemoteAddr().String()
	if n.BanManager != nil && n.BanManager.IsBanned(ipFromAddr(addr)) {
		return
	}
	n.registerPeer(addr, "inbound")

	for {
		conn.SetReadDeadline(time.Now().Add(connIdleTimeout))
		env, err := readMessage(conn)
		if err != nil {
			return
		}
		n.touchPeer(addr)

		reply, err := n.dispatch(addr, env)
		if err != nil {
			klog.P2P.Debug().Str("peer", addr).Err(err).Msg("dispatch failed")
			continue
		}
		if reply != nil {
			conn.SetWriteDeadline(time.Now().Add(connIdleTimeout))
			if err := writeMessage(conn, reply); err != nil {
				return
			}
		}
	}
}

// dispatch implements the §4.F dispatch table.
func (n *Node) dispatch(from string, env *Envelope) (*Envelope, error) {
	switch env.Type {
	case MsgPing:
		return pongEnvelope(), nil

	case MsgGetBlocks:
		return blocksEnvelope(n.chain.Snapshot()), nil

	case MsgNewBlock:
		if env.Block == nil {
			return nil, fmt.Errorf("new_block message missing block")
		}
		if _, exists := n.chain.BlockByHash(env.Block.Hash); exists {
			return nil, nil // Already have it, drop.
		}
		if n.cb.OnBlock != nil {
			n.cb.OnBlock(from, env.Block)
		}
		return nil, nil

	case MsgNewTransaction:
		if env.Transaction == nil {
			return nil, fmt.Errorf("new_transaction message missing transaction")
		}
		if n.cb.OnTransaction != nil {
			n.cb.OnTransaction(from, env.Transaction)
		}
		return nil, nil

	case MsgGetPeers:
		return peersEnvelope(n.KnownAddrs()), nil

	case MsgPeers:
		n.mergePeers(env.Peers)
		return nil, nil

	case MsgVersion:
		return versionEnvelope(n.localVersion()), nil

	case MsgBlocks:
		if n.cb.OnBlocks != nil {
			n.cb.OnBlocks(from, env.Blocks)
		}
		return nil, nil

	case MsgPong:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

func (n *Node) mergePeers(addrs []string) {
	if n.peerStore == nil {
		return
	}
	now := time.Now().Unix()
	for _, addr := range addrs {
		if addr == "" || addr == n.addr {
			continue
		}
		n.peerStore.Save(PeerRecord{Addr: addr, LastSeen: now, Source: "gossip"})
	}
}

func (n *Node) localVersion() VersionPayload {
	return VersionPayload{
		ProtocolVersion: ProtocolVersion,
		BlockCount:      uint64(n.chain.Len()),
		LatestHash:      n.chain.TipHash(),
	}
}

// --- outbound handshake ---

// Connect performs the §4.F outbound handshake: dial, exchange Version,
// and pull the full chain if the peer is ahead (or, at genesis-only
// height, if the peer disagrees on the tip hash).
func (n *Node) Connect(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(handshakeTimeout))

	local := n.localVersion()
	if err := writeMessage(conn, versionEnvelope(local)); err != nil {
		return fmt.Errorf("send version to %s: %w", addr, err)
	}
	reply, err := readMessage(conn)
	if err != nil {
		return fmt.Errorf("read version from %s: %w", addr, err)
	}
	if reply.Type != MsgVersion || reply.Version == nil {
		return fmt.Errorf("unexpected handshake reply from %s: %s", addr, reply.Type)
	}
	peerVersion := *reply.Version

	switch {
	case peerVersion.BlockCount > local.BlockCount:
		if err := n.pullBlocks(conn, addr); err != nil {
			klog.P2P.Debug().Str("peer", addr).Err(err).Msg("chain pull failed")
		}
	case peerVersion.BlockCount == local.BlockCount && peerVersion.LatestHash != local.LatestHash:
		if local.BlockCount == 1 {
			if err := n.pullBlocks(conn, addr); err != nil {
				klog.P2P.Debug().Str("peer", addr).Err(err).Msg("genesis pull failed")
			}
		} else {
			klog.P2P.Info().Str("peer", addr).Msg("fork at equal height, keeping local chain")
		}
	}

	n.registerPeer(addr, "outbound")
	return nil
}

func (n *Node) pullBlocks(conn net.Conn, addr string) error {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	if err := writeMessage(conn, getBlocksEnvelope()); err != nil {
		return err
	}
	reply, err := readMessage(conn)
	if err != nil {
		return err
	}
	if reply.Type != MsgBlocks {
		return fmt.Errorf("expected blocks from %s, got %s", addr, reply.Type)
	}
	if n.cb.OnBlocks != nil {
		n.cb.OnBlocks(addr, reply.Blocks)
	}
	return nil
}

// --- broadcast ---

// BroadcastBlock opens a short-lived connection to every known peer, sends
// the block, and closes. Per-peer failures are logged and do not abort the
// rest of the broadcast.
func (n *Node) BroadcastBlock(b *block.Block) {
	n.broadcast(newBlockEnvelope(b))
}

// BroadcastTransaction is BroadcastBlock for NewTransaction messages.
func (n *Node) BroadcastTransaction(t *tx.Transaction) {
	n.broadcast(newTransactionEnvelope(t))
}

func (n *Node) broadcast(env *Envelope) {
	for _, addr := range n.KnownAddrs() {
		go func(addr string) {
			conn, err := net.DialTimeout("tcp", addr, dialTimeout)
			if err != nil {
				klog.P2P.Debug().Str("peer", addr).Err(err).Msg("broadcast dial failed")
				return
			}
			defer conn.Close()
			conn.SetWriteDeadline(time.Now().Add(dialTimeout))
			if err := writeMessage(conn, env); err != nil {
				klog.P2P.Debug().Str("peer", addr).Err(err).Msg("broadcast send failed")
			}
		}(addr)
	}
}

// --- peer bookkeeping ---

// PeerCount returns the number of known peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}

// PeerList returns a snapshot of known peers.
func (n *Node) PeerList() []*Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, p)
	}
	return out
}

// KnownAddrs returns a snapshot of known peer addresses.
func (n *Node) KnownAddrs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.peers))
	for addr := range n.peers {
		out = append(out, addr)
	}
	return out
}

func (n *Node) isKnown(addr string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.peers[addr]
	return ok
}

func (n *Node) registerPeer(addr, source string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, exists := n.peers[addr]; exists {
		p.LastSeen = time.Now()
		return
	}
	if n.config.MaxPeers > 0 && len(n.peers) >= n.config.MaxPeers {
		n.evictLockedLRU()
	}
	n.peers[addr] = &Peer{Addr: addr, ConnectedAt: time.Now(), LastSeen: time.Now(), Source: source}
}

func (n *Node) touchPeer(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.peers[addr]; ok {
		p.LastSeen = time.Now()
	}
}

func (n *Node) removePeer(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, addr)
}

// evictLeastUseful drops the peer with the oldest LastSeen (the §9 decision
// for the open question on peer eviction: evict least-recently-useful, not
// first-connected or random).
func (n *Node) evictLeastUseful() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.evictLockedLRU()
}

func (n *Node) evictLockedLRU() {
	var oldestAddr string
	var oldest time.Time
	for addr, p := range n.peers {
		if oldestAddr == "" || p.LastSeen.Before(oldest) {
			oldestAddr = addr
			oldest = p.LastSeen
		}
	}
	if oldestAddr != "" {
		delete(n.peers, oldestAddr)
	}
}

// DisconnectPeer drops every known peer whose address resolves to host.
// Used by BanManager when a ban is recorded.
func (n *Node) DisconnectPeer(host string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for addr := range n.peers {
		if ipFromAddr(addr) == host {
			delete(n.peers, addr)
		}
	}
}
