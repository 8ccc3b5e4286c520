package p2p

import (
	"time"

	klog "github.com/klingnet-core/klingnet-core/internal/log"
)

const (
	defaultDiscoveryInterval     = 120 * time.Second
	defaultDiscoveryInitialDelay = 10 * time.Second
	defaultDiscoveryMaxNew       = 8
)

// discoveryLoop implements the §4.F discovery task: after an initial delay,
// every D seconds, union known peers with bootstrap/seed addresses from
// configuration and attempt to connect to up to K new peers. This replaces
// the teacher's Kademlia-DHT FindPeers rendezvous loop, which has no
// analogue once libp2p is gone.
func (n *Node) discoveryLoop() {
	delay := n.config.DiscoveryInitialDelay
	if delay <= 0 {
		delay = defaultDiscoveryInitialDelay
	}
	select {
	case <-n.ctx.Done():
		return
	case <-time.After(delay):
	}

	interval := n.config.DiscoveryInterval
	if interval <= 0 {
		interval = defaultDiscoveryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n.runDiscoveryTick()
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (n *Node) runDiscoveryTick() {
	k := n.config.DiscoveryMaxNew
	if k <= 0 {
		k = defaultDiscoveryMaxNew
	}

	attempted := 0
	for _, addr := range n.discoveryCandidates() {
		if attempted >= k {
			break
		}
		if n.isKnown(addr) {
			continue
		}
		if n.config.MaxPeers > 0 && n.PeerCount() >= n.config.MaxPeers {
			n.evictLeastUseful()
		}
		if err := n.Connect(addr); err != nil {
			klog.P2P.Debug().Str("peer", addr).Err(err).Msg("discovery connect failed")
			continue
		}
		attempted++
	}
}

// discoveryCandidates unions configured seed/bootstrap addresses with
// addresses persisted from prior gossip and sessions.
func (n *Node) discoveryCandidates() []string {
	seen := make(map[string]bool)
	var out []string

	add := func(addr string) {
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	for _, addr := range n.config.Seeds {
		add(addr)
	}
	if n.peerStore != nil {
		if records, err := n.peerStore.LoadAll(); err == nil {
			for _, rec := range records {
				add(rec.Addr)
			}
		}
	}
	return out
}
