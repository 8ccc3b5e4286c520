package p2p

import "time"

// Peer is a known remote node, addressed by its dial string ("host:port")
// rather than a libp2p multiaddr/peer.ID.
type Peer struct {
	Addr        string
	ConnectedAt time.Time
	LastSeen    time.Time // updated on any successful contact, including pings
	Source      string    // "seed", "inbound", "outbound", "gossip"
}
