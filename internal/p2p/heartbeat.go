package p2p

import (
	"fmt"
	"net"
	"time"

	klog "github.com/klingnet-core/klingnet-core/internal/log"
)

// cleanupInterval is the §4.F cleanup cadence: every 60s, ping each known
// peer and remove any that fail.
const cleanupInterval = 60 * time.Second

func (n *Node) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.runCleanupTick()
		}
	}
}

func (n *Node) runCleanupTick() {
	for _, addr := range n.KnownAddrs() {
		if err := n.ping(addr); err != nil {
			klog.P2P.Debug().Str("peer", addr).Err(err).Msg("peer failed liveness ping, removing")
			n.removePeer(addr)
			continue
		}
		n.touchPeer(addr)
	}
}

// ping opens a short-lived connection, sends Ping, and expects a Pong reply
// within pingTimeout.
func (n *Node) ping(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(pingTimeout))
	if err := writeMessage(conn, pingEnvelope()); err != nil {
		return err
	}
	reply, err := readMessage(conn)
	if err != nil {
		return err
	}
	if reply.Type != MsgPong {
		return fmt.Errorf("expected pong from %s, got %s", addr, reply.Type)
	}
	return nil
}
