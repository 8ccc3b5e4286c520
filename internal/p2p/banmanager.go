package p2p

import (
	"net"
	"sync"
	"time"

	klog "github.com/klingnet-core/klingnet-core/internal/log"
)

// Ban thresholds and durations.
const (
	BanThreshold = 100 // Score at which a peer gets banned.
	BanDuration  = 24 * time.Hour
)

// Penalty values for different offenses.
const (
	PenaltyInvalidBlock  = 50  // Bad hash/PoW, consensus failure.
	PenaltyInvalidTx     = 20  // Validation failure.
	PenaltyHandshakeFail = 100 // Instant ban (genesis mismatch).
)

// BanManager tracks offense scores per remote IP and manages bans.
type BanManager struct {
	mu     sync.RWMutex
	scores map[string]int
	bans   map[string]*BanRecord
	store  *BanStore // Persistence (nil for tests).
	node   *Node     // For DisconnectPeer (nil in unit tests).
}

// NewBanManager creates a new BanManager. store may be nil to disable
// persistence; node may be nil if disconnect-on-ban is not needed.
func NewBanManager(store *BanStore, node *Node) *BanManager {
	return &BanManager{
		scores: make(map[string]int),
		bans:   make(map[string]*BanRecord),
		store:  store,
		node:   node,
	}
}

// LoadBans restores persisted bans from the store into the in-memory cache.
func (bm *BanManager) LoadBans() {
	if bm.store == nil {
		return
	}
	bm.store.PruneExpired()

	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.store.ForEach(func(rec *BanRecord) error {
		if !rec.IsExpired() {
			bm.bans[rec.IP] = rec
		}
		return nil
	})
}

// RecordOffense adds a penalty score to an IP. If the cumulative score
// reaches BanThreshold, the IP is banned and disconnected.
func (bm *BanManager) RecordOffense(ip string, penalty int, reason string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if rec, ok := bm.bans[ip]; ok && !rec.IsExpired() {
		return
	}

	bm.scores[ip] += penalty
	if bm.scores[ip] < BanThreshold {
		return
	}

	now := time.Now()
	rec := &BanRecord{
		IP:        ip,
		Reason:    reason,
		Score:     bm.scores[ip],
		BannedAt:  now.Unix(),
		ExpiresAt: now.Add(BanDuration).Unix(),
	}
	bm.bans[ip] = rec
	delete(bm.scores, ip)

	if bm.store != nil {
		bm.store.Put(rec)
	}

	klog.P2P.Warn().Str("ip", ip).Str("reason", reason).Int("score", rec.Score).Msg("peer banned")

	if bm.node != nil {
		bm.node.DisconnectPeer(ip)
	}
}

// IsBanned returns true if the IP is currently banned.
func (bm *BanManager) IsBanned(ip string) bool {
	bm.mu.RLock()
	rec, ok := bm.bans[ip]
	bm.mu.RUnlock()

	if !ok {
		return false
	}
	if rec.IsExpired() {
		bm.mu.Lock()
		delete(bm.bans, ip)
		bm.mu.Unlock()
		if bm.store != nil {
			bm.store.Delete(ip)
		}
		return false
	}
	return true
}

// Unban manually removes a ban.
func (bm *BanManager) Unban(ip string) {
	bm.mu.Lock()
	delete(bm.bans, ip)
	delete(bm.scores, ip)
	bm.mu.Unlock()

	if bm.store != nil {
		bm.store.Delete(ip)
	}
}

// BanList returns a snapshot of all active bans.
func (bm *BanManager) BanList() []BanRecord {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	var list []BanRecord
	for _, rec := range bm.bans {
		if !rec.IsExpired() {
			list = append(list, *rec)
		}
	}
	return list
}

// RunPruneLoop periodically prunes expired bans. Call in a goroutine. Stops
// when done is closed.
func (bm *BanManager) RunPruneLoop(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			bm.pruneExpired()
		}
	}
}

func (bm *BanManager) pruneExpired() {
	bm.mu.Lock()
	var expired []string
	for ip, rec := range bm.bans {
		if rec.IsExpired() {
			expired = append(expired, ip)
		}
	}
	for _, ip := range expired {
		delete(bm.bans, ip)
	}
	bm.mu.Unlock()

	if bm.store != nil {
		bm.store.PruneExpired()
	}
}

// ipFromAddr extracts the host portion of a "host:port" dial string; it
// returns addr unchanged if it has no port (already a bare IP).
func ipFromAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
