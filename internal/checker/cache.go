package checker

import (
	"sync"
	"time"

	"github.com/webwatch/webwatch/internal/probe"
)

type cacheEntry struct {
	outcome  probe.Outcome
	storedAt time.Time
}

// resultCache memoizes the most recently completed outcome per target for a
// fixed TTL. Expired entries are evicted lazily on read; an expired outcome
// is never served.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (rc *resultCache) get(target string, now time.Time) (probe.Outcome, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	e, ok := rc.entries[target]
	if !ok {
		return probe.Outcome{}, false
	}
	if now.Sub(e.storedAt) >= rc.ttl {
		delete(rc.entries, target)
		return probe.Outcome{}, false
	}
	return e.outcome, true
}

// put stores unconditionally; concurrent probes of one target leave the
// last writer's outcome in place.
func (rc *resultCache) put(target string, out probe.Outcome, now time.Time) {
	rc.mu.Lock()
	rc.entries[target] = cacheEntry{outcome: out, storedAt: now}
	rc.mu.Unlock()
}

func (rc *resultCache) clear() {
	rc.mu.Lock()
	rc.entries = make(map[string]cacheEntry)
	rc.mu.Unlock()
}
