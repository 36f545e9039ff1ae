package storage

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache is a small in-process TTL cache used to keep hot read paths
// off the database. A zero TTL disables expiry entirely.
type MemoryCache[K comparable, V any] struct {
	mutex     sync.RWMutex
	entries   map[K]cacheEntry[V]
	ttl       time.Duration
	stopSweep chan struct{}
	sweepWg   sync.WaitGroup
	closed    bool
}

// NewMemoryCache creates a cache whose entries expire ttl after they were
// stored; entries never expire when ttl is 0.
func NewMemoryCache[K comparable, V any](ttl time.Duration) *MemoryCache[K, V] {
	memCache := &MemoryCache[K, V]{
		entries:   make(map[K]cacheEntry[V]),
		ttl:       ttl,
		stopSweep: make(chan struct{}),
	}
	if ttl > 0 {
		memCache.sweepWg.Add(1)
		go memCache.sweepExpired()
	}
	return memCache
}

// Get returns the live entry for key if present. Expired entries are dropped
// on read rather than waiting for the sweeper.
func (memCache *MemoryCache[K, V]) Get(key K) (V, bool) {
	memCache.mutex.RLock()
	entry, found := memCache.entries[key]
	memCache.mutex.RUnlock()
	if found && (memCache.ttl == 0 || time.Now().Before(entry.expiresAt)) {
		return entry.value, true
	}
	if found {
		memCache.Delete(key)
	}
	var zeroValue V
	return zeroValue, false
}

// Set stores value against key, resetting its expiry.
func (memCache *MemoryCache[K, V]) Set(key K, value V) {
	entry := cacheEntry[V]{value: value}
	if memCache.ttl > 0 {
		entry.expiresAt = time.Now().Add(memCache.ttl)
	}
	memCache.mutex.Lock()
	memCache.entries[key] = entry
	memCache.mutex.Unlock()
}

// Delete drops the entry for key if present.
func (memCache *MemoryCache[K, V]) Delete(key K) {
	memCache.mutex.Lock()
	delete(memCache.entries, key)
	memCache.mutex.Unlock()
}

func (memCache *MemoryCache[K, V]) sweepExpired() {
	defer memCache.sweepWg.Done()
	ticker := time.NewTicker(memCache.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-memCache.stopSweep:
			return
		case now := <-ticker.C:
			memCache.mutex.Lock()
			for key, entry := range memCache.entries {
				if now.After(entry.expiresAt) {
					delete(memCache.entries, key)
				}
			}
			memCache.mutex.Unlock()
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (memCache *MemoryCache[K, V]) Close() {
	if memCache.ttl > 0 && !memCache.closed {
		close(memCache.stopSweep)
		memCache.sweepWg.Wait()
		memCache.closed = true
	}
}
