package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"interviewprep/ai/internal/models"
)

// StageCache keeps recent stage outputs (analysed job description, parsed résumé) so the
// follow-up and report pipelines can reuse them without another model call. Entries are keyed
// by stage and a hash of the stage input, so an edited input never hits a stale entry.
type StageCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	output    string
	expiresAt time.Time
}

// NewStageCache creates a cache with the given TTL and starts its cleanup loop.
func NewStageCache(ttl time.Duration) *StageCache {
	sc := &StageCache{
		cache: make(map[string]*cacheEntry),
		ttl:   ttl,
		done:  make(chan struct{}),
	}

	go sc.cleanupLoop()

	return sc
}

func cacheKey(stage models.Stage, input string) string {
	sum := sha256.Sum256([]byte(input))
	return string(stage) + ":" + hex.EncodeToString(sum[:])
}

// Set stores the output of stage for input.
func (sc *StageCache) Set(stage models.Stage, input, output string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.cache[cacheKey(stage, input)] = &cacheEntry{
		output:    output,
		expiresAt: time.Now().Add(sc.ttl),
	}
}

// Get returns the cached output of stage for input if present and not expired.
func (sc *StageCache) Get(stage models.Stage, input string) (string, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	entry, exists := sc.cache[cacheKey(stage, input)]
	if !exists {
		return "", false
	}

	if time.Now().After(entry.expiresAt) {
		return "", false
	}

	return entry.output, true
}

// Close stops the cleanup loop.
func (sc *StageCache) Close() {
	sc.once.Do(func() { close(sc.done) })
}

func (sc *StageCache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sc.cleanup()
		case <-sc.done:
			return
		}
	}
}

func (sc *StageCache) cleanup() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := time.Now()
	for key, entry := range sc.cache {
		if now.After(entry.expiresAt) {
			delete(sc.cache, key)
		}
	}
}

// Size returns the number of stored entries, expired ones included until cleanup runs.
func (sc *StageCache) Size() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return len(sc.cache)
}
