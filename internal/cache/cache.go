// Package cache keeps synthesized speech in memory so repeated lines are
// spoken without another remote call.
package cache

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/satriahrh/arunika-actor/domain/entities"
)

const defaultCapacity = 128

// Config holds configuration for the ResponseCache.
// Capacity > 0 bounds the cache with LRU eviction; Capacity < 0 disables
// eviction entirely. Zero selects the default capacity.
type Config struct {
	Capacity int
}

// ResponseCache maps normalized reply text to synthesized audio.
// Texts that differ only in surrounding whitespace or letter case share
// one entry.
type ResponseCache struct {
	mu      sync.Mutex
	bounded *lru.Cache[string, entities.SynthesizedAudio]
	entries map[string]entities.SynthesizedAudio
	hits    uint64
	misses  uint64
	logger  *zap.Logger
}

// New creates a ResponseCache
func New(config Config, logger *zap.Logger) (*ResponseCache, error) {
	c := &ResponseCache{logger: logger}

	capacity := config.Capacity
	if capacity == 0 {
		capacity = defaultCapacity
		logger.Info("Using default cache capacity", zap.Int("capacity", capacity))
	}

	if capacity < 0 {
		c.entries = make(map[string]entities.SynthesizedAudio)
		logger.Info("Response cache is unbounded")
		return c, nil
	}

	bounded, err := lru.NewWithEvict[string, entities.SynthesizedAudio](capacity, func(key string, _ entities.SynthesizedAudio) {
		logger.Debug("Evicted cached response", zap.String("key", key))
	})
	if err != nil {
		return nil, err
	}
	c.bounded = bounded
	return c, nil
}

// Key normalizes text into its cache key: surrounding whitespace trimmed,
// then Unicode case folded
func Key(text string) string {
	return cases.Fold().String(strings.TrimSpace(text))
}

// Get returns the cached audio for text. The returned value is marked as
// coming from the cache.
func (c *ResponseCache) Get(text string) (entities.SynthesizedAudio, bool) {
	key := Key(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		audio entities.SynthesizedAudio
		ok    bool
	)
	if c.bounded != nil {
		audio, ok = c.bounded.Get(key)
	} else {
		audio, ok = c.entries[key]
	}

	if !ok {
		c.misses++
		return entities.SynthesizedAudio{}, false
	}
	c.hits++
	audio.FromCache = true
	return audio, true
}

// Put stores audio for text, replacing any entry with the same normalized key
func (c *ResponseCache) Put(text string, audio entities.SynthesizedAudio) {
	key := Key(text)
	audio.FromCache = false

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bounded != nil {
		c.bounded.Add(key, audio)
		return
	}
	c.entries[key] = audio
}

// Len returns the number of cached entries
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bounded != nil {
		return c.bounded.Len()
	}
	return len(c.entries)
}

// Stats returns hit and miss counters since creation
func (c *ResponseCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge drops every entry
func (c *ResponseCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bounded != nil {
		c.bounded.Purge()
		return
	}
	c.entries = make(map[string]entities.SynthesizedAudio)
}
