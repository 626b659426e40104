package channels

import (
	"sync"
	"time"
)

const (
	// maxTrackedKeys caps the number of tracked rate-limit keys to prevent
	// memory exhaustion from attackers rotating source IPs/keys.
	maxTrackedKeys = 4096

	// DefaultWebhookWindow is the fixed window for rate counting.
	DefaultWebhookWindow = 60 * time.Second

	// DefaultWebhookMaxHits is the max requests per key within a window.
	// Telegram delivers from a handful of addresses, so this is per source
	// and generous.
	DefaultWebhookMaxHits = 1200
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// WebhookRateLimiter bounds requests per source key and the number of
// tracked keys. Safe for concurrent use.
type WebhookRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	window  time.Duration
	maxHits int
	now     func() time.Time
}

// NewWebhookRateLimiter creates a bounded webhook rate limiter. Zero values
// select the defaults.
func NewWebhookRateLimiter(window time.Duration, maxHits int) *WebhookRateLimiter {
	if window <= 0 {
		window = DefaultWebhookWindow
	}
	if maxHits <= 0 {
		maxHits = DefaultWebhookMaxHits
	}
	return &WebhookRateLimiter{
		entries: make(map[string]*rateLimitEntry),
		window:  window,
		maxHits: maxHits,
		now:     time.Now,
	}
}

// Allow returns true if the key is within rate limits.
// Automatically prunes stale entries and enforces a hard cap on tracked keys.
func (r *WebhookRateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= r.window {
				delete(r.entries, k)
			}
		}
		// Hard eviction if still at cap
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok || now.Sub(e.windowStart) >= r.window {
		r.entries[key] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= r.maxHits
}

// Tracked returns the number of keys currently tracked.
func (r *WebhookRateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
