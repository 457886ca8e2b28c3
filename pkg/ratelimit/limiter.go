package ratelimit

import (
	"context"
	"net/netip"
	"sync"
	"time"
)

// Config defines rate limiting configuration
type Config struct {
	// RequestsPerWindow is the sustained number of requests allowed per window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows temporary bursts above the rate
	Burst int
	// TrustedProxies are the peers whose forwarding headers identify the
	// client. Empty means requests are keyed on the connecting address.
	TrustedProxies []netip.Prefix
}

// DefaultConfig returns the limits applied to the login and signup forms
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 30,
		Window:            time.Minute,
		Burst:             10,
	}
}

func (c Config) capacity() int {
	return c.RequestsPerWindow + c.Burst
}

// Limiter decides whether a request identified by key may proceed. When the
// backing store fails the limiter allows the request and returns the error.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-process token bucket limiter
type MemoryLimiter struct {
	config  Config
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMemoryLimiter creates an in-memory limiter
func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes a token from key's bucket
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.config.capacity()), lastUpdate: now}
		l.buckets[key] = b
	}

	// Refill proportionally to elapsed time
	elapsed := now.Sub(b.lastUpdate).Seconds()
	rate := float64(l.config.RequestsPerWindow) / l.config.Window.Seconds()
	b.tokens += elapsed * rate
	if limit := float64(l.config.capacity()); b.tokens > limit {
		b.tokens = limit
	}
	b.lastUpdate = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// Cleanup drops buckets that have been idle for two windows; such buckets
// would be full again anyway
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastUpdate) > 2*l.config.Window {
			delete(l.buckets, key)
		}
	}
}

// Run calls Cleanup once per window until ctx is done
func (l *MemoryLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
