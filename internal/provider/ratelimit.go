package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIntervals returns the minimum spacing between requests per provider.
// MusicBrainz rejects clients that exceed one request per second.
func DefaultIntervals() map[ProviderName]time.Duration {
	return map[ProviderName]time.Duration{
		NameSpotify:     100 * time.Millisecond,
		NameMusicBrainz: time.Second,
		NameLastFM:      200 * time.Millisecond,
	}
}

// RateLimiterMap holds one rate.Limiter per provider. A single map is shared by
// every analysis run in the process so pacing holds across concurrent runs.
type RateLimiterMap struct {
	mu        sync.RWMutex
	limiters  map[ProviderName]*rate.Limiter
	intervals map[ProviderName]time.Duration
}

// NewRateLimiterMap creates limiters for the given intervals. A nil map uses
// DefaultIntervals. A non-positive interval leaves the provider unthrottled.
func NewRateLimiterMap(intervals map[ProviderName]time.Duration) *RateLimiterMap {
	if intervals == nil {
		intervals = DefaultIntervals()
	}
	m := &RateLimiterMap{
		limiters:  make(map[ProviderName]*rate.Limiter, len(intervals)),
		intervals: make(map[ProviderName]time.Duration, len(intervals)),
	}
	for name, interval := range intervals {
		m.set(name, interval)
	}
	return m
}

// SetInterval replaces the limiter for a provider.
func (m *RateLimiterMap) SetInterval(name ProviderName, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(name, interval)
}

func (m *RateLimiterMap) set(name ProviderName, interval time.Duration) {
	if interval <= 0 {
		delete(m.limiters, name)
		delete(m.intervals, name)
		return
	}
	m.limiters[name] = rate.NewLimiter(rate.Every(interval), 1)
	m.intervals[name] = interval
}

// Interval returns the configured spacing for a provider, or 0 if unthrottled.
func (m *RateLimiterMap) Interval(name ProviderName) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intervals[name]
}

// Wait blocks until the rate limiter for the given provider allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}
