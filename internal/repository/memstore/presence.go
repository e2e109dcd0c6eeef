package memstore

import (
	"context"
	"sync"
	"time"
)

// Presence is an in-process TTL key-value store with the same contract
// as the Redis-backed one. Used in tests (with an injected clock) and
// for running a single instance without Redis.
type Presence struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[string]entry), now: time.Now}
}

// NewPresenceWithClock injects a clock for TTL tests.
func NewPresenceWithClock(now func() time.Time) *Presence {
	return &Presence{entries: make(map[string]entry), now: now}
}

func (p *Presence) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = entry{value: value, expiresAt: p.now().Add(ttl)}
	return nil
}

func (p *Presence) Set(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = entry{value: value}
	return nil
}

func (p *Presence) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !p.now().Before(e.expiresAt) {
		delete(p.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (p *Presence) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
	return nil
}
