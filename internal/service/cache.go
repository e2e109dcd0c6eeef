package service

import (
	"context"

	"github.com/google/uuid"
)

// Read-cache views. Derived, TTL-bounded, never a source of truth.
const (
	ViewDiscovery = "discovery"
	ViewMatches   = "matches"
)

// Cache is the read-cache coordinator interface. It is the only way any
// component touches the cache: population on read misses, explicit key
// removal on invalidation.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID, view, page string) ([]byte, bool, error)
	Set(ctx context.Context, userID uuid.UUID, view, page string, value []byte) error
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}
