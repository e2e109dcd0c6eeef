package domain

import "github.com/google/uuid"

// OrderPair returns the two ids in canonical order (lower uuid first).
// Every component that locks or stores an unordered pair goes through
// this so lock acquisition is deterministic regardless of which side
// acted first.
func OrderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// PairKey is the canonical order-independent identifier for a user
// pair, used as the advisory lock key and cache tag.
func PairKey(a, b uuid.UUID) string {
	u1, u2 := OrderPair(a, b)
	return u1.String() + ":" + u2.String()
}
