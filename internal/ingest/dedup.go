// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import "sync"

// Guard is the in-memory duplicate filter for event identities. It is an
// optimization in front of the database's conflict-tolerant insert, not
// the source of truth: a miss here is always caught by the primary key.
//
// There is a single writer (the pipeline); readers may be concurrent.
type Guard struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{seen: make(map[string]struct{})}
}

// Load seeds the guard with previously persisted identities.
func (g *Guard) Load(ids []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		g.seen[id] = struct{}{}
	}
}

// Seen reports whether the identity has already been observed.
func (g *Guard) Seen(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.seen[id]
	return ok
}

// Mark records an identity. Call only after the event was persisted, so a
// failed insert stays eligible for retry on redelivery.
func (g *Guard) Mark(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[id] = struct{}{}
}

// Len returns the number of tracked identities.
func (g *Guard) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.seen)
}
