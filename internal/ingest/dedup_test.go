// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"sync"
	"testing"
)

func TestGuardSeenAndMark(t *testing.T) {
	g := NewGuard()
	if g.Seen("A1") {
		t.Error("empty guard must not report identities as seen")
	}
	g.Mark("A1")
	if !g.Seen("A1") {
		t.Error("marked identity must be reported as seen")
	}
	if g.Len() != 1 {
		t.Errorf("expected 1 tracked identity, got %d", g.Len())
	}
}

func TestGuardLoad(t *testing.T) {
	g := NewGuard()
	g.Load([]string{"A1", "B2"})
	if !g.Seen("A1") || !g.Seen("B2") {
		t.Error("loaded identities must be reported as seen")
	}
	if g.Seen("C3") {
		t.Error("unloaded identity must not be reported as seen")
	}
}

func TestGuardConcurrentReaders(t *testing.T) {
	g := NewGuard()
	g.Mark("A1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = g.Seen("A1")
			}
		}()
	}
	wg.Wait()
}
