/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestClearScopeAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerScope: 10})
	sc := "owner-7"
	m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("abcdef"), TS: time.Now()})
	m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("ghi"), TS: time.Now()})
	m.Undo(sc, []byte("jkl"))
	tb, scopes, total := m.Stats()
	if tb == 0 || scopes != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d scopes=%d total=%d", tb, scopes, total)
	}
	m.ClearScope(sc)
	tb2, scopes2, total2 := m.Stats()
	if tb2 != 0 || scopes2 != 0 || total2 != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d scopes=%d total=%d", tb2, scopes2, total2)
	}
}

func TestGlobalPruneAcrossScopes(t *testing.T) {
	// Very small MaxBytes so pruning triggers across scopes
	m := NewManager(Config{MaxBytes: 8})
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Scope: "a", Blob: []byte("xxxx"), TS: t0})
	m.PushSnapshot(Snapshot{Scope: "b", Blob: []byte("yyyy"), TS: t0.Add(time.Second)})

	// Exceeds cap and forces prune of the oldest snapshot
	m.PushSnapshot(Snapshot{Scope: "b", Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	_, scopes, total := m.Stats()
	if scopes == 0 || total == 0 {
		t.Fatalf("expected some snapshots to remain")
	}
	if m.CanUndo("a") {
		t.Fatalf("expected scope a to have been pruned")
	}
	if _, ok := m.Undo("b", nil); !ok {
		t.Fatalf("expected scope b to have snapshots")
	}
}
