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

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerScope: 10, MinInterval: 10 * time.Millisecond})
	sc := "owner-1"
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("a"), TS: t0})
	m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, scopes, total := m.Stats(); scopes != 1 || total != 2 {
		t.Fatalf("expected 1 scope and 2 snapshots, got scopes=%d total=%d", scopes, total)
	}
	s, ok := m.Undo(sc, []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanRedo(sc) {
		t.Fatalf("expected redo to be available")
	}
	s, ok = m.Redo(sc, []byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, _ = m.Undo(sc, []byte("c"))
	s, ok = m.Undo(sc, s.Blob)
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("second undo expected 'a', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if m.CanUndo(sc) {
		t.Fatalf("history should be exhausted")
	}
}

func TestCoalesceKeepsEarliest(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerScope: 10, MinInterval: 50 * time.Millisecond})
	sc := "owner-2"
	t0 := time.Now()
	m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("1"), TS: t0})
	m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)}) // coalesce
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo(sc, []byte("3"))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected earliest snapshot '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	m.PushSnapshot(Snapshot{Scope: "x", Blob: []byte("a"), TS: time.Now()})
	m.Undo("x", []byte("b"))
	m.PushSnapshot(Snapshot{Scope: "x", Blob: []byte("a"), TS: time.Now()})
	if m.CanRedo("x") {
		t.Fatalf("new change must invalidate redo")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerScope: 2})
	sc := "owner-3"
	for i := 0; i < 10; i++ {
		m.PushSnapshot(Snapshot{Scope: sc, Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Millisecond)})
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxPerScope cap to limit to 2, got %d", total)
	}
}
