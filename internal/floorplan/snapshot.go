/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package floorplan

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"floorplanner/internal/domain"
)

// snapshot is the compact binary form of a scene kept in undo history.
type snapshot struct {
	Template   string              `msgpack:"t"`
	Items      []domain.PlacedItem `msgpack:"i"`
	Background string              `msgpack:"b"`
	SelectedID string              `msgpack:"s"`
}

// EncodeSnapshot serializes the scene content (not canvas size or dirty flag).
func (s *Scene) EncodeSnapshot() ([]byte, error) {
	b, err := msgpack.Marshal(snapshot{Template: s.template, Items: s.items, Background: s.background, SelectedID: s.selectedID})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// RestoreSnapshot replaces the scene content with a snapshot produced by
// EncodeSnapshot and marks the scene dirty. Items are re-clamped to the
// current canvas, which may have changed since the snapshot was taken.
func (s *Scene) RestoreSnapshot(b []byte) error {
	var snap snapshot
	if err := msgpack.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.template = snap.Template
	s.items = snap.Items
	for i := range s.items {
		s.clamp(&s.items[i])
	}
	s.background = snap.Background
	s.selectedID = snap.SelectedID
	if s.index(s.selectedID) < 0 {
		s.selectedID = ""
	}
	s.dirty = true
	return nil
}
