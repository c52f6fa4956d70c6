/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package floorplan holds the pure scene-mutation core of the floor-plan designer:
// the item catalog, placed items, selection and the dirty flag. It has no rendering
// or I/O concerns; adapters read the scene and draw or persist it.
//
// A Scene is not safe for concurrent use. UI adapters mutate it from their event
// goroutine only.
package floorplan

import (
	"strconv"
	"strings"

	"floorplanner/internal/domain"
	"floorplanner/internal/vector"
)

// MinItemSize is the smallest width or height an item can be scaled to, in pixels.
const MinItemSize = 8

// Scene is the floor-plan aggregate.
type Scene struct {
	template   string
	items      []domain.PlacedItem
	background string
	selectedID string
	dirty      bool

	width, height float64
	ids           IDGenerator
}

// NewScene returns an empty, unmounted scene on the default template.
// A nil ids uses a per-scene counter.
func NewScene(ids IDGenerator) *Scene {
	if ids == nil {
		ids = NewCounterIDs("item")
	}
	return &Scene{template: DefaultTemplateID, ids: ids}
}

// Mount records the canvas size in pixels. Items already placed are re-clamped
// to the new bounds.
func (s *Scene) Mount(w, h float64) {
	s.width, s.height = w, h
	for i := range s.items {
		if s.clamp(&s.items[i]) {
			s.dirty = true
		}
	}
}

// Mounted reports whether a canvas of non-zero size is attached.
func (s *Scene) Mounted() bool { return s.width > 0 && s.height > 0 }

// Size returns the mounted canvas size.
func (s *Scene) Size() (float64, float64) { return s.width, s.height }

func (s *Scene) Template() string        { return s.template }
func (s *Scene) BackgroundImage() string { return s.background }
func (s *Scene) SelectedID() string      { return s.selectedID }
func (s *Scene) Dirty() bool             { return s.dirty }
func (s *Scene) MarkClean()              { s.dirty = false }
func (s *Scene) Len() int                { return len(s.items) }

// SetTemplate switches the background preset. Unknown ids are rejected.
func (s *Scene) SetTemplate(id string) bool {
	if _, ok := LookupTemplate(id); !ok {
		return false
	}
	if s.template != id {
		s.template = id
		s.dirty = true
	}
	return true
}

// SetBackgroundImage sets (or with "" clears) the background image data URL.
func (s *Scene) SetBackgroundImage(dataURL string) {
	if s.background != dataURL {
		s.background = dataURL
		s.dirty = true
	}
}

// Items returns a copy of the placed items in paint order.
func (s *Scene) Items() []domain.PlacedItem {
	return append([]domain.PlacedItem(nil), s.items...)
}

// Item returns the item with the given id.
func (s *Scene) Item(id string) (domain.PlacedItem, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return domain.PlacedItem{}, false
}

// Selected returns the selected item, if any.
func (s *Scene) Selected() (domain.PlacedItem, bool) {
	if s.selectedID == "" {
		return domain.PlacedItem{}, false
	}
	return s.Item(s.selectedID)
}

// Select changes the selection. An empty id clears it; an unknown id is rejected.
// Selection is view state and does not dirty the scene.
func (s *Scene) Select(id string) bool {
	if id == "" {
		s.selectedID = ""
		return true
	}
	if s.index(id) < 0 {
		return false
	}
	s.selectedID = id
	return true
}

// AddItem places a new item from the prototype key at the canvas center with no
// rotation and selects it. It is a no-op when the key is unknown or the canvas is
// not mounted.
func (s *Scene) AddItem(key string) (domain.PlacedItem, bool) {
	p, ok := Prototype(key)
	if !ok || !s.Mounted() {
		return domain.PlacedItem{}, false
	}
	it := domain.PlacedItem{
		ID:        s.ids.NewID(),
		Type:      p.Type,
		Shape:     p.Shape,
		Color:     p.Color,
		DarkColor: p.DarkColor,
		W:         p.W,
		H:         p.H,
		X:         s.width / 2,
		Y:         s.height / 2,
	}
	s.clamp(&it)
	s.items = append(s.items, it)
	s.selectedID = it.ID
	s.dirty = true
	return it, true
}

// RemoveSelected deletes the selected item and clears the selection.
func (s *Scene) RemoveSelected() bool {
	i := s.index(s.selectedID)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.selectedID = ""
	s.dirty = true
	return true
}

// ScaleSelected multiplies the selected item's size by factor, floored at MinItemSize per axis.
func (s *Scene) ScaleSelected(factor float64) bool {
	i := s.index(s.selectedID)
	if i < 0 {
		return false
	}
	it := &s.items[i]
	it.W = max(MinItemSize, it.W*factor)
	it.H = max(MinItemSize, it.H*factor)
	s.clamp(it)
	s.dirty = true
	return true
}

// RotateSelected adds delta degrees to the selected item's rotation.
func (s *Scene) RotateSelected(delta float64) bool {
	i := s.index(s.selectedID)
	if i < 0 {
		return false
	}
	it := &s.items[i]
	it.Rotation = vector.WrapDegrees(it.Rotation + delta)
	s.clamp(it)
	s.dirty = true
	return true
}

// ItemPatch is an explicit field override from a properties form. Nil fields are left alone.
type ItemPatch struct {
	Type     *domain.ItemType
	W        *float64
	H        *float64
	Rotation *float64
}

// EditItem applies patch to the item with the given id regardless of selection.
// A type change adopts that type's shape and colors. Unknown ids or types are rejected.
func (s *Scene) EditItem(id string, patch ItemPatch) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	it := s.items[i]
	if patch.Type != nil {
		p, ok := PrototypeForType(*patch.Type)
		if !ok {
			return false
		}
		it.Type, it.Shape, it.Color, it.DarkColor = p.Type, p.Shape, p.Color, p.DarkColor
	}
	if patch.W != nil {
		it.W = max(MinItemSize, *patch.W)
	}
	if patch.H != nil {
		it.H = max(MinItemSize, *patch.H)
	}
	if patch.Rotation != nil {
		it.Rotation = vector.WrapDegrees(*patch.Rotation)
	}
	s.clamp(&it)
	s.items[i] = it
	s.dirty = true
	return true
}

// MoveItemTo centers the item at (x,y), clamped so its rotated bounds stay on the canvas.
func (s *Scene) MoveItemTo(id string, x, y float64) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	it := &s.items[i]
	it.X, it.Y = x, y
	s.clamp(it)
	s.dirty = true
	return true
}

// SetItemRotation sets an absolute rotation in degrees and re-clamps the position.
func (s *Scene) SetItemRotation(id string, deg float64) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	it := &s.items[i]
	it.Rotation = vector.WrapDegrees(deg)
	s.clamp(it)
	s.dirty = true
	return true
}

// HitTest returns the id of the top-most item under p.
func (s *Scene) HitTest(p vector.Pt) (string, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		it := s.items[i]
		if vector.ItemNode(it.Shape == domain.ShapeRound, it.X, it.Y, it.W, it.H, it.Rotation).Hit(p) {
			return it.ID, true
		}
	}
	return "", false
}

// Reset empties the scene onto the given template (default when unknown) and marks it clean.
func (s *Scene) Reset(template string) {
	if _, ok := LookupTemplate(template); !ok {
		template = DefaultTemplateID
	}
	s.template = template
	s.items = nil
	s.background = ""
	s.selectedID = ""
	s.dirty = false
}

// Replace loads a persisted draft: template, items and background image. The
// selection is cleared and the scene is clean afterwards.
func (s *Scene) Replace(d domain.Draft) {
	s.template = d.Template
	if _, ok := LookupTemplate(d.Template); !ok {
		s.template = DefaultTemplateID
	}
	s.items = make([]domain.PlacedItem, 0, len(d.Items))
	for _, it := range d.Items {
		it.Rotation = vector.WrapDegrees(it.Rotation)
		s.clamp(&it)
		s.items = append(s.items, it)
	}
	s.background = ""
	if d.BackgroundImage != nil {
		s.background = *d.BackgroundImage
	}
	s.selectedID = ""
	s.dirty = false
	s.reserveIDs()
}

// Draft returns the persistable form of the scene.
func (s *Scene) Draft() domain.Draft {
	d := domain.Draft{Template: s.template, Items: s.Items()}
	if d.Items == nil {
		d.Items = []domain.PlacedItem{}
	}
	if s.background != "" {
		bg := s.background
		d.BackgroundImage = &bg
	}
	return d
}

func (s *Scene) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// clamp enforces the on-canvas invariant for it and reports whether it moved.
// Unmounted scenes have no bounds to enforce.
func (s *Scene) clamp(it *domain.PlacedItem) bool {
	if !s.Mounted() {
		return false
	}
	x, y := vector.ClampCenter(it.X, it.Y, it.W, it.H, it.Rotation, s.width, s.height)
	moved := x != it.X || y != it.Y
	it.X, it.Y = x, y
	return moved
}

// reserveIDs keeps a counter generator ahead of numeric ids loaded from a draft.
func (s *Scene) reserveIDs() {
	c, ok := s.ids.(*CounterIDs)
	if !ok {
		return
	}
	for _, it := range s.items {
		rest, found := strings.CutPrefix(it.ID, c.prefix+"-")
		if !found {
			continue
		}
		if n, err := strconv.ParseUint(rest, 10, 64); err == nil {
			c.Skip(n)
		}
	}
}
