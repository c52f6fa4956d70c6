/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package floorplan

import (
	"math"
	"testing"

	"floorplanner/internal/domain"
	"floorplanner/internal/vector"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func mounted(w, h float64) *Scene {
	s := NewScene(nil)
	s.Mount(w, h)
	return s
}

func TestAddItemPlacesAtCenterAndSelects(t *testing.T) {
	s := mounted(400, 400)
	it, ok := s.AddItem("table_small")
	if !ok {
		t.Fatalf("AddItem failed")
	}
	if it.X != 200 || it.Y != 200 || it.W != 80 || it.H != 80 || it.Rotation != 0 {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.Type != domain.TypeTable || it.Shape != domain.ShapeRound {
		t.Fatalf("unexpected type/shape: %s/%s", it.Type, it.Shape)
	}
	if s.SelectedID() != it.ID || !s.Dirty() {
		t.Fatalf("expected selected and dirty")
	}
	if it.ID != "item-1" {
		t.Fatalf("unexpected id %q", it.ID)
	}
}

func TestAddItemNoOps(t *testing.T) {
	s := NewScene(nil)
	if _, ok := s.AddItem("chair"); ok {
		t.Fatalf("unmounted scene must not accept items")
	}
	s.Mount(400, 400)
	if _, ok := s.AddItem("spaceship"); ok {
		t.Fatalf("unknown key must be a no-op")
	}
	if s.Len() != 0 || s.Dirty() {
		t.Fatalf("scene changed on no-op")
	}
}

func TestScaleAndRotateSelected(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("table_small")
	s.ScaleSelected(1.1)
	got, _ := s.Item(it.ID)
	if !near(got.W, 88) || !near(got.H, 88) {
		t.Fatalf("scale: got %vx%v", got.W, got.H)
	}
	if got.X != 200 || got.Y != 200 {
		t.Fatalf("scale moved the item to (%v,%v)", got.X, got.Y)
	}
	s.RotateSelected(45)
	got, _ = s.Item(it.ID)
	if got.Rotation != 45 {
		t.Fatalf("rotation = %v", got.Rotation)
	}
	if got.X != 200 || got.Y != 200 {
		t.Fatalf("rotate moved the item to (%v,%v)", got.X, got.Y)
	}
	hw := vector.RotatedHalfExtent(got.W, got.H, got.Rotation, vector.AxisW)
	if got.X-hw < 0 || got.X+hw > 400 {
		t.Fatalf("rotated bounds outside canvas: x=%v half=%v", got.X, hw)
	}
}

func TestScaleFloorsAtMinimum(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("chair")
	for i := 0; i < 20; i++ {
		s.ScaleSelected(0.5)
	}
	got, _ := s.Item(it.ID)
	if got.W != MinItemSize || got.H != MinItemSize {
		t.Fatalf("expected floor %v, got %vx%v", MinItemSize, got.W, got.H)
	}
}

func TestRotatedStageFitsLargeCanvas(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("stage")
	s.RotateSelected(90)
	got, _ := s.Item(it.ID)
	if !near(got.X, 200) || !near(got.Y, 200) {
		t.Fatalf("expected no clamp, got (%v,%v)", got.X, got.Y)
	}
	if !near(vector.RotatedHalfExtent(got.W, got.H, got.Rotation, vector.AxisH), 150) {
		t.Fatalf("unexpected vertical half-extent")
	}
}

func TestRotatedStagePinnedOnSmallCanvas(t *testing.T) {
	s := mounted(250, 250)
	it, _ := s.AddItem("stage")
	s.RotateSelected(90)
	got, _ := s.Item(it.ID)
	// y range is [150,100], infeasible: the lower bound wins
	if !near(got.Y, 150) {
		t.Fatalf("expected y pinned to 150, got %v", got.Y)
	}
	// the unrotated stage was already pinned on x when placed
	if !near(got.X, 150) {
		t.Fatalf("expected x 150, got %v", got.X)
	}
}

func TestMountReclampsExistingItems(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("stage")
	s.RotateSelected(90)
	s.MarkClean()
	s.Mount(250, 250)
	got, _ := s.Item(it.ID)
	if !near(got.X, 200) || !near(got.Y, 150) || !s.Dirty() {
		t.Fatalf("expected re-clamp to (200,150), got (%v,%v)", got.X, got.Y)
	}
}

func TestNoSelectionLeavesDirtyUnchanged(t *testing.T) {
	s := mounted(400, 400)
	if s.ScaleSelected(1.1) || s.RotateSelected(15) || s.RemoveSelected() {
		t.Fatalf("expected no-ops without selection")
	}
	if s.Dirty() {
		t.Fatalf("no-op dirtied the scene")
	}
}

func TestFullTurnRotationIsIdentity(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("table_rect")
	s.RotateSelected(30)
	before, _ := s.Item(it.ID)
	s.RotateSelected(360)
	after, _ := s.Item(it.ID)
	if !near(before.Rotation, after.Rotation) || before.X != after.X || before.Y != after.Y {
		t.Fatalf("360 changed item: %+v -> %+v", before, after)
	}
	s.RotateSelected(-45)
	after, _ = s.Item(it.ID)
	if !near(after.Rotation, 345) {
		t.Fatalf("expected wrap to 345, got %v", after.Rotation)
	}
}

func TestRemoveSelectedClearsSelection(t *testing.T) {
	s := mounted(400, 400)
	a, _ := s.AddItem("chair")
	b, _ := s.AddItem("chair")
	s.Select(a.ID)
	if !s.RemoveSelected() {
		t.Fatalf("remove failed")
	}
	if s.SelectedID() != "" || s.Len() != 1 {
		t.Fatalf("unexpected state after remove")
	}
	if _, ok := s.Item(b.ID); !ok {
		t.Fatalf("wrong item removed")
	}
}

func TestMoveItemToClamps(t *testing.T) {
	s := mounted(400, 300)
	it, _ := s.AddItem("table_small")
	s.MoveItemTo(it.ID, -100, 1000)
	got, _ := s.Item(it.ID)
	if got.X != 40 || got.Y != 260 {
		t.Fatalf("clamp: got (%v,%v)", got.X, got.Y)
	}
}

func TestEditItemPatch(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("table_small")
	s.MarkClean()
	typ := domain.TypeDrinkBar
	w, rot := 4.0, -90.0
	if !s.EditItem(it.ID, ItemPatch{Type: &typ, W: &w, Rotation: &rot}) {
		t.Fatalf("edit failed")
	}
	got, _ := s.Item(it.ID)
	p, _ := PrototypeForType(domain.TypeDrinkBar)
	if got.Type != typ || got.Shape != p.Shape || got.Color != p.Color {
		t.Fatalf("type change did not adopt prototype: %+v", got)
	}
	if got.W != MinItemSize || got.Rotation != 270 || !s.Dirty() {
		t.Fatalf("unexpected patch result: %+v", got)
	}
	bad := domain.ItemType("spaceship")
	if s.EditItem(it.ID, ItemPatch{Type: &bad}) {
		t.Fatalf("unknown type accepted")
	}
	if s.EditItem("nope", ItemPatch{W: &w}) {
		t.Fatalf("unknown id accepted")
	}
}

func TestHitTestTopMost(t *testing.T) {
	s := mounted(400, 400)
	a, _ := s.AddItem("table_large")
	b, _ := s.AddItem("chair")
	id, ok := s.HitTest(vector.Pt{X: 200, Y: 200})
	if !ok || id != b.ID {
		t.Fatalf("expected top-most %s, got %s", b.ID, id)
	}
	s.MoveItemTo(b.ID, 20, 20)
	id, _ = s.HitTest(vector.Pt{X: 200, Y: 200})
	if id != a.ID {
		t.Fatalf("expected %s, got %s", a.ID, id)
	}
	if _, ok := s.HitTest(vector.Pt{X: 399, Y: 399}); ok {
		t.Fatalf("expected miss on empty area")
	}
}

func TestDraftReplaceRoundTrip(t *testing.T) {
	s := mounted(400, 400)
	s.SetTemplate("garden")
	s.AddItem("table_small")
	s.AddItem("stage")
	s.RotateSelected(30)
	s.SetBackgroundImage("data:image/png;base64,AAAA")
	d := s.Draft()

	r := mounted(400, 400)
	r.Replace(d)
	if r.Dirty() || r.SelectedID() != "" {
		t.Fatalf("replace should leave a clean scene without selection")
	}
	if r.Template() != "garden" || r.BackgroundImage() != "data:image/png;base64,AAAA" {
		t.Fatalf("template/background lost")
	}
	items := r.Items()
	if len(items) != 2 || items[1].Rotation != 30 || items[1].X != d.Items[1].X {
		t.Fatalf("items differ: %+v", items)
	}
	next, _ := r.AddItem("chair")
	if next.ID != "item-3" {
		t.Fatalf("counter must skip loaded ids, got %s", next.ID)
	}
}

func TestResetAndTemplates(t *testing.T) {
	s := mounted(400, 400)
	if s.SetTemplate("moon") {
		t.Fatalf("unknown template accepted")
	}
	s.AddItem("light")
	s.Reset("moon")
	if s.Template() != DefaultTemplateID || s.Len() != 0 || s.Dirty() {
		t.Fatalf("unexpected reset state")
	}
	if d := s.Draft(); d.Items == nil || d.BackgroundImage != nil {
		t.Fatalf("empty draft should have items [] and null background: %+v", d)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := mounted(400, 400)
	it, _ := s.AddItem("piano")
	blob, err := s.EncodeSnapshot()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s.RemoveSelected()
	s.MarkClean()
	if err := s.RestoreSnapshot(blob); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, ok := s.Item(it.ID)
	if !ok || got.Color != it.Color || s.SelectedID() != it.ID || !s.Dirty() {
		t.Fatalf("snapshot not restored: %+v", got)
	}
	if err := s.RestoreSnapshot([]byte{0xc1}); err == nil {
		t.Fatalf("expected error for garbage snapshot")
	}
}

func TestUUIDGenerator(t *testing.T) {
	s := NewScene(UUIDIDs{})
	s.Mount(100, 100)
	a, _ := s.AddItem("chair")
	b, _ := s.AddItem("chair")
	if len(a.ID) != 36 || a.ID == b.ID {
		t.Fatalf("unexpected uuids %q %q", a.ID, b.ID)
	}
}
