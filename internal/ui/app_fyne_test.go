//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests exercise the Fyne canvas widget. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"image"
	"math"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"floorplanner/internal/domain"
	"floorplanner/internal/planner"
)

func newCanvas(t *testing.T) (*PlanCanvas, *planner.Editor) {
	t.Helper()
	test.NewTempApp(t)
	e := planner.New(planner.Options{})
	e.Scene().Mount(800, 600)
	return NewPlanCanvas(e), e
}

func TestPlanCanvas_ResizeMountsScene(t *testing.T) {
	pc, e := newCanvas(t)
	if sz := pc.PreferredSize(); sz.Width != 800 || sz.Height != 600 {
		t.Fatalf("unexpected PreferredSize: %v", sz)
	}
	it, _ := e.AddItem("stage")
	pc.Resize(fyne.NewSize(400, 300))
	if w, h := e.Scene().Size(); w != 400 || h != 300 {
		t.Fatalf("scene not remounted: %vx%v", w, h)
	}
	got, _ := e.Scene().Item(it.ID)
	if got.X+got.W/2 > 400 || got.Y+got.H/2 > 300 {
		t.Fatalf("item not clamped into resized canvas: %+v", got)
	}
}

func TestPlanCanvas_MouseDragMovesItem(t *testing.T) {
	pc, e := newCanvas(t)
	it, _ := e.AddItem("chair")
	down := &desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(400, 300)}, Button: desktop.MouseButtonPrimary}
	pc.MouseDown(down)
	pc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(450, 320)}})
	pc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(450, 320)}})
	got, _ := e.Scene().Item(it.ID)
	if got.X != 450 || got.Y != 320 {
		t.Fatalf("drag: got (%v,%v)", got.X, got.Y)
	}
	if !e.CanUndo() {
		t.Fatalf("drag should be undoable")
	}
}

func TestPlanCanvas_SecondaryButtonRotates(t *testing.T) {
	pc, e := newCanvas(t)
	it, _ := e.AddItem("table_rect")
	// Start right of the center, move below it: +90 degrees with y pointing down.
	pc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(500, 300)}, Button: desktop.MouseButtonSecondary})
	pc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(400, 400)}})
	pc.DragEnd()
	got, _ := e.Scene().Item(it.ID)
	if math.Abs(got.Rotation-90) > 1e-9 {
		t.Fatalf("rotate: got %v", got.Rotation)
	}
}

func TestOutline(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	outline(img, domain.PlacedItem{W: 20, H: 20, X: 50, Y: 50})
	if img.RGBAAt(38, 50) != selectionColor {
		t.Fatalf("expected outline at left edge")
	}
	if img.RGBAAt(50, 50).A != 0 {
		t.Fatalf("outline must not fill the interior")
	}
}
