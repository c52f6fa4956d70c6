/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestRectNode_HitAndBounds(t *testing.T) {
	n := NewRect(R(0, 0, 100, 50))
	n.SetTransform(Translate(10, 20))
	if !n.Hit(Pt{50 + 10, 25 + 20}) {
		t.Fatalf("expected hit after translation")
	}
	b := n.Bounds()
	if b.X != 10 || b.Y != 20 || b.W != 100 || b.H != 50 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestEllipseNode_Hit(t *testing.T) {
	n := NewEllipse(R(0, 0, 100, 100))
	if !n.Hit(Pt{50, 50}) {
		t.Fatalf("center should hit")
	}
	if n.Hit(Pt{2, 2}) {
		t.Fatalf("corner of the bounding box is outside the circle")
	}
}

func TestItemNode_RotatedRect(t *testing.T) {
	// 300x80 stage at (200,200) rotated a quarter turn stands upright.
	n := ItemNode(false, 200, 200, 300, 80, 90)
	if !n.Hit(Pt{200, 60}) {
		t.Fatalf("expected hit near the rotated top end")
	}
	if n.Hit(Pt{320, 200}) {
		t.Fatalf("point right of the upright stage should miss")
	}
	b := n.Bounds()
	if !near(b.W, 80) || !near(b.H, 300) {
		t.Fatalf("unexpected rotated bounds: %+v", b)
	}
}

func TestGroup_HitIndexTopMost(t *testing.T) {
	g := NewGroup(
		ItemNode(false, 50, 50, 100, 100, 0),
		ItemNode(true, 60, 60, 40, 40, 0),
	)
	if got := g.HitIndex(Pt{60, 60}); got != 1 {
		t.Fatalf("expected top-most child 1, got %d", got)
	}
	if got := g.HitIndex(Pt{5, 5}); got != 0 {
		t.Fatalf("expected child 0, got %d", got)
	}
	if got := g.HitIndex(Pt{500, 500}); got != -1 {
		t.Fatalf("expected miss, got %d", got)
	}
	b := g.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 100 || b.H != 100 {
		t.Fatalf("unexpected group bounds: %+v", b)
	}
}
