/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	if !r.ContainsRect(in) || in.ContainsRect(r) {
		t.Fatalf("ContainsRect mismatch")
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	back := m.Invert().Apply(p)
	if !near(back.X, 1) || !near(back.Y, 1) {
		t.Fatalf("inverse did not round-trip: %+v", back)
	}
}

func TestRotatedHalfExtent_Formula(t *testing.T) {
	w, h := 300.0, 80.0
	for deg := 0.0; deg < 360; deg += 7.5 {
		rad := deg * math.Pi / 180
		wantW := (w*math.Abs(math.Cos(rad)) + h*math.Abs(math.Sin(rad))) / 2
		wantH := (w*math.Abs(math.Sin(rad)) + h*math.Abs(math.Cos(rad))) / 2
		if got := RotatedHalfExtent(w, h, deg, AxisW); math.Abs(got-wantW) > eps {
			t.Fatalf("deg=%v AxisW=%v want %v", deg, got, wantW)
		}
		if got := RotatedHalfExtent(w, h, deg, AxisH); math.Abs(got-wantH) > eps {
			t.Fatalf("deg=%v AxisH=%v want %v", deg, got, wantH)
		}
	}
}

func TestRotatedHalfExtent_QuarterTurns(t *testing.T) {
	w, h := 300.0, 80.0
	for _, deg := range []float64{0, 180} {
		if got := RotatedHalfExtent(w, h, deg, AxisW); !near(got, w/2) {
			t.Fatalf("deg=%v width half = %v", deg, got)
		}
		if got := RotatedHalfExtent(w, h, deg, AxisH); !near(got, h/2) {
			t.Fatalf("deg=%v height half = %v", deg, got)
		}
	}
	for _, deg := range []float64{90, 270} {
		if got := RotatedHalfExtent(w, h, deg, AxisW); !near(got, h/2) {
			t.Fatalf("deg=%v width half = %v", deg, got)
		}
		if got := RotatedHalfExtent(w, h, deg, AxisH); !near(got, w/2) {
			t.Fatalf("deg=%v height half = %v", deg, got)
		}
	}
}

func TestClampAxis(t *testing.T) {
	if got := ClampAxis(-50, 40, 400); got != 40 {
		t.Fatalf("low clamp = %v", got)
	}
	if got := ClampAxis(999, 40, 400); got != 360 {
		t.Fatalf("high clamp = %v", got)
	}
	if got := ClampAxis(200, 40, 400); got != 200 {
		t.Fatalf("in-range value changed: %v", got)
	}
	// infeasible: half=150 on a 250 canvas gives [150,100]; lower bound wins
	if got := ClampAxis(125, 150, 250); got != 150 {
		t.Fatalf("infeasible clamp = %v, want 150", got)
	}
}

func TestWrapDegreesAndAngle(t *testing.T) {
	cases := map[float64]float64{0: 0, 360: 0, 370: 10, -10: 350, -720: 0, 725: 5}
	for in, want := range cases {
		if got := WrapDegrees(in); !near(got, want) {
			t.Fatalf("WrapDegrees(%v) = %v, want %v", in, got, want)
		}
	}
	c := Pt{100, 100}
	if got := AngleDeg(c, Pt{100, 200}); !near(got, 90) {
		t.Fatalf("angle below center = %v", got)
	}
	if got := AngleDeg(c, Pt{0, 100}); !near(got, 180) {
		t.Fatalf("angle left of center = %v", got)
	}
}

func TestClampCenterKeepsRotatedBoundsInside(t *testing.T) {
	canvas := R(0, 0, 400, 300)
	for deg := 0.0; deg < 360; deg += 15 {
		x, y := ClampCenter(-1000, 5000, 120, 40, deg, canvas.W, canvas.H)
		b := RotatedBounds(Pt{x, y}, 120, 40, deg)
		if b.X < -eps || b.Y < -eps || b.X+b.W > canvas.W+eps || b.Y+b.H > canvas.H+eps {
			t.Fatalf("deg=%v bounds escaped canvas: %+v", deg, b)
		}
	}
}

func TestGeometry_Union_MinMax_FloatRound(t *testing.T) {
	a := R(0, 0, 10, 10)
	b := R(5, -5, 5, 10)
	u := a.Union(b)
	if u.X != 0 || u.Y != -5 || u.W != 10 || u.H != 15 {
		t.Fatalf("unexpected union: %+v", u)
	}
	if m := a.Max(); m.X != 10 || m.Y != 10 {
		t.Fatalf("max wrong: %+v", m)
	}
	if FloatRound(1.23456, 2) != 1.23 {
		t.Fatalf("float round fail")
	}
	if FloatRound(1.23456, -1) != 1.23456 {
		t.Fatalf("negative places should be no-op")
	}
}
