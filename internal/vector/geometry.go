/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry and transforms for the floor-plan canvas.
// Coordinates are canvas-local pixels with the y axis pointing down, so a
// positive rotation turns clockwise on screen.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// CenteredRect returns the rectangle of size w×h centered on c.
func CenteredRect(c Pt, w, h float64) Rect { return Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// ContainsRect reports whether o lies fully inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Invert computes the inverse of an affine matrix. A singular matrix yields Identity.
func (m Affine2D) Invert() Affine2D {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity
	}
	invDet := 1 / det
	return Affine2D{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
		E: (m.C*m.F - m.D*m.E) * invDet,
		F: (m.B*m.E - m.A*m.F) * invDet,
	}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }
func Rotate(rad float64) Affine2D {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return Affine2D{A: c, B: s, C: -s, D: c}
}

// Placement returns the transform mapping item-local coordinates (origin at the
// item center) to canvas coordinates for an item centered at (x,y) rotated by deg.
func Placement(x, y, deg float64) Affine2D {
	return Translate(x, y).Mul(Rotate(Radians(deg)))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// WrapDegrees maps any angle into [0,360).
func WrapDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// -0 and rounding of tiny negatives can land exactly on 360
	if d >= 360 {
		d = 0
	}
	return d
}

// AngleDeg is the angle of the vector center->p in degrees, in (-180,180].
func AngleDeg(center, p Pt) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
}

// Axis selects the horizontal or vertical extent of a rotated box.
type Axis uint8

const (
	AxisW Axis = iota
	AxisH
)

// RotatedHalfExtent returns half the axis-aligned bounding box extent, along axis,
// of a w×h rectangle rotated by deg degrees about its center.
func RotatedHalfExtent(w, h, deg float64, axis Axis) float64 {
	rad := Radians(deg)
	c := math.Abs(math.Cos(rad))
	s := math.Abs(math.Sin(rad))
	if axis == AxisW {
		return (w*c + h*s) / 2
	}
	return (w*s + h*c) / 2
}

// ClampAxis keeps a center coordinate v so that [v-half, v+half] lies within [0, extent].
// When the span does not fit (half > extent-half) the lower bound wins.
func ClampAxis(v, half, extent float64) float64 {
	return max(half, min(extent-half, v))
}

// ClampCenter clamps the center (x,y) of a w×h item rotated by deg so its rotated
// bounding box stays inside a cw×ch canvas. Axes are clamped independently.
func ClampCenter(x, y, w, h, deg, cw, ch float64) (float64, float64) {
	hw := RotatedHalfExtent(w, h, deg, AxisW)
	hh := RotatedHalfExtent(w, h, deg, AxisH)
	return ClampAxis(x, hw, cw), ClampAxis(y, hh, ch)
}

// RotatedBounds returns the axis-aligned bounds of a w×h box centered at c rotated by deg.
func RotatedBounds(c Pt, w, h, deg float64) Rect {
	hw := RotatedHalfExtent(w, h, deg, AxisW)
	hh := RotatedHalfExtent(w, h, deg, AxisH)
	return Rect{X: c.X - hw, Y: c.Y - hh, W: 2 * hw, H: 2 * hh}
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
