/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Node is a hit-testable shape on the canvas. Nodes are built on demand from the
// scene's placed items; they carry no state of their own beyond geometry.

type Node interface {
	Bounds() Rect
	Transform() Affine2D
	SetTransform(Affine2D)
	Hit(p Pt) bool
}

type baseNode struct {
	xf Affine2D
}

func (b *baseNode) Transform() Affine2D     { return b.xf }
func (b *baseNode) SetTransform(m Affine2D) { b.xf = m }

// RectNode is an axis-aligned rectangle before transform.
type RectNode struct {
	baseNode
	rect Rect
}

func NewRect(r Rect) *RectNode {
	return &RectNode{baseNode: baseNode{xf: Identity}, rect: r}
}

func (n *RectNode) Bounds() Rect { return transformedBounds(n.xf, n.rect) }

func (n *RectNode) Hit(p Pt) bool {
	q := n.xf.Invert().Apply(p)
	return n.rect.Contains(q)
}

// EllipseNode represents an ellipse inscribed in rect.
type EllipseNode struct {
	baseNode
	rect Rect
}

func NewEllipse(r Rect) *EllipseNode {
	return &EllipseNode{baseNode: baseNode{xf: Identity}, rect: r}
}

// Bounds uses the transformed corners of the enclosing rect, which is exact for
// circles and slightly loose for rotated ellipses.
func (n *EllipseNode) Bounds() Rect { return transformedBounds(n.xf, n.rect) }

func (n *EllipseNode) Hit(p Pt) bool {
	q := n.xf.Invert().Apply(p)
	// point-in-ellipse: ((x-cx)/rx)^2 + ((y-cy)/ry)^2 <= 1
	rx := n.rect.W / 2
	ry := n.rect.H / 2
	if rx == 0 || ry == 0 {
		return false
	}
	c := n.rect.Center()
	dx := (q.X - c.X) / rx
	dy := (q.Y - c.Y) / ry
	return dx*dx+dy*dy <= 1
}

// ItemNode builds the hit shape of a w×h item centered at (x,y) rotated by deg.
// Round items are ellipses; everything else is a rectangle.
func ItemNode(round bool, x, y, w, h, deg float64) Node {
	local := CenteredRect(Pt{}, w, h)
	var n Node
	if round {
		n = NewEllipse(local)
	} else {
		n = NewRect(local)
	}
	n.SetTransform(Placement(x, y, deg))
	return n
}

// Group is a container for child nodes with its own transform.
type Group struct {
	baseNode
	Children []Node
}

func NewGroup(children ...Node) *Group {
	g := &Group{baseNode: baseNode{xf: Identity}}
	g.Children = append(g.Children, children...)
	return g
}

func (g *Group) Bounds() Rect {
	var b Rect
	first := true
	for _, c := range g.Children {
		cb := transformedBounds(g.xf, c.Bounds())
		if first {
			b = cb
			first = false
		} else {
			b = b.Union(cb)
		}
	}
	return b
}

func (g *Group) Hit(p Pt) bool { return g.HitIndex(p) >= 0 }

// HitIndex returns the index of the top-most (last) child containing p, or -1.
func (g *Group) HitIndex(p Pt) int {
	q := g.xf.Invert().Apply(p)
	for i := len(g.Children) - 1; i >= 0; i-- {
		if g.Children[i].Hit(q) {
			return i
		}
	}
	return -1
}

// transformedBounds returns the bounds of the four transformed corners of r.
func transformedBounds(m Affine2D, r Rect) Rect {
	corners := [4]Pt{{r.X, r.Y}, {r.X + r.W, r.Y}, {r.X, r.Y + r.H}, {r.X + r.W, r.Y + r.H}}
	p0 := m.Apply(corners[0])
	minX, minY, maxX, maxY := p0.X, p0.Y, p0.X, p0.Y
	for _, c := range corners[1:] {
		p := m.Apply(c)
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
