/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interaction turns pointer and touch events into scene mutations:
// press-and-drag moves an item, a modifier-held press rotates it, and a
// two-finger touch rotates the selected item.
package interaction

import (
	"floorplanner/internal/floorplan"
	"floorplanner/internal/vector"
)

// DefaultThreshold is how far (px, on either axis) a pressed pointer must travel
// before a pending press becomes a drag.
const DefaultThreshold = 5

// Mode is the state of the pointer session.
type Mode uint8

const (
	Idle Mode = iota
	PendingDrag
	Dragging
	Rotating
)

func (m Mode) String() string {
	switch m {
	case PendingDrag:
		return "pending-drag"
	case Dragging:
		return "dragging"
	case Rotating:
		return "rotating"
	default:
		return "idle"
	}
}

// PointerEvent is a canvas-local pointer sample.
type PointerEvent struct {
	PointerID int
	Pos       vector.Pt
	// Rotate is true while the rotate modifier (e.g. a held key) is active.
	Rotate bool
}

// Touch is one active touch point.
type Touch struct {
	ID  int
	Pos vector.Pt
}

// Session is the ephemeral state of an in-progress pointer manipulation.
type Session struct {
	Mode      Mode
	TargetID  string
	PointerID int
	Start     vector.Pt
	// Offset is pointer minus item center at press time.
	Offset    vector.Pt
	LastAngle float64
	// Passed is set once the drag threshold was exceeded.
	Passed bool
	// mutated is set after the first scene change of this gesture.
	mutated bool
}

// PointerCapture routes all further events of a pointer to the canvas.
type PointerCapture interface {
	Capture(pointerID int)
	Release(pointerID int)
}

// GestureObserver is told right before a gesture first mutates the scene and
// when it ends. The editor uses it to checkpoint history.
type GestureObserver interface {
	OnGestureStart(targetID string)
	OnGestureEnd(targetID string)
}

// Options tune a Controller. Zero values select defaults.
type Options struct {
	Threshold float64
	Capture   PointerCapture
	Observer  GestureObserver
}

type touchGesture struct {
	active    bool
	ids       [2]int
	target    string
	lastAngle float64
	mutated   bool
}

// Controller is the pointer/touch state machine over a Scene. Like the scene it
// is driven from a single event goroutine.
type Controller struct {
	scene     *floorplan.Scene
	threshold float64
	capture   PointerCapture
	observer  GestureObserver

	s     Session
	touch touchGesture
}

func New(scene *floorplan.Scene, opts Options) *Controller {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Controller{scene: scene, threshold: opts.Threshold, capture: opts.Capture, observer: opts.Observer}
}

// State returns the current pointer mode.
func (c *Controller) State() Mode { return c.s.Mode }

// Session returns a copy of the current pointer session.
func (c *Controller) Session() Session { return c.s }

// TouchActive reports whether a two-finger rotate gesture is in progress.
func (c *Controller) TouchActive() bool { return c.touch.active }

// PointerDown starts a session on itemID. A stale id is a no-op. A press while
// another pointer is tracked replaces that session.
func (c *Controller) PointerDown(itemID string, ev PointerEvent) bool {
	it, ok := c.scene.Item(itemID)
	if !ok {
		return false
	}
	if c.s.Mode != Idle {
		c.end()
	}
	c.scene.Select(itemID)
	if c.capture != nil {
		c.capture.Capture(ev.PointerID)
	}
	center := vector.Pt{X: it.X, Y: it.Y}
	c.s = Session{TargetID: itemID, PointerID: ev.PointerID, Start: ev.Pos}
	if ev.Rotate {
		c.s.Mode = Rotating
		c.s.LastAngle = vector.AngleDeg(center, ev.Pos)
		return true
	}
	c.s.Mode = PendingDrag
	c.s.Offset = vector.Pt{X: ev.Pos.X - center.X, Y: ev.Pos.Y - center.Y}
	return true
}

// PointerDownAt hit-tests the scene and presses the top-most item under the
// pointer. A miss clears the selection.
func (c *Controller) PointerDownAt(ev PointerEvent) bool {
	id, ok := c.scene.HitTest(ev.Pos)
	if !ok {
		c.scene.Select("")
		return false
	}
	return c.PointerDown(id, ev)
}

// PointerMove advances the session. It reports whether the scene changed.
func (c *Controller) PointerMove(ev PointerEvent) bool {
	if c.s.Mode == Idle || ev.PointerID != c.s.PointerID {
		return false
	}
	it, ok := c.scene.Item(c.s.TargetID)
	if !ok {
		// target removed mid-gesture
		c.end()
		return false
	}
	switch c.s.Mode {
	case PendingDrag:
		dx, dy := ev.Pos.X-c.s.Start.X, ev.Pos.Y-c.s.Start.Y
		if abs(dx) <= c.threshold && abs(dy) <= c.threshold {
			return false
		}
		c.s.Mode = Dragging
		c.s.Passed = true
		fallthrough
	case Dragging:
		c.beforeMutation()
		return c.scene.MoveItemTo(c.s.TargetID, ev.Pos.X-c.s.Offset.X, ev.Pos.Y-c.s.Offset.Y)
	case Rotating:
		angle := vector.AngleDeg(vector.Pt{X: it.X, Y: it.Y}, ev.Pos)
		delta := vector.WrapDegrees(angle - c.s.LastAngle)
		c.s.LastAngle = angle
		if delta == 0 {
			return false
		}
		c.beforeMutation()
		return c.scene.SetItemRotation(c.s.TargetID, it.Rotation+delta)
	}
	return false
}

// PointerUp ends the session for the tracked pointer.
func (c *Controller) PointerUp(ev PointerEvent) {
	if c.s.Mode != Idle && ev.PointerID == c.s.PointerID {
		c.end()
	}
}

// PointerCancel behaves like PointerUp; whatever was last applied is kept.
func (c *Controller) PointerCancel(ev PointerEvent) { c.PointerUp(ev) }

// TouchStart begins a two-finger rotate when exactly two touches are down and an
// item is selected. Any other count clears the gesture.
func (c *Controller) TouchStart(touches []Touch) {
	if len(touches) != 2 {
		c.endTouch()
		return
	}
	sel := c.scene.SelectedID()
	if sel == "" {
		return
	}
	if c.s.Mode != Idle {
		c.end()
	}
	c.touch = touchGesture{
		active:    true,
		ids:       [2]int{touches[0].ID, touches[1].ID},
		target:    sel,
		lastAngle: vector.AngleDeg(touches[0].Pos, touches[1].Pos),
	}
}

// TouchMove applies the change in angle of the two-finger line as a rotation delta.
func (c *Controller) TouchMove(touches []Touch) bool {
	if !c.touch.active {
		return false
	}
	if len(touches) != 2 {
		c.endTouch()
		return false
	}
	p0, ok0 := findTouch(touches, c.touch.ids[0])
	p1, ok1 := findTouch(touches, c.touch.ids[1])
	if !ok0 || !ok1 {
		// finger set changed; restart from the new pair
		c.endTouch()
		c.TouchStart(touches)
		return false
	}
	it, ok := c.scene.Item(c.touch.target)
	if !ok {
		c.endTouch()
		return false
	}
	angle := vector.AngleDeg(p0, p1)
	delta := vector.WrapDegrees(angle - c.touch.lastAngle)
	c.touch.lastAngle = angle
	if delta == 0 {
		return false
	}
	if !c.touch.mutated {
		c.touch.mutated = true
		if c.observer != nil {
			c.observer.OnGestureStart(c.touch.target)
		}
	}
	return c.scene.SetItemRotation(c.touch.target, it.Rotation+delta)
}

// TouchEnd is called with the touches still down; fewer than two ends the gesture.
func (c *Controller) TouchEnd(remaining []Touch) {
	if len(remaining) < 2 {
		c.endTouch()
	}
}

// Reset drops any session without notifying observers, e.g. when the scene is replaced.
func (c *Controller) Reset() {
	if c.s.Mode != Idle && c.capture != nil {
		c.capture.Release(c.s.PointerID)
	}
	c.s = Session{}
	c.touch = touchGesture{}
}

func (c *Controller) beforeMutation() {
	if c.s.mutated {
		return
	}
	c.s.mutated = true
	if c.observer != nil {
		c.observer.OnGestureStart(c.s.TargetID)
	}
}

func (c *Controller) end() {
	if c.capture != nil {
		c.capture.Release(c.s.PointerID)
	}
	if c.s.mutated && c.observer != nil {
		c.observer.OnGestureEnd(c.s.TargetID)
	}
	c.s = Session{}
}

func (c *Controller) endTouch() {
	if c.touch.active && c.touch.mutated && c.observer != nil {
		c.observer.OnGestureEnd(c.touch.target)
	}
	c.touch = touchGesture{}
}

func findTouch(ts []Touch, id int) (vector.Pt, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t.Pos, true
		}
	}
	return vector.Pt{}, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
