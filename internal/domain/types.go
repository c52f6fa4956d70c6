/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the floor-plan core, its storage
// adapters and the backend. JSON tags follow the draft format persisted by the
// web client so drafts stay interchangeable.

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ItemType is the kind of furniture or fixture a placed item represents.
type ItemType string

const (
	TypeTable         ItemType = "table"
	TypeChair         ItemType = "chair"
	TypeStage         ItemType = "stage"
	TypeLight         ItemType = "light"
	TypePiano         ItemType = "piano"
	TypeDanceFloor    ItemType = "dance_floor"
	TypeDrinkBar      ItemType = "drink_bar"
	TypeCakeTable     ItemType = "cake_table"
	TypeHeadTable     ItemType = "head_table"
	TypeWalkwayCarpet ItemType = "walkway_carpet"
	TypeCateringStand ItemType = "catering_stand"
	TypeExitDoor      ItemType = "exit_door"
)

// ItemTypes lists every known type in display order.
var ItemTypes = []ItemType{
	TypeTable, TypeChair, TypeStage, TypeLight, TypePiano, TypeDanceFloor,
	TypeDrinkBar, TypeCakeTable, TypeHeadTable, TypeWalkwayCarpet, TypeCateringStand, TypeExitDoor,
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	for _, k := range ItemTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Label turns the type into display text: underscores become spaces and each word is title-cased.
func (t ItemType) Label() string {
	words := strings.Fields(strings.ReplaceAll(string(t), "_", " "))
	for i, w := range words {
		r, n := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[n:]
	}
	return strings.Join(words, " ")
}

// Shape selects the outline used when drawing an item.
type Shape string

const (
	ShapeRound  Shape = "round"
	ShapeSquare Shape = "square"
	ShapeRect   Shape = "rect"
)

// Color is an sRGB color with alpha. Its text form is #rrggbb or #rrggbbaa.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

// Hex renders the color as #rrggbb, or #rrggbbaa when not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseColor parses #rgb, #rrggbb or #rrggbbaa.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c := Color{R: b[0], G: b[1], B: b[2], A: 255}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Luminance returns the relative luminance in [0,1] (Rec. 709 weights, no gamma).
func (c Color) Luminance() float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

// ItemPrototype is the immutable template an item is created from.
type ItemPrototype struct {
	Key       string   `json:"key"`
	Type      ItemType `json:"type"`
	W         float64  `json:"w"`
	H         float64  `json:"h"`
	Shape     Shape    `json:"shape"`
	Color     Color    `json:"color"`
	DarkColor Color    `json:"darkColor"`
}

// PlacedItem is a prototype instantiated on the canvas. X and Y are the center
// in canvas-local pixels; Rotation is in degrees within [0,360).
type PlacedItem struct {
	ID        string   `json:"id"`
	Type      ItemType `json:"type"`
	Shape     Shape    `json:"shape"`
	Color     Color    `json:"color"`
	DarkColor Color    `json:"darkColor"`
	W         float64  `json:"w"`
	H         float64  `json:"h"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Rotation  float64  `json:"rotation"`
}

// Fill returns the mode-appropriate fill color.
func (it PlacedItem) Fill(dark bool) Color {
	if dark {
		return it.DarkColor
	}
	return it.Color
}

// Template is a background preset for the canvas.
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     Color  `json:"color"`
	DarkColor Color  `json:"darkColor"`
}

// Draft is the persisted scene: the local draft format.
type Draft struct {
	Template        string       `json:"template"`
	Items           []PlacedItem `json:"items"`
	BackgroundImage *string      `json:"backgroundImage"`
}

// FloorPlanRecord is the metadata written next to an uploaded floor-plan bitmap.
type FloorPlanRecord struct {
	EventID     string    `json:"eventId"`
	RecipientID string    `json:"recipientId"`
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploadedAt"`
	UploadedBy  string    `json:"uploadedBy"`
}

// Event is the planner-owned entity a floor plan belongs to.
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date,omitempty"`
	PlannerID string `json:"plannerId,omitempty"`
}

// Vendor is a potential recipient of an uploaded floor plan.
type Vendor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}
