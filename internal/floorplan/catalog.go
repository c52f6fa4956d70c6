/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package floorplan

import (
	"sort"

	"floorplanner/internal/domain"
)

// Prototypes is the catalog of placeable items keyed by prototype key.
// Several keys may share a type (three table variants, for instance).
var prototypes = map[string]domain.ItemPrototype{
	"table_small":    proto("table_small", domain.TypeTable, 80, 80, domain.ShapeRound, "#d4a373", "#8b5e34"),
	"table_large":    proto("table_large", domain.TypeTable, 120, 120, domain.ShapeRound, "#d4a373", "#8b5e34"),
	"table_rect":     proto("table_rect", domain.TypeTable, 160, 80, domain.ShapeRect, "#d4a373", "#8b5e34"),
	"chair":          proto("chair", domain.TypeChair, 30, 30, domain.ShapeSquare, "#6b7280", "#9ca3af"),
	"stage":          proto("stage", domain.TypeStage, 300, 80, domain.ShapeRect, "#7c3aed", "#a78bfa"),
	"light":          proto("light", domain.TypeLight, 24, 24, domain.ShapeRound, "#facc15", "#fde047"),
	"piano":          proto("piano", domain.TypePiano, 120, 80, domain.ShapeRect, "#111827", "#e5e7eb"),
	"dance_floor":    proto("dance_floor", domain.TypeDanceFloor, 240, 240, domain.ShapeSquare, "#f9a8d4", "#9d174d"),
	"drink_bar":      proto("drink_bar", domain.TypeDrinkBar, 200, 60, domain.ShapeRect, "#0ea5e9", "#0369a1"),
	"cake_table":     proto("cake_table", domain.TypeCakeTable, 80, 80, domain.ShapeRound, "#fbcfe8", "#be185d"),
	"head_table":     proto("head_table", domain.TypeHeadTable, 260, 70, domain.ShapeRect, "#b45309", "#f59e0b"),
	"walkway_carpet": proto("walkway_carpet", domain.TypeWalkwayCarpet, 60, 300, domain.ShapeRect, "#dc2626", "#991b1b"),
	"catering_stand": proto("catering_stand", domain.TypeCateringStand, 160, 60, domain.ShapeRect, "#16a34a", "#15803d"),
	"exit_door":      proto("exit_door", domain.TypeExitDoor, 80, 20, domain.ShapeRect, "#22c55e", "#4ade80"),
}

func proto(key string, t domain.ItemType, w, h float64, shape domain.Shape, light, dark string) domain.ItemPrototype {
	return domain.ItemPrototype{Key: key, Type: t, W: w, H: h, Shape: shape, Color: mustColor(light), DarkColor: mustColor(dark)}
}

func mustColor(s string) domain.Color {
	c, err := domain.ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Prototype looks up a prototype by key.
func Prototype(key string) (domain.ItemPrototype, bool) {
	p, ok := prototypes[key]
	return p, ok
}

// PrototypeForType returns the first prototype (by key order) of the given type.
func PrototypeForType(t domain.ItemType) (domain.ItemPrototype, bool) {
	for _, k := range PrototypeKeys() {
		if p := prototypes[k]; p.Type == t {
			return p, true
		}
	}
	return domain.ItemPrototype{}, false
}

// PrototypeKeys lists catalog keys in stable order.
func PrototypeKeys() []string {
	keys := make([]string, 0, len(prototypes))
	for k := range prototypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultTemplateID is used for new and reset scenes.
const DefaultTemplateID = "blank"

var templates = []domain.Template{
	{ID: "blank", Name: "Blank", Color: mustColor("#ffffff"), DarkColor: mustColor("#1f2937")},
	{ID: "ballroom", Name: "Ballroom", Color: mustColor("#fef3c7"), DarkColor: mustColor("#3f2d0c")},
	{ID: "garden", Name: "Garden", Color: mustColor("#dcfce7"), DarkColor: mustColor("#14301f")},
	{ID: "banquet_hall", Name: "Banquet Hall", Color: mustColor("#ede9fe"), DarkColor: mustColor("#2a1f47")},
	{ID: "beach", Name: "Beach", Color: mustColor("#fde68a"), DarkColor: mustColor("#3b3413")},
}

// Templates returns the background presets in display order.
func Templates() []domain.Template { return append([]domain.Template(nil), templates...) }

// LookupTemplate finds a template by id; unknown ids fall back to the default template.
func LookupTemplate(id string) (domain.Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return templates[0], false
}

// Labeled reports whether items of type t carry a text label when rasterized.
// Chairs and lights are too small to label.
func Labeled(t domain.ItemType) bool {
	return t != domain.TypeChair && t != domain.TypeLight
}
