/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"floorplanner/internal/domain"
	"floorplanner/internal/floorplan"
)

var (
	// ErrNoDraft is returned when no draft is stored under a key.
	ErrNoDraft = errors.New("no draft found")
	// ErrCorruptDraft is returned when stored bytes are not a valid draft.
	ErrCorruptDraft = errors.New("draft is corrupt")
	// ErrInvalidKey rejects keys that cannot name a draft.
	ErrInvalidKey = errors.New("invalid draft key")
)

//go:embed draft.schema.json
var draftSchema []byte

var draftSchemaLoader = gojsonschema.NewBytesLoader(draftSchema)

// ValidateDraftJSON checks raw bytes against the embedded draft schema.
func ValidateDraftJSON(data []byte) error {
	res, err := gojsonschema.Validate(draftSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptDraft, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrCorruptDraft, strings.Join(msgs, "; "))
	}
	return nil
}

// EncodeDraft marshals a draft in human-readable form.
func EncodeDraft(d domain.Draft) ([]byte, error) {
	if d.Items == nil {
		d.Items = []domain.PlacedItem{}
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeDraft validates and unmarshals a draft, then fills gaps left by older
// drafts: missing rotation is 0, missing template is the default, missing shape
// or colors come from the item type's prototype.
func DecodeDraft(data []byte) (domain.Draft, error) {
	if err := ValidateDraftJSON(data); err != nil {
		return domain.Draft{}, err
	}
	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.Draft{}, fmt.Errorf("%w: %v", ErrCorruptDraft, err)
	}
	migrateDraft(&d)
	return d, nil
}

func migrateDraft(d *domain.Draft) {
	if d.Template == "" {
		d.Template = floorplan.DefaultTemplateID
	}
	if d.Items == nil {
		d.Items = []domain.PlacedItem{}
	}
	if d.BackgroundImage != nil && *d.BackgroundImage == "" {
		d.BackgroundImage = nil
	}
	for i := range d.Items {
		it := &d.Items[i]
		// absent and null rotation both decode to 0
		p, ok := floorplan.PrototypeForType(it.Type)
		if !ok {
			continue
		}
		if it.Shape == "" {
			it.Shape = p.Shape
		}
		if it.Color == (domain.Color{}) {
			it.Color = p.Color
		}
		if it.DarkColor == (domain.Color{}) {
			it.DarkColor = p.DarkColor
		}
	}
}

// validKey accepts keys usable as a file name component.
func validKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\:*?"<>|`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
