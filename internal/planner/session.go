/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package planner

import (
	"context"
	"fmt"

	"floorplanner/internal/backend"
	"floorplanner/internal/config"
	"floorplanner/internal/export"
	"floorplanner/internal/floorplan"
	"floorplanner/internal/storage"
	"floorplanner/internal/undo"
)

// Session is an Editor opened from the user config together with the
// resources it holds.
type Session struct {
	*Editor
	drafts storage.DraftStore
}

// OpenSession builds an Editor from cfg: the configured draft store, a backend
// client carrying token when a base URL is set, and the canvas defaults. The
// scene is mounted at the configured canvas size.
func OpenSession(cfg config.AppConfig, token string) (*Session, error) {
	drafts, err := storage.Open(cfg.Drafts.Driver, cfg.Drafts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open drafts: %w", err)
	}
	var remote Remote
	if cfg.Backend.BaseURL != "" {
		remote = backend.NewClientFromConfig(cfg.Backend, token)
	}
	e := New(Options{
		Drafts:          drafts,
		Remote:          remote,
		History:         undo.NewManager(undo.Config{}),
		IDs:             floorplan.UUIDIDs{},
		UserID:          cfg.General.UserID,
		DefaultTemplate: cfg.General.DefaultTemplate,
		DragThreshold:   cfg.Canvas.DragThreshold,
		Raster: export.RasterOptions{
			Scale:       cfg.Canvas.Supersample,
			Dark:        cfg.General.Dark(),
			GridSpacing: float64(cfg.Canvas.GridSpacing),
		},
	})
	e.Scene().Mount(float64(cfg.Canvas.Width), float64(cfg.Canvas.Height))
	e.scene.MarkClean()
	return &Session{Editor: e, drafts: drafts}, nil
}

// SetDark switches the export color mode.
func (e *Editor) SetDark(dark bool) { e.raster.Dark = dark }

// Dark reports the export color mode.
func (e *Editor) Dark() bool { return e.raster.Dark }

func (s *Session) Close() error { return s.drafts.Close() }

// DraftKeys lists the owners with a saved draft.
func (s *Session) DraftKeys(ctx context.Context) ([]string, error) { return s.drafts.Keys(ctx) }
