/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package planner binds the floor-plan scene to its interaction controller,
// undo history, local drafts and the remote backend. Editor is the surface the
// CLI and the fyne canvas drive.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"floorplanner/internal/domain"
	"floorplanner/internal/export"
	"floorplanner/internal/floorplan"
	"floorplanner/internal/interaction"
	applog "floorplanner/internal/log"
	"floorplanner/internal/storage"
	"floorplanner/internal/undo"
)

var (
	// ErrNoOwner is returned by persistence operations before SelectOwner.
	ErrNoOwner = errors.New("no event selected")
	// ErrNothingSelected is returned by item operations without a selection.
	ErrNothingSelected = errors.New("no item selected")
	// ErrNoRecipient is returned by Upload without a recipient id.
	ErrNoRecipient = errors.New("no recipient selected")
	// ErrNoRemote is returned by remote operations when no backend is configured.
	ErrNoRemote = errors.New("backend not configured")
	// ErrUnknownItem is returned by AddItem for a key outside the catalog.
	ErrUnknownItem = errors.New("unknown item type")
	// ErrNotMounted is returned by AddItem before the canvas has a size.
	ErrNotMounted = export.ErrNotMounted
)

// Remote is the part of the backend client the editor needs.
type Remote interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListVendors(ctx context.Context) ([]domain.Vendor, error)
	UploadObject(ctx context.Context, path, contentType string, data []byte) (string, error)
	PutFloorPlanRecord(ctx context.Context, rec domain.FloorPlanRecord) error
}

// Options configure an Editor. Drafts and Remote may be nil; operations that
// need them then fail.
type Options struct {
	Drafts          storage.DraftStore
	Remote          Remote
	History         *undo.Manager
	IDs             floorplan.IDGenerator
	UserID          string
	DefaultTemplate string
	Raster          export.RasterOptions
	DragThreshold   float64
	Capture         interaction.PointerCapture
	// Now is used for upload timestamps; defaults to time.Now.
	Now func() time.Time
}

// Editor is one planner's editing session over a single scene.
type Editor struct {
	scene      *floorplan.Scene
	controller *interaction.Controller
	history    *undo.Manager

	drafts storage.DraftStore
	remote Remote

	owner           string
	user            string
	defaultTemplate string
	raster          export.RasterOptions
	now             func() time.Time
	log             *slog.Logger
}

func New(opts Options) *Editor {
	e := &Editor{
		scene:           floorplan.NewScene(opts.IDs),
		history:         opts.History,
		drafts:          opts.Drafts,
		remote:          opts.Remote,
		user:            opts.UserID,
		defaultTemplate: opts.DefaultTemplate,
		raster:          opts.Raster,
		now:             opts.Now,
		log:             applog.WithComponent("planner"),
	}
	if e.history == nil {
		e.history = undo.NewManager(undo.Config{})
	}
	if _, ok := floorplan.LookupTemplate(e.defaultTemplate); !ok {
		e.defaultTemplate = floorplan.DefaultTemplateID
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.scene.Reset(e.defaultTemplate)
	e.controller = interaction.New(e.scene, interaction.Options{
		Threshold: opts.DragThreshold,
		Capture:   opts.Capture,
		Observer:  e,
	})
	return e
}

func (e *Editor) Scene() *floorplan.Scene { return e.scene }

func (e *Editor) Controller() *interaction.Controller { return e.controller }

func (e *Editor) Owner() string { return e.owner }

// SelectOwner sets the event whose draft and uploads this session works on.
// The scene itself is not touched; call LoadLocal to pick up a saved draft.
func (e *Editor) SelectOwner(id string) {
	if id == e.owner {
		return
	}
	e.controller.Reset()
	e.owner = id
	e.log.Debug("owner selected", slog.String("owner", id))
}

func (e *Editor) scope() string {
	if e.owner == "" {
		return "scene"
	}
	return "scene:" + e.owner
}

func (e *Editor) ctx(ctx context.Context) context.Context {
	if e.owner == "" {
		return ctx
	}
	return applog.ContextWithOwner(ctx, e.owner)
}

// checkpoint records the current scene as an undo step.
func (e *Editor) checkpoint() {
	blob, err := e.scene.EncodeSnapshot()
	if err != nil {
		e.log.Warn("snapshot failed", slog.Any("err", err))
		return
	}
	e.history.PushSnapshot(undo.Snapshot{Scope: e.scope(), Blob: blob, TS: e.now()})
}

// mutate checkpoints and applies op; the checkpoint is discarded when op reports
// no change.
func (e *Editor) mutate(op func() bool) bool {
	before, err := e.scene.EncodeSnapshot()
	if err != nil {
		e.log.Warn("snapshot failed", slog.Any("err", err))
		return op()
	}
	if !op() {
		return false
	}
	e.history.PushSnapshot(undo.Snapshot{Scope: e.scope(), Blob: before, TS: e.now()})
	return true
}

// OnGestureStart implements interaction.GestureObserver.
func (e *Editor) OnGestureStart(string) { e.checkpoint() }

// OnGestureEnd implements interaction.GestureObserver.
func (e *Editor) OnGestureEnd(targetID string) {
	e.log.Debug("gesture end", slog.String("item", targetID))
}

// AddItem places a new item of the catalog key at the canvas center and selects it.
func (e *Editor) AddItem(key string) (domain.PlacedItem, error) {
	if _, ok := floorplan.Prototype(key); !ok {
		return domain.PlacedItem{}, fmt.Errorf("%w: %q", ErrUnknownItem, key)
	}
	if !e.scene.Mounted() {
		return domain.PlacedItem{}, ErrNotMounted
	}
	var it domain.PlacedItem
	ok := e.mutate(func() bool {
		var added bool
		it, added = e.scene.AddItem(key)
		return added
	})
	if !ok {
		return domain.PlacedItem{}, fmt.Errorf("%w: %q", ErrUnknownItem, key)
	}
	return it, nil
}

func (e *Editor) Select(id string) bool { return e.scene.Select(id) }

func (e *Editor) RemoveSelected() error {
	if !e.mutate(e.scene.RemoveSelected) {
		return ErrNothingSelected
	}
	return nil
}

func (e *Editor) ScaleSelected(factor float64) error {
	if !e.mutate(func() bool { return e.scene.ScaleSelected(factor) }) {
		return ErrNothingSelected
	}
	return nil
}

func (e *Editor) RotateSelected(delta float64) error {
	if !e.mutate(func() bool { return e.scene.RotateSelected(delta) }) {
		return ErrNothingSelected
	}
	return nil
}

// EditItem applies a direct edit to item id. It reports false for unknown ids
// or an empty patch.
func (e *Editor) EditItem(id string, patch floorplan.ItemPatch) bool {
	return e.mutate(func() bool { return e.scene.EditItem(id, patch) })
}

func (e *Editor) SetTemplate(id string) bool {
	if id == e.scene.Template() {
		return false
	}
	return e.mutate(func() bool { return e.scene.SetTemplate(id) })
}

// SetBackgroundImage sets or, with "", clears the background data URL.
func (e *Editor) SetBackgroundImage(dataURL string) {
	if dataURL == e.scene.BackgroundImage() {
		return
	}
	e.mutate(func() bool {
		e.scene.SetBackgroundImage(dataURL)
		return true
	})
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo(e.scope()) }
func (e *Editor) CanRedo() bool { return e.history.CanRedo(e.scope()) }

// Undo restores the previous checkpoint. It reports false when there is none.
func (e *Editor) Undo() bool {
	return e.travel(e.history.Undo)
}

// Redo re-applies the last undone step.
func (e *Editor) Redo() bool {
	return e.travel(e.history.Redo)
}

func (e *Editor) travel(step func(scope string, current []byte) (undo.Snapshot, bool)) bool {
	e.controller.Reset()
	current, err := e.scene.EncodeSnapshot()
	if err != nil {
		e.log.Warn("snapshot failed", slog.Any("err", err))
		return false
	}
	snap, ok := step(e.scope(), current)
	if !ok {
		return false
	}
	if err := e.scene.RestoreSnapshot(snap.Blob); err != nil {
		e.log.Error("restore snapshot", slog.Any("err", err))
		return false
	}
	return true
}

// SaveLocal writes the scene as the owner's draft and marks it clean.
func (e *Editor) SaveLocal(ctx context.Context) error {
	if e.owner == "" {
		return ErrNoOwner
	}
	if e.drafts == nil {
		return errors.New("no draft store configured")
	}
	ctx = e.ctx(ctx)
	if err := e.drafts.Save(ctx, e.owner, e.scene.Draft()); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	e.scene.MarkClean()
	applog.WithOperation(e.log, "save_local").InfoContext(ctx, "draft saved", slog.Int("items", e.scene.Len()))
	return nil
}

// LoadLocal replaces the scene with the owner's draft. Errors, storage.ErrNoDraft
// included, leave the scene untouched.
func (e *Editor) LoadLocal(ctx context.Context) error {
	if e.owner == "" {
		return ErrNoOwner
	}
	if e.drafts == nil {
		return errors.New("no draft store configured")
	}
	ctx = e.ctx(ctx)
	d, err := e.drafts.Load(ctx, e.owner)
	if err != nil {
		if errors.Is(err, storage.ErrNoDraft) {
			return err
		}
		return fmt.Errorf("load draft: %w", err)
	}
	e.controller.Reset()
	e.scene.Replace(d)
	e.history.ClearScope(e.scope())
	applog.WithOperation(e.log, "load_local").InfoContext(ctx, "draft loaded", slog.Int("items", e.scene.Len()))
	return nil
}

// DeleteLocal removes the owner's draft and resets the scene to the default template.
func (e *Editor) DeleteLocal(ctx context.Context) error {
	if e.owner == "" {
		return ErrNoOwner
	}
	if e.drafts == nil {
		return errors.New("no draft store configured")
	}
	ctx = e.ctx(ctx)
	if err := e.drafts.Delete(ctx, e.owner); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	e.controller.Reset()
	e.scene.Reset(e.defaultTemplate)
	e.history.ClearScope(e.scope())
	applog.WithOperation(e.log, "delete_local").InfoContext(ctx, "draft deleted")
	return nil
}

// ExportPNG rasterizes the scene with the editor's raster options.
func (e *Editor) ExportPNG(ctx context.Context) (export.Payload, error) {
	return export.ExportPNG(ctx, e.scene, e.owner, e.raster)
}

// ExportPDF writes the scene as a one-page PDF.
func (e *Editor) ExportPDF(ctx context.Context, w io.Writer) error {
	return export.WritePDF(ctx, e.scene, e.raster, w)
}

// UploadPath is the object path of the floor plan an owner sends to a recipient.
func UploadPath(ownerID, recipientID string) string {
	return "floorplans/" + ownerID + "/" + recipientID + "/floorplan.png"
}

// Upload rasterizes the scene, stores it remotely for recipientID and then
// writes the metadata record. A failed upload writes no record. A failed record
// write leaves the uploaded object in place.
func (e *Editor) Upload(ctx context.Context, recipientID string) (domain.FloorPlanRecord, error) {
	switch {
	case e.owner == "":
		return domain.FloorPlanRecord{}, ErrNoOwner
	case recipientID == "":
		return domain.FloorPlanRecord{}, ErrNoRecipient
	case e.remote == nil:
		return domain.FloorPlanRecord{}, ErrNoRemote
	}
	ctx = e.ctx(ctx)
	log := applog.WithOperation(e.log, "upload").With(slog.String("recipient", recipientID))

	payload, err := e.ExportPNG(ctx)
	if err != nil {
		return domain.FloorPlanRecord{}, fmt.Errorf("rasterize: %w", err)
	}
	path := UploadPath(e.owner, recipientID)
	url, err := e.remote.UploadObject(ctx, path, "image/png", payload.PNG)
	if err != nil {
		log.WarnContext(ctx, "upload failed", slog.Any("err", err))
		return domain.FloorPlanRecord{}, fmt.Errorf("upload floor plan: %w", err)
	}
	rec := domain.FloorPlanRecord{
		EventID:     e.owner,
		RecipientID: recipientID,
		Path:        path,
		URL:         url,
		UploadedAt:  e.now().UTC(),
		UploadedBy:  e.user,
	}
	if err := e.remote.PutFloorPlanRecord(ctx, rec); err != nil {
		log.WarnContext(ctx, "record write failed; object kept", slog.String("path", path), slog.Any("err", err))
		return domain.FloorPlanRecord{}, fmt.Errorf("write floor plan record: %w", err)
	}
	log.InfoContext(ctx, "floor plan uploaded", slog.String("url", url), slog.Int("bytes", len(payload.PNG)))
	return rec, nil
}

func (e *Editor) LoadEvents(ctx context.Context) ([]domain.Event, error) {
	if e.remote == nil {
		return nil, ErrNoRemote
	}
	list, err := e.remote.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return list, nil
}

func (e *Editor) LoadVendors(ctx context.Context) ([]domain.Vendor, error) {
	if e.remote == nil {
		return nil, ErrNoRemote
	}
	list, err := e.remote.ListVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	return list, nil
}

// Draft returns the scene in its persisted form.
func (e *Editor) Draft() domain.Draft { return e.scene.Draft() }
