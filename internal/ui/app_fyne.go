//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"floorplanner/internal/config"
	"floorplanner/internal/crash"
	"floorplanner/internal/domain"
	"floorplanner/internal/export"
	"floorplanner/internal/floorplan"
	"floorplanner/internal/interaction"
	applog "floorplanner/internal/log"
	"floorplanner/internal/planner"
	"floorplanner/internal/storage"
	"floorplanner/internal/vector"
)

const mousePointer = 1

// Run starts the Fyne floor-plan editor. A non-empty owner selects that event
// and loads its draft when one exists.
func Run(owner string) error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	sess, err := planner.OpenSession(cfg, token)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	defer crash.Recover(cfg.Drafts.Dir, sess)

	fyneApp := app.NewWithID("floorplanner")
	w := fyneApp.NewWindow("Floor Planner")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", cfg.Canvas.Width+40)
	winH := prefs.IntWithFallback("window.height", cfg.Canvas.Height+120)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	pc := NewPlanCanvas(sess.Editor)
	pc.OnChange = func() { status.SetText(describe(sess.Editor)) }

	if owner != "" {
		sess.SelectOwner(owner)
		if err := sess.LoadLocal(context.Background()); err != nil && !errors.Is(err, storage.ErrNoDraft) {
			l.Warn("load draft", slog.Any("err", err))
		}
	}

	ownerEntry := widget.NewEntry()
	ownerEntry.SetPlaceHolder("event id")
	ownerEntry.SetText(owner)
	ownerEntry.OnSubmitted = func(id string) {
		sess.SelectOwner(id)
		pc.Refresh()
		status.SetText("Event " + id)
	}

	itemSelect := widget.NewSelect(floorplan.PrototypeKeys(), nil)
	itemSelect.PlaceHolder = "item"
	addBtn := widget.NewButton("Add", func() {
		if _, err := sess.AddItem(itemSelect.Selected); err != nil {
			dialog.ShowError(err, w)
			return
		}
		pc.Refresh()
	})

	templates := floorplan.Templates()
	names := make([]string, 0, len(templates))
	for _, t := range templates {
		names = append(names, t.ID)
	}
	templateSelect := widget.NewSelect(names, func(id string) {
		sess.SetTemplate(id)
		pc.Refresh()
	})
	templateSelect.SetSelected(sess.Scene().Template())

	selectionOp := func(op func() error) func() {
		return func() {
			if err := op(); err != nil {
				dialog.ShowError(err, w)
				return
			}
			pc.Refresh()
		}
	}
	removeBtn := widget.NewButton("Remove", selectionOp(sess.RemoveSelected))
	growBtn := widget.NewButton("+", selectionOp(func() error { return sess.ScaleSelected(1.1) }))
	shrinkBtn := widget.NewButton("-", selectionOp(func() error { return sess.ScaleSelected(0.9) }))
	rotLeftBtn := widget.NewButton("⟲", selectionOp(func() error { return sess.RotateSelected(-15) }))
	rotRightBtn := widget.NewButton("⟳", selectionOp(func() error { return sess.RotateSelected(15) }))
	undoBtn := widget.NewButton("Undo", func() { sess.Undo(); pc.Refresh() })
	redoBtn := widget.NewButton("Redo", func() { sess.Redo(); pc.Refresh() })

	darkCheck := widget.NewCheck("Dark", func(on bool) {
		sess.SetDark(on)
		pc.Refresh()
	})
	darkCheck.SetChecked(sess.Dark())

	saveBtn := widget.NewButton("Save draft", func() {
		if err := sess.SaveLocal(context.Background()); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Draft saved")
	})
	loadBtn := widget.NewButton("Load draft", func() {
		err := sess.LoadLocal(context.Background())
		switch {
		case errors.Is(err, storage.ErrNoDraft):
			dialog.ShowInformation("Load draft", "No draft found for this event.", w)
		case err != nil:
			dialog.ShowError(err, w)
		default:
			templateSelect.SetSelected(sess.Scene().Template())
			pc.Refresh()
		}
	})
	deleteBtn := widget.NewButton("Delete draft", func() {
		dialog.ShowConfirm("Delete draft", "Remove the saved draft and clear the canvas?", func(ok bool) {
			if !ok {
				return
			}
			if err := sess.DeleteLocal(context.Background()); err != nil {
				dialog.ShowError(err, w)
				return
			}
			templateSelect.SetSelected(sess.Scene().Template())
			pc.Refresh()
		}, w)
	})

	exportBtn := widget.NewButton("Export PNG", func() {
		payload, err := sess.ExportPNG(context.Background())
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			defer func() { _ = wc.Close() }()
			if _, err := wc.Write(payload.PNG); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + wc.URI().Name())
		}, w)
		d.SetFileName(payload.Filename)
		d.Show()
	})

	vendorSelect := widget.NewSelect(nil, nil)
	vendorSelect.PlaceHolder = "vendor"
	vendorIDs := map[string]string{}
	refreshVendors := func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout())
			defer cancel()
			vendors, err := sess.LoadVendors(ctx)
			fyne.Do(func() {
				if err != nil {
					status.SetText("Vendors unavailable: " + err.Error())
					return
				}
				opts := make([]string, 0, len(vendors))
				for _, v := range vendors {
					label := v.Name
					if v.Category != "" {
						label = fmt.Sprintf("%s (%s)", v.Name, v.Category)
					}
					vendorIDs[label] = v.ID
					opts = append(opts, label)
				}
				vendorSelect.Options = opts
				vendorSelect.Refresh()
			})
		}()
	}
	uploadBtn := widget.NewButton("Send to vendor", func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout())
		defer cancel()
		rec, err := sess.Upload(ctx, vendorIDs[vendorSelect.Selected])
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Uploaded " + rec.URL)
	})
	refreshVendors()

	toolbar := container.NewVBox(
		container.NewHBox(widget.NewLabel("Event"), ownerEntry, saveBtn, loadBtn, deleteBtn, exportBtn, vendorSelect, uploadBtn),
		container.NewHBox(templateSelect, itemSelect, addBtn, removeBtn, growBtn, shrinkBtn, rotLeftBtn, rotRightBtn, undoBtn, redoBtn, darkCheck),
	)
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, pc))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		sess.Undo()
		pc.Refresh()
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		sess.Redo()
		pc.Refresh()
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		saveBtn.OnTapped()
	})
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyDelete || ev.Name == fyne.KeyBackspace {
			_ = sess.RemoveSelected()
			pc.Refresh()
		}
	})

	w.SetCloseIntercept(func() {
		size := w.Canvas().Size()
		prefs.SetInt("window.width", int(size.Width))
		prefs.SetInt("window.height", int(size.Height))
		if !sess.Scene().Dirty() || sess.Owner() == "" {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Save the draft before closing?", func(save bool) {
			if save {
				if err := sess.SaveLocal(context.Background()); err != nil {
					l.Error("save on close", slog.Any("err", err))
				}
			}
			w.Close()
		}, w)
	})

	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func describe(e *planner.Editor) string {
	it, ok := e.Scene().Selected()
	if !ok {
		return fmt.Sprintf("%d items", e.Scene().Len())
	}
	return fmt.Sprintf("%s  %.0fx%.0f at (%.0f, %.0f)  %.0f°", it.Type.Label(), it.W, it.H, it.X, it.Y, it.Rotation)
}

// PlanCanvas is the live floor-plan surface. It renders the scene through the
// export rasterizer at screen scale and feeds mouse input to the interaction
// controller. Shift or the secondary button rotates instead of dragging.
type PlanCanvas struct {
	widget.BaseWidget
	editor *planner.Editor
	raster *canvas.Raster

	pressed  bool
	OnChange func()
}

var (
	_ desktop.Mouseable = (*PlanCanvas)(nil)
	_ fyne.Draggable    = (*PlanCanvas)(nil)
)

func NewPlanCanvas(e *planner.Editor) *PlanCanvas {
	pc := &PlanCanvas{editor: e}
	pc.raster = canvas.NewRaster(pc.draw)
	pc.ExtendBaseWidget(pc)
	return pc
}

func (p *PlanCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.raster)
}

// PreferredSize is the configured canvas size the scene was mounted with.
func (p *PlanCanvas) PreferredSize() fyne.Size {
	w, h := p.editor.Scene().Size()
	return fyne.NewSize(float32(w), float32(h))
}

func (p *PlanCanvas) MinSize() fyne.Size { return fyne.NewSize(200, 150) }

// Resize remounts the scene so items stay inside the visible canvas.
func (p *PlanCanvas) Resize(size fyne.Size) {
	p.BaseWidget.Resize(size)
	if size.Width > 0 && size.Height > 0 {
		p.editor.Scene().Mount(float64(size.Width), float64(size.Height))
	}
}

func (p *PlanCanvas) Refresh() {
	p.BaseWidget.Refresh()
	if p.OnChange != nil {
		p.OnChange()
	}
}

func (p *PlanCanvas) draw(pw, ph int) image.Image {
	w, h := p.editor.Scene().Size()
	img, err := export.Rasterize(context.Background(), p.editor.Scene(), export.RasterOptions{
		Width:  int(w),
		Height: int(h),
		Scale:  1,
		Dark:   p.editor.Dark(),
	})
	if err != nil {
		return image.NewRGBA(image.Rect(0, 0, pw, ph))
	}
	if it, ok := p.editor.Scene().Selected(); ok {
		outline(img, it)
	}
	return img
}

func pointerEvent(pos fyne.Position, rotate bool) interaction.PointerEvent {
	return interaction.PointerEvent{
		PointerID: mousePointer,
		Pos:       vector.Pt{X: float64(pos.X), Y: float64(pos.Y)},
		Rotate:    rotate,
	}
}

func (p *PlanCanvas) MouseDown(ev *desktop.MouseEvent) {
	rotate := ev.Button == desktop.MouseButtonSecondary || ev.Modifier&fyne.KeyModifierShift != 0
	p.pressed = true
	p.editor.Controller().PointerDownAt(pointerEvent(ev.Position, rotate))
	p.Refresh()
}

func (p *PlanCanvas) MouseUp(ev *desktop.MouseEvent) {
	if !p.pressed {
		return
	}
	p.pressed = false
	p.editor.Controller().PointerUp(pointerEvent(ev.Position, false))
	p.Refresh()
}

func (p *PlanCanvas) Dragged(ev *fyne.DragEvent) {
	if p.editor.Controller().PointerMove(pointerEvent(ev.Position, false)) {
		p.Refresh()
	}
}

// DragEnd can arrive without a MouseUp when the pointer leaves the window.
func (p *PlanCanvas) DragEnd() {
	if p.pressed {
		p.pressed = false
		p.editor.Controller().PointerCancel(interaction.PointerEvent{PointerID: mousePointer})
		p.Refresh()
	}
}

// outline draws a thin axis-aligned selection box around the item's rotated bounds.
func outline(img *image.RGBA, it domain.PlacedItem) {
	b := vector.RotatedBounds(vector.Pt{X: it.X, Y: it.Y}, it.W, it.H, it.Rotation)
	r := image.Rect(int(b.X)-2, int(b.Y)-2, int(b.X+b.W)+2, int(b.Y+b.H)+2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	c := selectionColor
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

var selectionColor = color.RGBA{R: 0x00, G: 0xaa, B: 0xff, A: 0xff}
