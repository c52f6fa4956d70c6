/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"floorplanner/internal/domain"
	"floorplanner/internal/floorplan"
)

// WritePDF writes the scene as a single-page vector PDF sized to the canvas
// (1 canvas px = 1 pt). Labels use the built-in Helvetica so no fonts are embedded.
func WritePDF(ctx context.Context, s *floorplan.Scene, opt RasterOptions, w io.Writer) error {
	opt, err := opt.resolve(s)
	if err != nil {
		return err
	}
	pw, ph := float64(opt.Width), float64(opt.Height)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetTitle("Floor plan", false)
	pdf.SetAuthor("floorplanner", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	if bg := s.BackgroundImage(); bg != "" {
		img, err := DecodeDataURL(bg)
		if err != nil {
			return err
		}
		// gofpdf reads only a few formats; normalize to PNG
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode background: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("background", opts, &buf)
		pdf.ImageOptions("background", 0, 0, pw, ph, false, opts, 0, "")
	} else {
		tpl, _ := floorplan.LookupTemplate(s.Template())
		setFillColor(pdf, pick(tpl.Color, tpl.DarkColor, opt.Dark))
		pdf.Rect(0, 0, pw, ph, "F")
	}

	grid := gridLight
	if opt.Dark {
		grid = gridDark
	}
	pdf.SetDrawColor(int(grid.R), int(grid.G), int(grid.B))
	pdf.SetLineWidth(0.5)
	for x := 0.0; x < pw; x += opt.GridSpacing {
		pdf.Line(x, 0, x, ph)
	}
	for y := 0.0; y < ph; y += opt.GridSpacing {
		pdf.Line(0, y, pw, y)
	}

	const fontSize = 9.0
	pdf.SetFont("Helvetica", "", fontSize)
	for _, it := range s.Items() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fill := it.Fill(opt.Dark)
		pdf.TransformBegin()
		// gofpdf rotates counter-clockwise; canvas rotation is clockwise with y down
		pdf.TransformRotate(-it.Rotation, it.X, it.Y)
		setFillColor(pdf, fill)
		if it.Shape == domain.ShapeRound {
			pdf.Ellipse(it.X, it.Y, it.W/2, it.H/2, 0, "F")
		} else {
			pdf.Rect(it.X-it.W/2, it.Y-it.H/2, it.W, it.H, "F")
		}
		if floorplan.Labeled(it.Type) {
			tc := labelColor(toRGBA(fill))
			pdf.SetTextColor(int(tc.R), int(tc.G), int(tc.B))
			label := it.Type.Label()
			pdf.Text(it.X-pdf.GetStringWidth(label)/2, it.Y+fontSize*0.35, label)
		}
		pdf.TransformEnd()
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pick(light, dark domain.Color, isDark bool) domain.Color {
	if isDark {
		return dark
	}
	return light
}

func setFillColor(pdf *gofpdf.Fpdf, c domain.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
