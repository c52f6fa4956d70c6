/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a floor-plan scene to a supersampled bitmap (PNG and a
// base64 payload for upload) or to a vector PDF.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	xvector "golang.org/x/image/vector"

	"floorplanner/internal/domain"
	"floorplanner/internal/floorplan"
	"floorplanner/internal/vector"
)

// DefaultScale is the supersampling factor of exported bitmaps.
const DefaultScale = 2

// DefaultGridSpacing is the distance between grid lines in canvas pixels.
const DefaultGridSpacing = 40

// ErrNotMounted is returned when neither the options nor the scene carry a canvas size.
var ErrNotMounted = errors.New("canvas is not mounted")

// RasterOptions controls rasterization. Width and Height are canvas pixels; zero
// values fall back to the scene's mounted size.
type RasterOptions struct {
	Width       int
	Height      int
	Scale       int
	Dark        bool
	GridSpacing float64
}

func (o RasterOptions) resolve(s *floorplan.Scene) (RasterOptions, error) {
	if o.Width <= 0 || o.Height <= 0 {
		w, h := s.Size()
		o.Width, o.Height = int(math.Round(w)), int(math.Round(h))
	}
	if o.Width <= 0 || o.Height <= 0 {
		return o, ErrNotMounted
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.GridSpacing <= 0 {
		o.GridSpacing = DefaultGridSpacing
	}
	return o, nil
}

var (
	gridLight = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	gridDark  = color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff}
	textDark  = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	textLight = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Rasterize draws the scene at opt.Scale times the canvas size: background image
// or template color, grid, then each item rotated about its center with a label.
// A background image that cannot be decoded fails with ErrImageLoad.
func Rasterize(ctx context.Context, s *floorplan.Scene, opt RasterOptions) (*image.RGBA, error) {
	opt, err := opt.resolve(s)
	if err != nil {
		return nil, err
	}
	k := float64(opt.Scale)
	W, H := opt.Width*opt.Scale, opt.Height*opt.Scale
	img := image.NewRGBA(image.Rect(0, 0, W, H))

	if bg := s.BackgroundImage(); bg != "" {
		src, err := DecodeDataURL(bg)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		xdraw.BiLinear.Scale(img, img.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	} else {
		tpl, _ := floorplan.LookupTemplate(s.Template())
		fill := tpl.Color
		if opt.Dark {
			fill = tpl.DarkColor
		}
		draw.Draw(img, img.Bounds(), &image.Uniform{C: toRGBA(fill)}, image.Point{}, draw.Src)
	}

	grid := gridLight
	if opt.Dark {
		grid = gridDark
	}
	step := opt.GridSpacing * k
	for x := 0.0; x < float64(W); x += step {
		xi := int(math.Round(x))
		fillRect(img, xi, 0, xi, H-1, grid)
	}
	for y := 0.0; y < float64(H); y += step {
		yi := int(math.Round(y))
		fillRect(img, 0, yi, W-1, yi, grid)
	}

	z := xvector.NewRasterizer(W, H)
	for _, it := range s.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fill := toRGBA(it.Fill(opt.Dark))
		z.Reset(W, H)
		m := vector.Scale(k, k).Mul(vector.Placement(it.X, it.Y, it.Rotation))
		if it.Shape == domain.ShapeRound {
			ellipsePath(z, m, it.W/2, it.H/2)
		} else {
			rectPath(z, m, it.W/2, it.H/2)
		}
		z.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{})
		if floorplan.Labeled(it.Type) {
			drawLabel(img, it.Type.Label(), labelColor(fill), m)
		}
	}
	return img, nil
}

// Payload is an encoded bitmap ready for download or upload.
type Payload struct {
	Filename string
	PNG      []byte
	Base64   string
}

// Filename returns the export name for an owner: floorplan-<owner>.png.
func Filename(ownerID string) string {
	if ownerID == "" {
		return "floorplan.png"
	}
	return fmt.Sprintf("floorplan-%s.png", ownerID)
}

// ExportPNG rasterizes the scene and encodes it as PNG plus base64.
func ExportPNG(ctx context.Context, s *floorplan.Scene, ownerID string, opt RasterOptions) (Payload, error) {
	img, err := Rasterize(ctx, s, opt)
	if err != nil {
		return Payload{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Payload{}, fmt.Errorf("encode png: %w", err)
	}
	return Payload{
		Filename: Filename(ownerID),
		PNG:      buf.Bytes(),
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

func toRGBA(c domain.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func labelColor(fill color.RGBA) color.RGBA {
	c := domain.Color{R: fill.R, G: fill.G, B: fill.B, A: fill.A}
	if c.Luminance() > 0.5 {
		return textDark
	}
	return textLight
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	draw.Draw(img, image.Rect(x0, y0, x1+1, y1+1), &image.Uniform{C: col}, image.Point{}, draw.Over)
}

func moveTo(z *xvector.Rasterizer, m vector.Affine2D, x, y float64) {
	p := m.Apply(vector.Pt{X: x, Y: y})
	z.MoveTo(float32(p.X), float32(p.Y))
}

func lineTo(z *xvector.Rasterizer, m vector.Affine2D, x, y float64) {
	p := m.Apply(vector.Pt{X: x, Y: y})
	z.LineTo(float32(p.X), float32(p.Y))
}

// rectPath adds the item-local rectangle [-hw,hw]×[-hh,hh] mapped through m.
func rectPath(z *xvector.Rasterizer, m vector.Affine2D, hw, hh float64) {
	moveTo(z, m, -hw, -hh)
	lineTo(z, m, hw, -hh)
	lineTo(z, m, hw, hh)
	lineTo(z, m, -hw, hh)
	z.ClosePath()
}

// kappa places cubic control points so four segments approximate an ellipse.
const kappa = 0.5522847498

func ellipsePath(z *xvector.Rasterizer, m vector.Affine2D, rx, ry float64) {
	ox, oy := rx*kappa, ry*kappa
	cube := func(x1, y1, x2, y2, x3, y3 float64) {
		a := m.Apply(vector.Pt{X: x1, Y: y1})
		b := m.Apply(vector.Pt{X: x2, Y: y2})
		c := m.Apply(vector.Pt{X: x3, Y: y3})
		z.CubeTo(float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), float32(c.X), float32(c.Y))
	}
	moveTo(z, m, rx, 0)
	cube(rx, oy, ox, ry, 0, ry)
	cube(-ox, ry, -rx, oy, -rx, 0)
	cube(-rx, -oy, -ox, -ry, 0, -ry)
	cube(ox, -ry, rx, -oy, rx, 0)
	z.ClosePath()
}

// drawLabel renders text into a small bitmap and maps it onto dst centered at the
// item origin of m, so the label scales and rotates with the item.
func drawLabel(dst *image.RGBA, text string, col color.RGBA, m vector.Affine2D) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	h := metrics.Height.Ceil()
	if w == 0 || h == 0 {
		return
	}
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: src, Src: image.NewUniform(col), Face: face, Dot: fixed.Point26_6{Y: metrics.Ascent}}
	d.DrawString(text)

	// label-local (sx,sy) -> item-local (sx-w/2, sy-h/2) -> canvas via m
	cx, cy := float64(w)/2, float64(h)/2
	s2d := f64.Aff3{
		m.A, m.C, m.E - (m.A*cx + m.C*cy),
		m.B, m.D, m.F - (m.B*cx + m.D*cy),
	}
	xdraw.BiLinear.Transform(dst, s2d, src, src.Bounds(), xdraw.Over, nil)
}
