/*
 *	Copyright 2024 The klasifikasijenisdaging Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package augment generates fixed geometric variants (rotation, shift, horizontal flip and zoom)
// of every image in a dataset tree, writing them to a mirrored output tree.
package augment

import (
	"image"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Kinds of variants, in the order they are generated.
const (
	KindRotate = "rotate"
	KindShift  = "shift"
	KindFlip   = "flip"
	KindZoom   = "zoom"
)

// Kinds lists the variant kinds in generation order.
var Kinds = []string{KindRotate, KindShift, KindFlip, KindZoom}

// Variant is one augmented version of an image.
type Variant struct {
	Kind  string
	Image *image.NRGBA
}

// Rotate rotates img counter-clockwise by angle degrees around its center, keeping its size.
// Corners left uncovered are black.
func Rotate(img image.Image, angle float64) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rotated := imaging.Rotate(img, angle, color.Black)
	cropped := imaging.CropCenter(rotated, width, height)
	if cropped.Bounds().Dx() == width && cropped.Bounds().Dy() == height {
		return cropped
	}
	// The rotated bounding box can be narrower than the input along one axis.
	return imaging.PasteCenter(imaging.New(width, height, color.Black), cropped)
}

// Shift translates img by (dx, dy) pixels, keeping its size. Uncovered pixels are black.
func Shift(img image.Image, dx, dy int) *image.NRGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.Black)
	return imaging.Paste(canvas, imaging.Clone(img), image.Pt(dx, dy))
}

// Flip mirrors img horizontally.
func Flip(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}

// ZoomRect returns the centered crop rectangle used by Zoom for an image of the given size:
// it spans ⌊size/2·factor⌋ pixels on each side of the center, at least one.
func ZoomRect(width, height int, factor float64) image.Rectangle {
	cx, cy := width/2, height/2
	rx := max(int(float64(width)/2*factor), 1)
	ry := max(int(float64(height)/2*factor), 1)
	return image.Rect(cx-rx, cy-ry, cx+rx, cy+ry).Intersect(image.Rect(0, 0, width, height))
}

// Zoom crops the center of img by factor and rescales the crop back to the original size.
func Zoom(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	cropped := imaging.Crop(src, ZoomRect(width, height, factor))
	return imaging.Resize(cropped, width, height, imaging.Linear)
}

// Variants returns the four variants of img configured in cfg, in the order of Kinds.
func Variants(img image.Image, cfg Config) []Variant {
	return []Variant{
		{Kind: KindRotate, Image: Rotate(img, cfg.Angle)},
		{Kind: KindShift, Image: Shift(img, cfg.ShiftX, cfg.ShiftY)},
		{Kind: KindFlip, Image: Flip(img)},
		{Kind: KindZoom, Image: Zoom(img, cfg.ZoomFactor)},
	}
}

// VariantName returns the file name of a variant: "<stem>_<kind>_<index>.jpg".
func VariantName(original, kind string, index int) string {
	base := filepath.Base(original)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_" + kind + "_" + strconv.Itoa(index) + ".jpg"
}
