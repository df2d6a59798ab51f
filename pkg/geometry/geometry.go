// Package geometry converts relative detection boxes into validated pixel regions.
package geometry

import (
	"image"
	"math"

	"github.com/menta2k/image-assistant/pkg/types"
)

// ToPixelRegion converts a percentage box (0-100, top-left origin) to pixel
// coordinates and clamps it to the image. A box with positive extent never
// rounds below one pixel. It returns false for non-finite or non-positive
// boxes and when the origin clamps onto the far edge; such boxes are dropped,
// never surfaced.
func ToPixelRegion(box types.PercentBox, imageWidth, imageHeight int) (types.Region, bool) {
	return NewRegion(box, "", 0, imageWidth, imageHeight)
}

// NewRegion builds a labelled region from a detection box. The label and
// confidence are set before clamping, so the confidence is in [0,1] on every
// region it returns.
func NewRegion(box types.PercentBox, label string, confidence float64, imageWidth, imageHeight int) (types.Region, bool) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return types.Region{}, false
	}
	if !finite(box.X) || !finite(box.Y) || !finite(box.W) || !finite(box.H) {
		return types.Region{}, false
	}
	if box.W <= 0 || box.H <= 0 {
		return types.Region{}, false
	}

	r := types.Region{
		X:          int(math.Round(box.X / 100 * float64(imageWidth))),
		Y:          int(math.Round(box.Y / 100 * float64(imageHeight))),
		Width:      max(1, int(math.Round(box.W/100*float64(imageWidth)))),
		Height:     max(1, int(math.Round(box.H/100*float64(imageHeight)))),
		Label:      label,
		Confidence: confidence,
	}
	return ClampRegion(r, imageWidth, imageHeight)
}

// ClampRegion clamps a pixel region to [0,imageWidth]x[0,imageHeight]:
//
//	x' = clamp(x, 0, W)    w' = clamp(w, 1, W-x')
//	y' = clamp(y, 0, H)    h' = clamp(h, 1, H-y')
//
// Boxes with no positive extent, or whose origin clamps onto the far edge,
// are rejected.
func ClampRegion(r types.Region, imageWidth, imageHeight int) (types.Region, bool) {
	if imageWidth <= 0 || imageHeight <= 0 || r.Width <= 0 || r.Height <= 0 {
		return types.Region{}, false
	}

	x := clamp(r.X, 0, imageWidth)
	y := clamp(r.Y, 0, imageHeight)
	maxW := imageWidth - x
	maxH := imageHeight - y
	if maxW <= 0 || maxH <= 0 {
		return types.Region{}, false
	}

	r.X = x
	r.Y = y
	r.Width = clamp(r.Width, 1, maxW)
	r.Height = clamp(r.Height, 1, maxH)
	r.Confidence = clampFloat(r.Confidence, 0, 1)
	return r, true
}

// PercentFromCorners builds a PercentBox from two corners, normalising
// swapped coordinates.
func PercentFromCorners(x1, y1, x2, y2 float64) types.PercentBox {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return types.PercentBox{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// PercentFromRect expresses a pixel rectangle relative to the image bounds
func PercentFromRect(rect, bounds image.Rectangle) types.PercentBox {
	fw, fh := float64(bounds.Dx()), float64(bounds.Dy())
	if fw == 0 || fh == 0 {
		return types.PercentBox{}
	}
	return types.PercentBox{
		X: float64(rect.Min.X-bounds.Min.X) / fw * 100,
		Y: float64(rect.Min.Y-bounds.Min.Y) / fh * 100,
		W: float64(rect.Dx()) / fw * 100,
		H: float64(rect.Dy()) / fh * 100,
	}
}

// Rect returns the region as an image.Rectangle relative to origin
func Rect(r types.Region, origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(origin)
}

// Contains reports whether r lies fully inside a width x height image with positive area
func Contains(r types.Region, imageWidth, imageHeight int) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= imageWidth && r.Y+r.Height <= imageHeight
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
