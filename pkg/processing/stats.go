package processing

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-assistant/pkg/types"
)

// Histogram counts 256-bin per-channel values; luminance uses ITU-R 601-2 weights
func Histogram(img image.Image) types.Histogram {
	h := types.Histogram{
		Red:       make([]int, 256),
		Green:     make([]int, 256),
		Blue:      make([]int, 256),
		Luminance: make([]int, 256),
	}
	src := imaging.Clone(img)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		h.Red[r]++
		h.Green[g]++
		h.Blue[b]++
		h.Luminance[int(math.Round(luminance(r, g, b)))]++
	}
	return h
}

// dominant palette multipliers applied to the mean color
var paletteFactors = []float64{0.5, 0.3, 1.5}

// DominantColors returns the mean color of img followed by two darker and one
// lighter variant, as #rrggbb strings.
func DominantColors(img image.Image) []string {
	b := img.Bounds()
	if b.Empty() {
		return []string{"#000000"}
	}
	small := imaging.Resize(img, minInt(100, b.Dx()), minInt(100, b.Dy()), imaging.Box)

	var sr, sg, sb float64
	n := 0
	for i := 0; i+3 < len(small.Pix); i += 4 {
		sr += float64(small.Pix[i])
		sg += float64(small.Pix[i+1])
		sb += float64(small.Pix[i+2])
		n++
	}
	if n == 0 {
		return []string{"#000000"}
	}
	mean := [3]int{int(sr / float64(n)), int(sg / float64(n)), int(sb / float64(n))}

	colors := []string{hexColor(mean, 1)}
	for _, f := range paletteFactors {
		colors = append(colors, hexColor(mean, f))
	}
	return colors
}

func hexColor(rgb [3]int, f float64) string {
	c := func(v int) int {
		return int(clamp(float64(int(float64(v)*f)), 0, 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", c(rgb[0]), c(rgb[1]), c(rgb[2]))
}
