package processing

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-assistant/pkg/types"
)

// Temperature channel multipliers (red, blue)
var (
	warmFactors = [2]float64{1.1, 0.9}
	coldFactors = [2]float64{0.9, 1.1}
)

// Adjust applies p in the fixed order brightness, contrast, saturation,
// temperature. Each step works on the output of the previous one. Zero
// fields are skipped, so identity parameters return img untouched. The
// second result lists the edits that were applied.
func Adjust(img image.Image, p types.EditParameters) (image.Image, []string) {
	p = p.Clamped()
	applied := []string{}
	out := img

	if p.Brightness != 0 {
		out = Brightness(out, p.Brightness)
		applied = append(applied, "brightness "+signed(p.Brightness))
	}
	if p.Contrast != 0 {
		out = Contrast(out, p.Contrast)
		applied = append(applied, "contrast "+signed(p.Contrast))
	}
	if p.Saturation != 0 {
		out = Saturation(out, p.Saturation)
		applied = append(applied, "saturation "+signed(p.Saturation))
	}
	switch p.Temperature {
	case types.TemperatureWarm:
		out = Temperature(out, p.Temperature)
		applied = append(applied, "warmer temperature")
	case types.TemperatureCold:
		out = Temperature(out, p.Temperature)
		applied = append(applied, "cooler temperature")
	}
	return out, applied
}

// Brightness scales every channel by 1+amount/100 (factor kept within [0.1,3])
func Brightness(img image.Image, amount int) *image.NRGBA {
	f := factor(amount, 0.1)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R, f), G: scale(c.G, f), B: scale(c.B, f), A: c.A}
	})
}

// Contrast moves every channel away from (or towards) the mean luminance
func Contrast(img image.Image, amount int) *image.NRGBA {
	f := factor(amount, 0.1)
	mean := meanLuminance(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blend(mean, float64(c.R), f),
			G: blend(mean, float64(c.G), f),
			B: blend(mean, float64(c.B), f),
			A: c.A,
		}
	})
}

// Saturation moves every pixel away from (or towards) its own gray value
func Saturation(img image.Image, amount int) *image.NRGBA {
	f := factor(amount, 0)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		gray := luminance(c.R, c.G, c.B)
		return color.NRGBA{
			R: blend(gray, float64(c.R), f),
			G: blend(gray, float64(c.G), f),
			B: blend(gray, float64(c.B), f),
			A: c.A,
		}
	})
}

// Temperature shifts the red/blue balance; neutral returns an unchanged copy
func Temperature(img image.Image, t types.Temperature) *image.NRGBA {
	var k [2]float64
	switch t {
	case types.TemperatureWarm:
		k = warmFactors
	case types.TemperatureCold:
		k = coldFactors
	default:
		return imaging.Clone(img)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: scale(c.R, k[0]), G: c.G, B: scale(c.B, k[1]), A: c.A}
	})
}

func factor(amount int, lo float64) float64 {
	return clamp(1+float64(amount)/100, lo, 3.0)
}

func scale(v uint8, f float64) uint8 {
	return toUint8(float64(v) * f)
}

// blend interpolates from base towards v by f (f > 1 extrapolates)
func blend(base, v, f float64) uint8 {
	return toUint8(base + f*(v-base))
}

func toUint8(v float64) uint8 {
	return uint8(clamp(math.Round(v), 0, 255))
}

// luminance uses ITU-R 601-2 weights
func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func meanLuminance(img image.Image) float64 {
	src := imaging.Clone(img)
	n := src.Bounds().Dx() * src.Bounds().Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+3 < len(src.Pix); i += 4 {
		sum += luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
	}
	return sum / float64(n)
}

func signed(v int) string {
	return fmt.Sprintf("%+d", v)
}
