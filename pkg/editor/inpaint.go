package editor

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-assistant/pkg/types"
)

// DefaultInpaintIterations is the number of relaxation sweeps
const DefaultInpaintIterations = 200

// Inpainter removes the content of a region by filling it from its border
// (membrane interpolation: each interior pixel relaxes to the mean of its
// four neighbours).
type Inpainter struct {
	Iterations int
}

// NewInpainter creates an inpainter; iterations <= 0 selects the default
func NewInpainter(iterations int) *Inpainter {
	if iterations <= 0 {
		iterations = DefaultInpaintIterations
	}
	return &Inpainter{Iterations: iterations}
}

// Edit fills r. The action text is not used.
func (p *Inpainter) Edit(ctx context.Context, img image.Image, r types.Region, _ string) (image.Image, error) {
	rect, err := regionRect(img, r)
	if err != nil {
		return nil, err
	}

	dst := imaging.Clone(img)
	rect = rect.Sub(img.Bounds().Min) // dst is zero-based

	w, h := rect.Dx(), rect.Dy()
	// field holds the region plus a one-pixel frame of boundary values.
	// Frame cells outside the image are not boundary values; interior
	// cells next to them mirror themselves instead.
	fw, fh := w+2, h+2
	field := make([][4]float64, fw*fh)
	boundary := make([]bool, fw*fh)

	db := dst.Bounds()
	var mean [4]float64
	count := 0
	for fy := 0; fy < fh; fy++ {
		for fx := 0; fx < fw; fx++ {
			if fx != 0 && fy != 0 && fx != fw-1 && fy != fh-1 {
				continue
			}
			x, y := rect.Min.X+fx-1, rect.Min.Y+fy-1
			if x < 0 || y < 0 || x >= db.Dx() || y >= db.Dy() {
				continue
			}
			i := y*dst.Stride + x*4
			v := [4]float64{float64(dst.Pix[i]), float64(dst.Pix[i+1]), float64(dst.Pix[i+2]), float64(dst.Pix[i+3])}
			field[fy*fw+fx] = v
			boundary[fy*fw+fx] = true
			for c := 0; c < 4; c++ {
				mean[c] += v[c]
			}
			count++
		}
	}
	if count == 0 {
		return nil, errors.New("cannot inpaint a region with no surrounding pixels")
	}
	for c := 0; c < 4; c++ {
		mean[c] /= float64(count)
	}

	// start from the mean border color
	for fy := 1; fy < fh-1; fy++ {
		for fx := 1; fx < fw-1; fx++ {
			field[fy*fw+fx] = mean
		}
	}

	isFrame := func(fx, fy int) bool {
		return fx == 0 || fy == 0 || fx == fw-1 || fy == fh-1
	}

	for it := 0; it < p.Iterations; it++ {
		if it%20 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for fy := 1; fy < fh-1; fy++ {
			for fx := 1; fx < fw-1; fx++ {
				i := fy*fw + fx
				var sum [4]float64
				for _, d := range [4][2]int{{0, -1}, {0, 1}, {1, 0}, {-1, 0}} {
					nx, ny := fx+d[0], fy+d[1]
					j := ny*fw + nx
					v := field[j]
					if isFrame(nx, ny) && !boundary[j] {
						v = field[i]
					}
					for c := 0; c < 4; c++ {
						sum[c] += v[c]
					}
				}
				for c := 0; c < 4; c++ {
					field[i][c] = sum[c] / 4
				}
			}
		}
	}

	for fy := 1; fy < fh-1; fy++ {
		for fx := 1; fx < fw-1; fx++ {
			v := field[fy*fw+fx]
			j := (rect.Min.Y+fy-1)*dst.Stride + (rect.Min.X+fx-1)*4
			for c := 0; c < 4; c++ {
				dst.Pix[j+c] = toUint8(v[c])
			}
		}
	}
	return dst, nil
}

func toUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
