package editor

import (
	"context"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

// DefaultBlurSigma is the Gaussian sigma used when none is configured
const DefaultBlurSigma = 12.0

// Blurrer hides a region behind a Gaussian blur
type Blurrer struct {
	Sigma float64
}

// NewBlurrer creates a blurrer; sigma <= 0 selects the default
func NewBlurrer(sigma float64) *Blurrer {
	if sigma <= 0 {
		sigma = DefaultBlurSigma
	}
	return &Blurrer{Sigma: sigma}
}

// Edit blurs r. The action text is not used.
func (b *Blurrer) Edit(ctx context.Context, img image.Image, r types.Region, _ string) (image.Image, error) {
	rect, err := regionRect(img, r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	crop, err := processing.Crop(img, rect)
	if err != nil {
		return nil, err
	}
	return processing.Paste(img, imaging.Blur(crop, b.Sigma), rect.Min), nil
}
