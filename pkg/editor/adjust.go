package editor

import (
	"context"
	"image"

	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

// ParameterResolver maps editing language to EditParameters
type ParameterResolver interface {
	Resolve(ctx context.Context, prompt string) types.EditParameters
}

// Adjuster applies a global-style adjustment to one region only
// ("brighten the sky", "make the car more vibrant").
type Adjuster struct {
	resolver ParameterResolver
}

// NewAdjuster creates an adjuster that resolves parameters with resolver
func NewAdjuster(resolver ParameterResolver) *Adjuster {
	return &Adjuster{resolver: resolver}
}

// Edit resolves parameters from action and adjusts r. When the action maps to
// the identity parameters ErrNoChange is returned.
func (a *Adjuster) Edit(ctx context.Context, img image.Image, r types.Region, action string) (image.Image, error) {
	rect, err := regionRect(img, r)
	if err != nil {
		return nil, err
	}

	p := a.resolver.Resolve(ctx, action)
	if p.IsIdentity() {
		return nil, ErrNoChange
	}

	crop, err := processing.Crop(img, rect)
	if err != nil {
		return nil, err
	}
	adjusted, _ := processing.Adjust(crop, p)
	return processing.Paste(img, adjusted, rect.Min), nil
}
