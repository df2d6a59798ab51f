package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/menta2k/image-assistant/pkg/geometry"
	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

// DefaultImageModel can return edited images
const DefaultImageModel = "gemini-2.5-flash-image"

const editInstruction = `You are an image editor. Apply the requested edit to the supplied image crop.
Keep framing, perspective and lighting consistent with the surroundings so the result can be
pasted back into the full photo. Return only the edited image.`

// ErrNoImageReturned is returned when the model answered without an image part
var ErrNoImageReturned = errors.New("gemini: model returned no image")

// ImageEditor edits a region by sending its crop to an image-generation model
// and pasting the answer back over the region.
type ImageEditor struct {
	client *Client
	model  string
}

// NewImageEditor shares c's connection and retry policy
func NewImageEditor(c *Client, model string) *ImageEditor {
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageEditor{client: c, model: model}
}

// Edit returns a copy of img with region r replaced by the generated edit
func (e *ImageEditor) Edit(ctx context.Context, img image.Image, r types.Region, action string) (image.Image, error) {
	rect := geometry.Rect(r, img.Bounds().Min)
	if rect.Empty() || !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("gemini edit: region %s outside image", r)
	}

	crop, err := processing.Crop(img, rect)
	if err != nil {
		return nil, fmt.Errorf("gemini edit: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, fmt.Errorf("gemini edit: encode crop: %w", err)
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(action),
		genai.NewPartFromBytes(buf.Bytes(), "image/png"),
	}, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(editInstruction, genai.RoleUser),
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := e.client.generateContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	data := responseImage(resp)
	if data == nil {
		return nil, ErrNoImageReturned
	}
	patch, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gemini edit: decode result: %w", err)
	}

	e.client.logger.Debug("region regenerated",
		zap.String("region", r.String()),
		zap.String("action", action))

	if patch.Bounds().Dx() != rect.Dx() || patch.Bounds().Dy() != rect.Dy() {
		patch = imaging.Resize(patch, rect.Dx(), rect.Dy(), imaging.Lanczos)
	}
	return processing.Paste(img, patch, rect.Min), nil
}

func responseImage(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData.Data
			}
		}
	}
	return nil
}
