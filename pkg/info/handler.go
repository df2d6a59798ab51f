// Package info answers questions about an image: technical metadata,
// histogram, dominant colours and a model-written description.
package info

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

// DescribePrompt asks for a short description that answers the user
const DescribePrompt = `Analyze this image and answer the user's question: %q

Describe the subject, composition, colors and notable objects in one concise paragraph.
If the question asks for something specific, answer that first.`

// EncodeOptions controls the image sent with the description request
type EncodeOptions struct {
	Format  string
	MaxDim  int
	Quality int
}

// Handler is the InfoHandler
type Handler struct {
	svc    client.ModelService
	proc   *processing.Processor
	encode EncodeOptions
	logger *zap.Logger
}

// NewHandler creates an info handler
func NewHandler(svc client.ModelService, proc *processing.Processor, encode EncodeOptions, logger *zap.Logger) *Handler {
	if proc == nil {
		proc = processing.NewProcessor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, proc: proc, encode: encode, logger: logger}
}

// Handle collects the InfoPayload for the image at imagePath. Only a load
// failure is an error; a failed description is reported inside the payload.
func (h *Handler) Handle(ctx context.Context, imagePath, prompt string) (types.InfoPayload, error) {
	meta, err := h.proc.Metadata(imagePath)
	if err != nil {
		return types.InfoPayload{}, types.NewStageError(types.KindLoad, "load", err)
	}
	img, err := h.proc.LoadImage(imagePath)
	if err != nil {
		return types.InfoPayload{}, types.NewStageError(types.KindLoad, "load", err)
	}

	payload := types.InfoPayload{
		Metadata:       meta,
		Histogram:      processing.Histogram(img),
		DominantColors: processing.DominantColors(img),
	}

	desc, err := h.describe(ctx, img, prompt)
	if err != nil {
		h.logger.Warn("image description failed",
			zap.String("stage", "description"),
			zap.String("path", imagePath),
			zap.Error(err))
		desc = fmt.Sprintf("Image analysis failed: %v", err)
	}
	payload.Description = desc
	return payload, nil
}

func (h *Handler) describe(ctx context.Context, img image.Image, prompt string) (string, error) {
	data, mime, err := h.proc.EncodeForModel(img, h.encode.Format, h.encode.MaxDim, h.encode.Quality)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "What is in this image?"
	}
	text, err := h.svc.Generate(ctx, client.Request{
		Prompt: fmt.Sprintf(DescribePrompt, prompt),
		Image:  client.ImageFromBytes(data, mime),
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", client.ErrEmptyResponse
	}
	return text, nil
}
