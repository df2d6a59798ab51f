// Package globaledit applies whole-image adjustments resolved from a prompt.
package globaledit

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/internal/utils"
	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

// NoOpTag names the output when the parameters change nothing
const NoOpTag = "global_edit"

// ParameterResolver maps editing language to EditParameters
type ParameterResolver interface {
	Resolve(ctx context.Context, prompt string) types.EditParameters
}

// Handler is the GlobalEditHandler
type Handler struct {
	resolver ParameterResolver
	proc     *processing.Processor
	logger   *zap.Logger
}

// NewHandler creates a global edit handler
func NewHandler(resolver ParameterResolver, proc *processing.Processor, logger *zap.Logger) *Handler {
	if proc == nil {
		proc = processing.NewProcessor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resolver: resolver, proc: proc, logger: logger}
}

// Handle resolves parameters for prompt, applies them to the image at
// imagePath and saves the result next to it under a derived name.
func (h *Handler) Handle(ctx context.Context, imagePath, prompt string) (types.EditPayload, error) {
	img, err := h.proc.LoadImage(imagePath)
	if err != nil {
		return types.EditPayload{}, types.NewStageError(types.KindLoad, "load", err)
	}

	params := h.resolver.Resolve(ctx, prompt).Clamped()
	outPath := utils.DeriveOutputPath(imagePath, Tag(params))

	// identity parameters copy the source bytes, so lossy formats are not
	// re-encoded
	applied := []string{}
	if params.IsIdentity() {
		err = utils.CopyFile(imagePath, outPath)
	} else {
		var edited image.Image
		edited, applied = processing.Adjust(img, params)
		err = h.proc.SaveImage(edited, outPath)
	}
	if err != nil {
		return types.EditPayload{}, types.NewStageError(types.KindSave, "save", err)
	}

	h.logger.Info("global edit applied",
		zap.String("path", outPath),
		zap.Strings("edits", applied))

	return types.EditPayload{
		Kind:            types.EditGlobal,
		EditedImagePath: outPath,
		Message:         message(applied),
		EditsApplied:    applied,
		Parameters:      &params,
	}, nil
}

// Tag describes p for output filenames, e.g. brighter_warm
func Tag(p types.EditParameters) string {
	var parts []string
	add := func(v int, pos, neg string) {
		switch {
		case v > 0:
			parts = append(parts, pos)
		case v < 0:
			parts = append(parts, neg)
		}
	}
	add(p.Brightness, "brighter", "darker")
	add(p.Contrast, "highcontrast", "lowcontrast")
	add(p.Saturation, "vibrant", "desaturated")
	switch types.ParseTemperature(string(p.Temperature)) {
	case types.TemperatureWarm:
		parts = append(parts, "warm")
	case types.TemperatureCold:
		parts = append(parts, "cool")
	}
	if len(parts) == 0 {
		return NoOpTag
	}
	return strings.Join(parts, "_")
}

func message(applied []string) string {
	if len(applied) == 0 {
		return "No adjustments were needed for this request."
	}
	return fmt.Sprintf("Applied %s.", strings.Join(applied, ", "))
}
