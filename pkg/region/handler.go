// Package region implements the local-edit state machine: plan queries,
// detect, convert to validated regions, edit each region, save.
package region

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/internal/utils"
	"github.com/menta2k/image-assistant/pkg/detection"
	"github.com/menta2k/image-assistant/pkg/editor"
	"github.com/menta2k/image-assistant/pkg/geometry"
	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

const (
	stageDetect = "detection"
	stageEdit   = "region_edit"
)

// User-facing messages of the terminal states
const (
	MsgNoRegions  = "No editable regions were found for this request. The image was left unchanged."
	MsgNoneEdited = "Found %d region(s) but none could be edited. The image was left unchanged."
	MsgEdited     = "Edited %d of %d region(s)."
)

// QueryPlanner derives detection queries from a prompt
type QueryPlanner interface {
	Queries(ctx context.Context, prompt string) ([]types.DetectionQuery, error)
}

// Options tunes detection filtering and output
type Options struct {
	MinConfidence float64
	MaxRegions    int
	// DebugOverlay writes <base>_regions.png next to the input
	DebugOverlay bool
}

// DefaultOptions returns the detection defaults
func DefaultOptions() Options {
	return Options{
		MinConfidence: detection.DefaultMinConfidence,
		MaxRegions:    detection.DefaultMaxRegions,
	}
}

// Handler is the RegionHandler
type Handler struct {
	planner  QueryPlanner
	detector detection.Backend
	editor   editor.RegionEditor
	proc     *processing.Processor
	opts     Options
	logger   *zap.Logger
}

// NewHandler wires a handler. The editor is usually an *editor.Router.
func NewHandler(planner QueryPlanner, detector detection.Backend, ed editor.RegionEditor, proc *processing.Processor, opts Options, logger *zap.Logger) *Handler {
	if proc == nil {
		proc = processing.NewProcessor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		planner:  planner,
		detector: detector,
		editor:   ed,
		proc:     proc,
		opts:     opts,
		logger:   logger,
	}
}

// target is a region with the query that produced it
type target struct {
	region types.Region
	query  types.DetectionQuery
}

// Handle runs the local edit for prompt on the image at imagePath. Only load
// and save failures are returned as errors; detection and per-region failures
// degrade to a pass-through or partial result.
func (h *Handler) Handle(ctx context.Context, imagePath, prompt string) (types.EditPayload, error) {
	img, err := h.proc.LoadImage(imagePath)
	if err != nil {
		return types.EditPayload{}, types.NewStageError(types.KindLoad, "load", err)
	}

	targets := h.detect(ctx, img, prompt)
	detected := make([]types.Region, len(targets))
	for i, t := range targets {
		detected[i] = t.region
	}

	payload := types.EditPayload{
		Kind:            types.EditLocal,
		EditedImagePath: imagePath,
		Detected:        detected,
		Edited:          []types.Region{},
	}
	if len(targets) == 0 {
		payload.Message = MsgNoRegions
		return payload, nil
	}

	working := img
	var tags []string
	for i, t := range targets {
		out, err := h.editRegion(ctx, working, t.region)
		if err != nil {
			h.logger.Warn("region edit failed",
				zap.String("stage", stageEdit),
				zap.Int("region", i),
				zap.Stringer("bounds", t.region),
				zap.String("action", t.region.Action),
				zap.Error(err))
			continue
		}
		working = out
		payload.Edited = append(payload.Edited, t.region)
		tags = appendUnique(tags, t.query.Tag())
	}

	if h.opts.DebugOverlay {
		h.writeOverlay(img, imagePath, detected, payload.Edited)
	}

	if len(payload.Edited) == 0 {
		payload.Message = fmt.Sprintf(MsgNoneEdited, len(detected))
		return payload, nil
	}

	outPath := utils.DeriveOutputPath(imagePath, strings.Join(tags, "_"))
	if err := h.proc.SaveImage(working, outPath); err != nil {
		return payload, types.NewStageError(types.KindSave, "save", err)
	}
	payload.EditedImagePath = outPath
	payload.Message = fmt.Sprintf(MsgEdited, len(payload.Edited), len(detected))
	return payload, nil
}

// Detect returns the validated regions for prompt on img, in query order and
// then backend order. Failures yield no regions.
func (h *Handler) Detect(ctx context.Context, img image.Image, prompt string) []types.Region {
	targets := h.detect(ctx, img, prompt)
	out := make([]types.Region, len(targets))
	for i, t := range targets {
		out[i] = t.region
	}
	return out
}

func (h *Handler) detect(ctx context.Context, img image.Image, prompt string) []target {
	queries, err := h.planner.Queries(ctx, prompt)
	if err != nil {
		h.logger.Warn("query planning failed, treating as no detections",
			zap.String("stage", stageDetect), zap.Error(err))
		return nil
	}

	b := img.Bounds()
	var targets []target
	for _, q := range queries {
		dets, err := h.detector.Detect(ctx, img, q.ObjectClass)
		if err != nil {
			h.logger.Warn("detection failed, treating as no detections",
				zap.String("stage", stageDetect),
				zap.String("query", q.ObjectClass),
				zap.Error(err))
			continue
		}
		for _, d := range detection.Filter(dets, h.opts.MinConfidence, h.opts.MaxRegions) {
			r, ok := geometry.NewRegion(d.Box, d.Label, d.Score, b.Dx(), b.Dy())
			if !ok {
				h.logger.Debug("dropping degenerate detection", zap.String("label", d.Label))
				continue
			}
			r.Action = q.Action
			targets = append(targets, target{region: r, query: q})
		}
	}

	h.logger.Info("regions detected",
		zap.Int("queries", len(queries)),
		zap.Int("regions", len(targets)))
	return targets
}

// editRegion runs the editor, turning a panic into an error
func (h *Handler) editRegion(ctx context.Context, img image.Image, r types.Region) (out image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("region editor panicked: %v", p)
		}
	}()

	out, err = h.editor.Edit(ctx, img, r, r.Action)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("region editor returned no image")
	}
	return out, nil
}

func (h *Handler) writeOverlay(img image.Image, imagePath string, detected, edited []types.Region) {
	path := utils.SiblingPath(imagePath, "regions", "png")
	overlay := processing.CreateDebugOverlay(img, detected, edited)
	if err := h.proc.SaveImage(overlay, path); err != nil {
		h.logger.Warn("failed to write region overlay", zap.String("path", path), zap.Error(err))
		return
	}
	h.logger.Debug("region overlay written", zap.String("path", path))
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
