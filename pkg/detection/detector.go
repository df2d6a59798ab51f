package detection

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/geometry"
	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/types"
)

// DefaultMinConfidence is the detection threshold floor
const DefaultMinConfidence = 0.3

// DefaultMaxRegions caps detections per query
const DefaultMaxRegions = 5

// DetectPrompt asks the model for percent corner boxes of one object class
const DetectPrompt = `You are an object locator for an image editor.

Find every instance of: %q

Return JSON only:
{
  "objects": [
    {"label": "string", "x1": 0.0, "y1": 0.0, "x2": 0.0, "y2": 0.0, "confidence": 0.0}
  ]
}

HARD RULES
- Coordinates are PERCENT of the image size in [0,100] (NOT pixels, NOT [0,1]).
- (x1,y1) is the top-left corner and (x2,y2) the bottom-right corner; the origin is the top-left of the image.
- Boxes must tightly include each instance.
- confidence is in [0,1].
- If nothing matches, return {"objects": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detection is one located instance with a percent box and score in [0,1]
type Detection struct {
	Box   types.PercentBox
	Label string
	Score float64
}

// Backend locates instances of an object class in an image
type Backend interface {
	Detect(ctx context.Context, img image.Image, query string) ([]Detection, error)
}

// EncodeOptions controls how images are sent to the model
type EncodeOptions struct {
	Format  string
	MaxDim  int
	Quality int
}

// ModelDetector asks the model service for bounding boxes
type ModelDetector struct {
	svc    client.ModelService
	proc   *processing.Processor
	encode EncodeOptions
	logger *zap.Logger
}

// NewModelDetector creates a detector backed by svc
func NewModelDetector(svc client.ModelService, proc *processing.Processor, encode EncodeOptions, logger *zap.Logger) *ModelDetector {
	if proc == nil {
		proc = processing.NewProcessor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelDetector{svc: svc, proc: proc, encode: encode, logger: logger}
}

type rawObject struct {
	Label      string  `json:"label"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

type rawDetections struct {
	Objects []rawObject `json:"objects"`
}

func detectSchema() *client.Schema {
	return client.Object(map[string]*client.Schema{
		"objects": client.Array(client.Object(map[string]*client.Schema{
			"label":      client.String(),
			"x1":         client.Number(0, 100),
			"y1":         client.Number(0, 100),
			"x2":         client.Number(0, 100),
			"y2":         client.Number(0, 100),
			"confidence": client.Number(0, 1),
		}, "label", "x1", "y1", "x2", "y2", "confidence")),
	}, "objects")
}

// Detect sends img and query to the model and parses the boxes it returns
func (d *ModelDetector) Detect(ctx context.Context, img image.Image, query string) ([]Detection, error) {
	data, mime, err := d.proc.EncodeForModel(img, d.encode.Format, d.encode.MaxDim, d.encode.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	raw, err := d.svc.Generate(ctx, client.Request{
		Prompt: fmt.Sprintf(DetectPrompt, query),
		Image:  client.ImageFromBytes(data, mime),
		Schema: detectSchema(),
	})
	if err != nil {
		return nil, err
	}

	var parsed rawDetections
	if err := client.DecodeJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("detection answer: %w", err)
	}

	out := make([]Detection, 0, len(parsed.Objects))
	for _, o := range parsed.Objects {
		if !finite(o.X1, o.Y1, o.X2, o.Y2) {
			d.logger.Debug("dropping non-finite box", zap.String("label", o.Label))
			continue
		}
		label := normalizeLabel(o.Label)
		if label == "" {
			label = normalizeLabel(query)
		}
		out = append(out, Detection{
			Box:   geometry.PercentFromCorners(o.X1, o.Y1, o.X2, o.Y2),
			Label: label,
			Score: clamp(o.Confidence, 0, 1),
		})
	}
	return out, nil
}

// Filter drops detections below minConfidence or with non-finite scores and
// keeps at most maxRegions, preserving backend order.
func Filter(dets []Detection, minConfidence float64, maxRegions int) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, det := range dets {
		if math.IsNaN(det.Score) || math.IsInf(det.Score, 0) || det.Score < minConfidence {
			continue
		}
		out = append(out, det)
		if maxRegions > 0 && len(out) == maxRegions {
			break
		}
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// normalizeLabel lowercases and collapses whitespace
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
