// Package params maps editing language onto numeric EditParameters.
package params

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/types"
)

// Prompt maps an editing request onto the four adjustment fields
const Prompt = `Based on this request: %q

Determine the editing parameters:
- brightness: -100 to 100 (0 = no change, positive = brighter, negative = darker)
- contrast: -100 to 100 (0 = no change, positive = more contrast, negative = less contrast)
- saturation: -100 to 100 (0 = no change, positive = more vibrant, negative = less vibrant)
- temperature: "cold", "neutral", or "warm" (cold = bluer, warm = warmer/redder)

Examples:
- "make it brighter" -> brightness: 30
- "increase contrast" -> contrast: 40
- "more vibrant colors" -> saturation: 50
- "warmer tone" -> temperature: "warm"
- "make it darker and cooler" -> brightness: -30, temperature: "cold"`

const systemInstruction = "You are an image editing parameter analyzer. Always respond with valid JSON containing the editing parameters."

// Resolver is the EditParameterResolver. Its result is always within range.
type Resolver struct {
	svc    client.ModelService
	logger *zap.Logger
}

// NewResolver creates a resolver backed by svc
func NewResolver(svc client.ModelService, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{svc: svc, logger: logger}
}

// Schema is the structured answer requested from the model service
func Schema() *client.Schema {
	return client.Object(map[string]*client.Schema{
		"brightness":  client.Integer(types.MinAdjustment, types.MaxAdjustment),
		"contrast":    client.Integer(types.MinAdjustment, types.MaxAdjustment),
		"saturation":  client.Integer(types.MinAdjustment, types.MaxAdjustment),
		"temperature": client.String(string(types.TemperatureCold), string(types.TemperatureNeutral), string(types.TemperatureWarm)),
	}, "brightness", "contrast", "saturation", "temperature")
}

// Resolve never fails: any error yields the identity parameters
func (r *Resolver) Resolve(ctx context.Context, prompt string) types.EditParameters {
	p, err := r.ResolveDetailed(ctx, prompt)
	if err != nil {
		r.logger.Warn("parameter resolution failed, using identity",
			zap.String("stage", "resolution"),
			zap.Error(err))
	}
	return p
}

// ResolveDetailed is Resolve that also reports why it fell back to identity.
// The returned parameters are valid either way.
func (r *Resolver) ResolveDetailed(ctx context.Context, prompt string) (types.EditParameters, error) {
	raw, err := r.svc.Generate(ctx, client.Request{
		Prompt:            fmt.Sprintf(Prompt, prompt),
		SystemInstruction: systemInstruction,
		Schema:            Schema(),
	})
	if err != nil {
		return types.IdentityParameters(), types.NewStageError(types.KindModel, "resolution", err)
	}

	p, err := Parse(raw)
	if err != nil {
		return types.IdentityParameters(), types.NewStageError(types.KindResolution, "resolution", err)
	}
	return p, nil
}

type rawParameters struct {
	Brightness  *float64 `json:"brightness"`
	Contrast    *float64 `json:"contrast"`
	Saturation  *float64 `json:"saturation"`
	Temperature *string  `json:"temperature"`
}

// Parse decodes a model answer into clamped EditParameters. Missing fields
// default to the identity; wrong types or an unknown temperature are errors.
func Parse(raw string) (types.EditParameters, error) {
	var in rawParameters
	if err := client.DecodeJSON(raw, &in); err != nil {
		return types.IdentityParameters(), err
	}

	out := types.IdentityParameters()
	out.Brightness = toInt(in.Brightness)
	out.Contrast = toInt(in.Contrast)
	out.Saturation = toInt(in.Saturation)

	if in.Temperature != nil {
		t, err := parseTemperature(*in.Temperature)
		if err != nil {
			return types.IdentityParameters(), err
		}
		out.Temperature = t
	}
	return out.Clamped(), nil
}

func toInt(v *float64) int {
	if v == nil {
		return 0
	}
	f := math.Round(*v)
	// clamp before conversion so huge values cannot overflow
	f = math.Max(-1000, math.Min(1000, f))
	return int(f)
}

func parseTemperature(s string) (types.Temperature, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return types.TemperatureNeutral, nil
	}
	t := types.ParseTemperature(norm)
	if t == types.TemperatureNeutral && norm != string(types.TemperatureNeutral) && norm != "none" {
		return "", fmt.Errorf("unknown temperature %q", s)
	}
	return t, nil
}
