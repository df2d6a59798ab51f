// Package classifier routes a user request to one ActionKind.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/types"
)

// Prompt enumerates the action kinds with discriminating examples
const Prompt = `Analyze this user request and determine the appropriate action:
User prompt: %q
Image loaded: %s

Respond with ONE of these actions:
- "answer": Simple questions or greetings that don't require image processing
- "info": Get image information (resolution, histogram, metadata, description)
- "global_edit": Apply global edits (brightness, contrast, color temperature, saturation)
- "local_edit": Edit specific objects/regions (inpainting, object removal, object detection)
- "clarify": Need more information from user
- "quit": Exit the app

Examples:
- "What's in this image?" -> info
- "Make it brighter" -> global_edit
- "Warmer tones please" -> global_edit
- "Remove the person" -> local_edit
- "Blur the license plate" -> local_edit
- "Hello" -> answer
- "Can you help me?" -> clarify
- "bye" -> quit`

const systemInstruction = "You are a routing agent that determines the appropriate action for image editing requests. Always respond with valid JSON containing one of the specified actions."

// Classifier is the ActionClassifier
type Classifier struct {
	svc    client.ModelService
	logger *zap.Logger
}

// New creates a classifier backed by svc
func New(svc client.ModelService, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{svc: svc, logger: logger}
}

// Schema constrains the answer to the ActionKind vocabulary
func Schema() *client.Schema {
	kinds := types.AllActionKinds()
	enum := make([]string, len(kinds))
	for i, k := range kinds {
		enum[i] = string(k)
	}
	return client.Object(map[string]*client.Schema{"action": client.String(enum...)}, "action")
}

// Classify returns the action for prompt. It never fails: any problem with
// the classification call yields ActionClarify.
func (c *Classifier) Classify(ctx context.Context, prompt string, hasImage bool) types.ActionKind {
	kind, _ := c.ClassifyDetailed(ctx, prompt, hasImage)
	return kind
}

// ClassifyDetailed is Classify that also reports why it fell back to
// ActionClarify. The returned kind is valid either way.
func (c *Classifier) ClassifyDetailed(ctx context.Context, prompt string, hasImage bool) (types.ActionKind, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && !hasImage {
		c.logger.Info("empty request", zap.String("action", string(types.ActionClarify)))
		return types.ActionClarify, nil
	}

	raw, err := c.svc.Generate(ctx, client.Request{
		Prompt:            fmt.Sprintf(Prompt, prompt, yesNo(hasImage)),
		SystemInstruction: systemInstruction,
		Schema:            Schema(),
	})
	if err != nil {
		c.logger.Warn("classification call failed",
			zap.String("stage", "classification"),
			zap.Error(err))
		return types.ActionClarify, types.NewStageError(types.KindModel, "classification", err)
	}

	kind, err := Parse(raw)
	if err != nil {
		c.logger.Warn("unusable classification",
			zap.String("stage", "classification"),
			zap.Error(err))
		return types.ActionClarify, types.NewStageError(types.KindClassification, "classification", err)
	}

	c.logger.Info("request classified", zap.String("action", string(kind)))
	return kind, nil
}

// Parse reads {"action": "..."} from a model answer. A bare action word is
// accepted too. Anything outside the vocabulary is an error.
func Parse(raw string) (types.ActionKind, error) {
	var out struct {
		Action string `json:"action"`
	}
	if err := client.DecodeJSON(raw, &out); err != nil {
		if kind, ok := types.ParseActionKind(raw); ok {
			return kind, nil
		}
		return types.ActionClarify, err
	}
	kind, ok := types.ParseActionKind(out.Action)
	if !ok {
		return types.ActionClarify, fmt.Errorf("unknown action %q", out.Action)
	}
	return kind, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
