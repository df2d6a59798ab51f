// Package assistant is the top-level dispatcher: it classifies a request,
// routes it to the handler for its action and returns one AssistantResponse.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/pkg/types"
)

// User-facing messages
const (
	GreetingMessage = "Hello! How can I help you with your image today?"
	ClarifyMessage  = "Please provide more specific details about what you'd like to do with the image."
	NoImageMessage  = "Please load an image first, for example: load photo.jpg"
	answerPrefix    = "I'm an image editing assistant. "
	answerFallback  = "Can you please provide an image-related request?"
)

// SuggestedPrompts accompany every Answer and Clarify response
var SuggestedPrompts = []string{
	"Show me information about this image",
	"Increase the brightness of this image",
	"Remove the object in the center of the image",
}

var greetings = map[string]bool{"hi": true, "hello": true, "hey": true}

// Classifier is the ActionClassifier as seen by the dispatcher
type Classifier interface {
	ClassifyDetailed(ctx context.Context, prompt string, hasImage bool) (types.ActionKind, error)
}

// InfoHandler produces the InfoPayload for an image
type InfoHandler interface {
	Handle(ctx context.Context, imagePath, prompt string) (types.InfoPayload, error)
}

// EditHandler produces an EditPayload (global or local) for an image
type EditHandler interface {
	Handle(ctx context.Context, imagePath, prompt string) (types.EditPayload, error)
}

// Dispatcher routes requests. It holds no per-request state and may serve
// concurrent requests on different images.
type Dispatcher struct {
	classifier Classifier
	info       InfoHandler
	global     EditHandler
	local      EditHandler
	logger     *zap.Logger
}

// New creates a dispatcher
func New(classifier Classifier, info InfoHandler, global, local EditHandler, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		classifier: classifier,
		info:       info,
		global:     global,
		local:      local,
		logger:     logger,
	}
}

// Handle runs one request. imagePath may be empty when no image is loaded.
// It always returns a well-formed response; panics in any handler are
// recovered into a Clarify response carrying an internal error.
func (d *Dispatcher) Handle(ctx context.Context, imagePath, prompt string) (resp types.AssistantResponse) {
	log := d.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("prompt", truncate(prompt, 80)),
	)
	if imagePath != "" {
		log = log.With(zap.String("path", imagePath))
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("request panicked", zap.Any("panic", p), zap.Stack("stack"))
			resp = clarify().WithError(types.ErrorPayload{
				Error:   "Processing failed",
				Details: fmt.Sprint(p),
				Kind:    types.KindInternal,
			})
		}
	}()

	hasImage := imagePath != ""
	kind, err := d.classifier.ClassifyDetailed(ctx, prompt, hasImage)
	if err != nil {
		log.Warn("classification failed, asking for clarification",
			zap.String("stage", "classification"), zap.Error(err))
	}
	log = log.With(zap.String("action", string(kind)))
	log.Info("request routed")

	if kind.NeedsImage() && !hasImage {
		log.Info("image action without an image")
		return noImage()
	}

	switch kind {
	case types.ActionAnswer:
		return answer(prompt)

	case types.ActionInfo:
		payload, err := d.info.Handle(ctx, imagePath, prompt)
		if err != nil {
			return d.failed(log, kind, err)
		}
		return types.NewInfoResponse(payload)

	case types.ActionGlobalEdit:
		payload, err := d.global.Handle(ctx, imagePath, prompt)
		if err != nil {
			return d.failed(log, kind, err)
		}
		log.Info("global edit completed", zap.String("output", payload.EditedImagePath))
		return types.NewEditResponse(payload)

	case types.ActionLocalEdit:
		payload, err := d.local.Handle(ctx, imagePath, prompt)
		if err != nil {
			return d.failed(log, kind, err)
		}
		log.Info("local edit completed",
			zap.String("output", payload.EditedImagePath),
			zap.Int("regions", len(payload.Edited)))
		return types.NewEditResponse(payload)

	case types.ActionClarify:
		r := clarify()
		if err != nil {
			r = r.WithError(types.ErrorPayload{
				Error:   "I couldn't understand the request.",
				Details: err.Error(),
				Kind:    types.KindOf(err),
			})
		}
		return r

	case types.ActionQuit:
		return types.NewQuitResponse()

	default:
		log.Error("unhandled action")
		return clarify().WithError(types.ErrorPayload{
			Error: fmt.Sprintf("unhandled action %q", kind),
			Kind:  types.KindInternal,
		})
	}
}

func (d *Dispatcher) failed(log *zap.Logger, kind types.ActionKind, err error) types.AssistantResponse {
	ek := types.KindOf(err)
	log.Warn("handler failed", zap.String("kind", string(ek)), zap.Error(err))
	return types.NewErrorResponse(kind, types.ErrorPayload{
		Error:   fmt.Sprintf("Failed to process %s request", strings.ReplaceAll(string(kind), "_", " ")),
		Details: err.Error(),
		Kind:    ek,
	})
}

func answer(prompt string) types.AssistantResponse {
	p := strings.TrimSpace(prompt)
	norm := strings.ToLower(strings.TrimRight(p, "!.,? "))
	if greetings[norm] {
		return types.NewClarifyResponse(types.ActionAnswer, types.ClarifyPayload{
			Message:          GreetingMessage,
			SuggestedPrompts: suggestions(),
		})
	}

	msg := answerPrefix + answerFallback
	if strings.HasSuffix(p, "?") {
		msg = answerPrefix + capitalize(p)
	}
	return types.NewClarifyResponse(types.ActionAnswer, types.ClarifyPayload{
		Message:          msg,
		SuggestedPrompts: suggestions(),
	})
}

func clarify() types.AssistantResponse {
	return types.NewClarifyResponse(types.ActionClarify, types.ClarifyPayload{
		Message:          ClarifyMessage,
		SuggestedPrompts: suggestions(),
	})
}

func noImage() types.AssistantResponse {
	return types.NewClarifyResponse(types.ActionClarify, types.ClarifyPayload{
		Message:          NoImageMessage,
		SuggestedPrompts: []string{"load <path>"},
	}).WithError(types.ErrorPayload{
		Error: types.ErrNoImage.Error(),
		Kind:  types.KindNoImage,
	})
}

func suggestions() []string {
	return append([]string(nil), SuggestedPrompts...)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
