// Package imageassistant is a conversational front end for image editing.
//
// A free-text request plus an optional image is classified into one action
// (answer, info, global edit, local edit, clarify, quit), routed to the
// handler for that action and returned as one tagged AssistantResponse.
//
// Basic usage:
//
//	cfg := config.Default()
//	cfg.Model.APIKey = os.Getenv("GEMINI_API_KEY")
//
//	a, err := imageassistant.New(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp := a.Handle(ctx, "photo.jpg", "make it warmer and a bit brighter")
//	if edit, ok := resp.Edit(); ok {
//		fmt.Println("saved", edit.EditedImagePath)
//	}
//
// Components:
//
//  1. Classifier (pkg/classifier): maps a request to an ActionKind, falling back to clarify
//  2. Parameter resolver (pkg/params): maps editing language to clamped EditParameters
//  3. Region handler (pkg/region): plans queries, detects, validates and edits regions
//  4. Dispatcher (pkg/assistant): routes and assembles the response
//
// The model service (Gemini, Ollama or llama.cpp) is built lazily on the
// first request and shared read-only afterwards.
package imageassistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/internal/config"
	"github.com/menta2k/image-assistant/pkg/assistant"
	"github.com/menta2k/image-assistant/pkg/classifier"
	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/detection"
	"github.com/menta2k/image-assistant/pkg/editor"
	"github.com/menta2k/image-assistant/pkg/gemini"
	"github.com/menta2k/image-assistant/pkg/globaledit"
	"github.com/menta2k/image-assistant/pkg/info"
	"github.com/menta2k/image-assistant/pkg/llamacpp"
	"github.com/menta2k/image-assistant/pkg/ollama"
	"github.com/menta2k/image-assistant/pkg/params"
	"github.com/menta2k/image-assistant/pkg/processing"
	"github.com/menta2k/image-assistant/pkg/region"
	"github.com/menta2k/image-assistant/pkg/types"
	"github.com/menta2k/image-assistant/pkg/vision"
)

// Version of the image assistant
const Version = "2.0.0"

// Default model names and endpoints of the local backends
const (
	DefaultLocalModel  = "openbmb/minicpm-v4.5"
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultLlamaCppURL = "http://localhost:8080"
)

// Assistant provides a high-level interface over the dispatcher
type Assistant struct {
	dispatcher *assistant.Dispatcher
	regions    *region.Handler
	proc       *processing.Processor
	logger     *zap.Logger
}

// New creates an Assistant whose model service is built from cfg on first use
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := client.NewLazy(func() (client.ModelService, error) {
		return NewModelService(ctx, cfg, logger)
	})
	return NewWithService(ctx, cfg, svc, logger)
}

// NewModelService builds the model service selected by cfg.Model.Backend
func NewModelService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (client.ModelService, error) {
	m := cfg.Model
	var (
		svc client.ModelService
		err error
	)
	switch m.Backend {
	case config.BackendGemini:
		svc, err = newGemini(ctx, gemini.Config{
			APIKey:     m.APIKey,
			Model:      m.Name,
			Timeout:    cfg.Timeout(),
			MaxRetries: m.MaxRetries,
			Logger:     logger.Named("gemini"),
		})
	case config.BackendOllama:
		svc, err = newOllama(orDefault(m.URL, DefaultOllamaURL), orDefault(m.Name, DefaultLocalModel), cfg.Timeout())
	case config.BackendLlamaCpp:
		svc, err = newLlamaCpp(orDefault(m.URL, DefaultLlamaCppURL), orDefault(m.Name, DefaultLocalModel), cfg.Timeout())
	default:
		err = fmt.Errorf("unknown model backend %q", m.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model service: %w", m.Backend, err)
	}
	logger.Info("model service ready", zap.String("backend", m.Backend), zap.String("model", m.Name))
	return svc, nil
}

func newGemini(ctx context.Context, cfg gemini.Config) (client.ModelService, error) {
	c, err := gemini.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newOllama(url, model string, timeout time.Duration) (client.ModelService, error) {
	c, err := ollama.NewClient(url, model, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newLlamaCpp(url, model string, timeout time.Duration) (client.ModelService, error) {
	c, err := llamacpp.NewClient(url, model, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithService creates an Assistant around an existing model service
func NewWithService(ctx context.Context, cfg *config.Config, svc client.ModelService, logger *zap.Logger) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	proc := processing.NewProcessor()
	proc.JPEGQuality = cfg.Output.JPEGQuality
	proc.WebPQuality = cfg.Output.WebPQuality
	proc.WebPLossless = cfg.Output.WebPLossless

	img := cfg.Image
	resolver := params.NewResolver(svc, logger.Named("params"))

	var backend detection.Backend
	switch cfg.Detection.Backend {
	case config.DetectionSaliency:
		backend = vision.New()
	default:
		backend = detection.NewModelDetector(svc, proc,
			detection.EncodeOptions{Format: img.SendFormat, MaxDim: img.SendMaxDim, Quality: img.SendQuality},
			logger.Named("detection"))
	}

	generative, err := newGenerativeEditor(ctx, cfg, resolver, logger)
	if err != nil {
		return nil, err
	}
	router := &editor.Router{
		Remove:     editor.NewInpainter(cfg.Editor.InpaintIterations),
		Obscure:    editor.NewBlurrer(cfg.Editor.BlurSigma),
		Generative: generative,
	}

	regions := region.NewHandler(detection.NewPlanner(svc), backend, router, proc, region.Options{
		MinConfidence: cfg.Detection.MinConfidence,
		MaxRegions:    cfg.Detection.MaxRegions,
		DebugOverlay:  cfg.Output.DebugOverlay,
	}, logger.Named("region"))

	dispatcher := assistant.New(
		classifier.New(svc, logger.Named("classifier")),
		info.NewHandler(svc, proc, info.EncodeOptions{Format: img.SendFormat, MaxDim: img.SendMaxDim, Quality: img.SendQuality}, logger.Named("info")),
		globaledit.NewHandler(resolver, proc, logger.Named("globaledit")),
		regions,
		logger,
	)

	return &Assistant{
		dispatcher: dispatcher,
		regions:    regions,
		proc:       proc,
		logger:     logger,
	}, nil
}

func newGenerativeEditor(ctx context.Context, cfg *config.Config, resolver *params.Resolver, logger *zap.Logger) (editor.RegionEditor, error) {
	if cfg.Editor.Generative != config.GenerativeGemini {
		return editor.NewAdjuster(resolver), nil
	}
	gc, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:     cfg.Model.APIKey,
		Timeout:    cfg.Timeout(),
		MaxRetries: cfg.Model.MaxRetries,
		Logger:     logger.Named("gemini-editor"),
	})
	if err != nil {
		return nil, err
	}
	return gemini.NewImageEditor(gc, cfg.Editor.ImageModel), nil
}

// Handle runs one request; imagePath may be empty. It never panics.
func (a *Assistant) Handle(ctx context.Context, imagePath, prompt string) types.AssistantResponse {
	return a.dispatcher.Handle(ctx, imagePath, prompt)
}

// DetectRegions returns the regions a local edit of prompt would touch,
// without editing anything.
func (a *Assistant) DetectRegions(ctx context.Context, imagePath, prompt string) ([]types.Region, error) {
	img, err := a.proc.LoadImage(imagePath)
	if err != nil {
		return nil, types.NewStageError(types.KindLoad, "load", err)
	}
	return a.regions.Detect(ctx, img, prompt), nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
