package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/menta2k/image-assistant/pkg/client"
)

const (
	// DefaultModel answers text and vision requests
	DefaultModel = "gemini-2.5-flash"
	// DefaultTimeout applies when the caller's context has no deadline
	DefaultTimeout = 300 * time.Second
	// DefaultMaxRetries is the number of extra attempts on transient errors
	DefaultMaxRetries = 2
)

// generator is the part of *genai.Models the client uses
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini client settings
type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// Client is a model service backed by the Gemini API
type Client struct {
	models     generator
	model      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewClient creates a Gemini client. No request is made until Generate.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required (set GEMINI_API_KEY)")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newClient(gc.Models, cfg), nil
}

func newClient(models generator, cfg Config) *Client {
	c := &Client{
		models:     models,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    300 * time.Millisecond,
		logger:     cfg.Logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Generate sends one request and returns the concatenated text parts
func (c *Client) Generate(ctx context.Context, req client.Request) (string, error) {
	var parts []*genai.Part
	if req.Prompt != "" {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Schema != nil {
		temperature := float32(0)
		cfg.Temperature = &temperature
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(req.Schema)
	}

	resp, err := c.generateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(responseText(resp))
	if out == "" {
		return "", client.ErrEmptyResponse
	}
	return out, nil
}

// generateContent calls the API, retrying transient failures with a linear backoff
func (c *Client) generateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gemini: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
		c.logger.Warn("gemini request failed, retrying",
			zap.String("model", model),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, fmt.Errorf("gemini generate: %w", lastErr)
}

// isTransient reports whether err is worth retrying
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	// network level failures
	return true
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// toSchema converts the backend-neutral schema to the genai form
func toSchema(s *client.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		Items:       toSchema(s.Items),
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
			out.PropertyOrdering = append(out.PropertyOrdering, name)
		}
		sort.Strings(out.PropertyOrdering)
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case client.TypeObject:
		return genai.TypeObject
	case client.TypeArray:
		return genai.TypeArray
	case client.TypeInteger:
		return genai.TypeInteger
	case client.TypeNumber:
		return genai.TypeNumber
	case client.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
