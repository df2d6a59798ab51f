package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-assistant/pkg/client"
)

// DefaultTimeout applies when the caller's context has no deadline.
// Vision models on CPU are slow.
const DefaultTimeout = 300 * time.Second

// Client is a model service backed by an Ollama server
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewClient creates a new Ollama client for model
func NewClient(ollamaURL, model string, timeout time.Duration) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama: model name is required")
	}

	// Base URL without any path like /api/chat
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate sends one non-streaming chat request. A schema is passed through
// as the structured-output format.
func (c *Client) Generate(ctx context.Context, req client.Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	chatReq := c.buildRequest(req)

	var responseContent strings.Builder
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		responseContent.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}

	out := strings.TrimSpace(responseContent.String())
	if out == "" {
		return "", client.ErrEmptyResponse
	}
	return out, nil
}

func (c *Client) buildRequest(req client.Request) *api.ChatRequest {
	streamFalse := false

	var messages []api.Message
	if req.SystemInstruction != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemInstruction})
	}
	user := api.Message{Role: "user", Content: req.Prompt}
	if req.Image != nil && len(req.Image.Data) > 0 {
		user.Images = []api.ImageData{api.ImageData(req.Image.Data)}
	}
	messages = append(messages, user)

	options := map[string]any{}
	if req.Schema != nil {
		// structured answers should be deterministic
		options["temperature"] = 0
	}

	chatReq := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &streamFalse,
		Options:  options,
	}
	if req.Schema != nil {
		chatReq.Format = req.Schema.JSON()
	}
	return chatReq
}
