package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Image is an encoded image attached to a model request
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is one call to the model service. When Schema is set the service
// is expected to answer with JSON text satisfying it.
type Request struct {
	Prompt            string
	Image             *Image
	SystemInstruction string
	Schema            *Schema
}

// ModelService is the text/vision generation capability
type ModelService interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelServiceFunc adapts a function to ModelService
type ModelServiceFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req)
func (f ModelServiceFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrEmptyResponse is returned by backends that got no text back
var ErrEmptyResponse = errors.New("empty response from model")

// ImageFromBytes wraps raw image bytes, sniffing the MIME type when none is given
func ImageFromBytes(data []byte, mimeType string) *Image {
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return &Image{Data: data, MIMEType: mimeType}
}
