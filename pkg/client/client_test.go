package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"comments", "{\n// note\n\"a\": /* x */ 1\n}", "{\n\n\"a\":  1\n}"},
		{"surrounding prose", `Sure! {"a":1} hope that helps`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeJSON(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Action string `json:"action"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"action\": \"info\",}\n```", &out))
	assert.Equal(t, "info", out.Action)

	assert.Error(t, DecodeJSON("no json here", &out))
	assert.Error(t, DecodeJSON(`{"action": }`, &out))
}

func TestSchemaJSON(t *testing.T) {
	s := Object(map[string]*Schema{
		"action": String("info", "quit"),
		"level":  Integer(-100, 100),
		"items":  Array(Number(0, 1)),
	}, "action")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(s.JSON(), &decoded))
	assert.Equal(t, "object", decoded["type"])
	assert.Equal(t, []any{"action"}, decoded["required"])

	props := decoded["properties"].(map[string]any)
	level := props["level"].(map[string]any)
	assert.Equal(t, -100.0, level["minimum"])
	assert.Equal(t, 100.0, level["maximum"])

	var nilSchema *Schema
	assert.Nil(t, nilSchema.JSON())
}

func TestLazyBuildsOnce(t *testing.T) {
	builds := 0
	lazy := NewLazy(func() (ModelService, error) {
		builds++
		return ModelServiceFunc(func(ctx context.Context, req Request) (string, error) {
			return "echo:" + req.Prompt, nil
		}), nil
	})
	assert.Equal(t, 0, builds, "construction must be deferred")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := lazy.Generate(context.Background(), Request{Prompt: "hi"})
			assert.NoError(t, err)
			assert.Equal(t, "echo:hi", out)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}

func TestLazyRemembersBuildError(t *testing.T) {
	builds := 0
	lazy := NewLazy(func() (ModelService, error) {
		builds++
		return nil, errors.New("no api key")
	})

	for i := 0; i < 3; i++ {
		_, err := lazy.Generate(context.Background(), Request{})
		assert.EqualError(t, err, "no api key")
	}
	assert.Equal(t, 1, builds)
}

func TestImageFromBytes(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	img := ImageFromBytes(png, "")
	assert.Equal(t, "image/png", img.MIMEType)

	img = ImageFromBytes(png, "image/webp")
	assert.Equal(t, "image/webp", img.MIMEType)
}
