package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-assistant/pkg/client"
	"github.com/menta2k/image-assistant/pkg/types"
)

func answering(answer string, err error) client.ModelService {
	return client.ModelServiceFunc(func(ctx context.Context, req client.Request) (string, error) {
		return answer, err
	})
}

func TestClassifyWellFormed(t *testing.T) {
	for _, kind := range types.AllActionKinds() {
		t.Run(string(kind), func(t *testing.T) {
			c := New(answering(`{"action": "`+string(kind)+`"}`, nil), nil)
			got, err := c.ClassifyDetailed(context.Background(), "anything", true)
			require.NoError(t, err)
			assert.Equal(t, kind, got)
		})
	}
}

func TestClassifyMalformedYieldsClarify(t *testing.T) {
	answers := []string{
		``,
		`{"action": "delete_everything"}`,
		`{"action": 3}`,
		`{"act`,
		`I think you want to edit the image`,
		`{"verdict": "info"}`,
	}
	for _, a := range answers {
		c := New(answering(a, nil), nil)
		got, err := c.ClassifyDetailed(context.Background(), "remove the car", true)
		assert.Equal(t, types.ActionClarify, got, "answer %q", a)
		assert.Error(t, err, "answer %q", a)
		assert.Equal(t, types.KindClassification, types.KindOf(err))
	}
}

func TestClassifyServiceErrorYieldsClarify(t *testing.T) {
	c := New(answering("", errors.New("connection refused")), nil)
	assert.Equal(t, types.ActionClarify, c.Classify(context.Background(), "make it brighter", true))

	_, err := c.ClassifyDetailed(context.Background(), "make it brighter", true)
	assert.Equal(t, types.KindModel, types.KindOf(err))
}

func TestClassifyLenientForms(t *testing.T) {
	tests := map[string]types.ActionKind{
		"```json\n{\"action\": \"global_edit\"}\n```": types.ActionGlobalEdit,
		`{"action": "Local-Edit"}`:                      types.ActionLocalEdit,
		`"info"`:                                        types.ActionInfo,
		`quit`:                                          types.ActionQuit,
	}
	for raw, want := range tests {
		got, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(answering(`{"action": "local_edit"}`, nil), nil)
	first := c.Classify(context.Background(), "remove the car", true)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(context.Background(), "remove the car", true))
	}
}

func TestClassifyRequestShape(t *testing.T) {
	var seen client.Request
	c := New(client.ModelServiceFunc(func(ctx context.Context, req client.Request) (string, error) {
		seen = req
		return `{"action":"answer"}`, nil
	}), nil)

	c.Classify(context.Background(), "Hello", false)
	assert.Contains(t, seen.Prompt, `"Hello"`)
	assert.Contains(t, seen.Prompt, "Image loaded: no")
	assert.NotEmpty(t, seen.SystemInstruction)
	require.NotNil(t, seen.Schema)
	assert.Len(t, seen.Schema.Properties["action"].Enum, len(types.AllActionKinds()))
	assert.Nil(t, seen.Image)
}

func TestClassifyEmptyPromptWithoutImage(t *testing.T) {
	called := false
	c := New(client.ModelServiceFunc(func(ctx context.Context, req client.Request) (string, error) {
		called = true
		return `{"action":"info"}`, nil
	}), nil)

	assert.Equal(t, types.ActionClarify, c.Classify(context.Background(), "   ", false))
	assert.False(t, called)

	assert.Equal(t, types.ActionInfo, c.Classify(context.Background(), "", true))
	assert.True(t, called)
}
