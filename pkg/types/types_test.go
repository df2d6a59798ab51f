package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	tests := []struct {
		in   string
		want ActionKind
		ok   bool
	}{
		{"answer", ActionAnswer, true},
		{" INFO ", ActionInfo, true},
		{"global_edit", ActionGlobalEdit, true},
		{"global-edit", ActionGlobalEdit, true},
		{"Local Edit", ActionLocalEdit, true},
		{`"quit"`, ActionQuit, true},
		{"clarify", ActionClarify, true},
		{"", ActionClarify, false},
		{"delete_everything", ActionClarify, false},
		{"{\"action\":\"info\"}", ActionClarify, false},
	}

	for _, tt := range tests {
		got, ok := ParseActionKind(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
	}
}

func TestActionKindNeedsImage(t *testing.T) {
	assert.True(t, ActionInfo.NeedsImage())
	assert.True(t, ActionGlobalEdit.NeedsImage())
	assert.True(t, ActionLocalEdit.NeedsImage())
	assert.False(t, ActionAnswer.NeedsImage())
	assert.False(t, ActionClarify.NeedsImage())
	assert.False(t, ActionQuit.NeedsImage())
}

func TestEditParametersClamped(t *testing.T) {
	p := EditParameters{Brightness: 250, Contrast: -101, Saturation: 42, Temperature: "tropical"}
	got := p.Clamped()

	assert.Equal(t, EditParameters{Brightness: 100, Contrast: -100, Saturation: 42, Temperature: TemperatureNeutral}, got)
	assert.True(t, IdentityParameters().IsIdentity())
	assert.False(t, got.IsIdentity())
	assert.True(t, EditParameters{}.IsIdentity(), "empty temperature counts as neutral")
}

func TestParseTemperature(t *testing.T) {
	assert.Equal(t, TemperatureWarm, ParseTemperature("Warm"))
	assert.Equal(t, TemperatureCold, ParseTemperature("cool"))
	assert.Equal(t, TemperatureNeutral, ParseTemperature(""))
}

func TestDetectionQueryTag(t *testing.T) {
	q := DetectionQuery{ObjectClass: "person", Action: "Remove the person"}
	assert.Equal(t, "remove", q.Verb())
	assert.Equal(t, "remove_person", q.Tag())

	q = DetectionQuery{ObjectClass: "red car!", Action: ""}
	assert.Equal(t, "edit", q.Verb())
	assert.Equal(t, "edit_red_car", q.Tag())
}

func TestSanitizeTag(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeTag("  A -- b / c  "))
	assert.Equal(t, "", SanitizeTag("***"))
}

func TestAssistantResponsePayloads(t *testing.T) {
	resp := NewEditResponse(EditPayload{Kind: EditLocal, EditedImagePath: "x.jpg"})
	assert.Equal(t, ActionLocalEdit, resp.Action())

	_, hasInfo := resp.Info()
	_, hasClarify := resp.Clarify()
	_, hasErr := resp.Error()
	edit, hasEdit := resp.Edit()
	assert.False(t, hasInfo)
	assert.False(t, hasClarify)
	assert.False(t, hasErr)
	require.True(t, hasEdit)
	assert.Equal(t, "x.jpg", edit.EditedImagePath)

	withErr := resp.WithError(ErrorPayload{Error: "partial"})
	_, hasErr = withErr.Error()
	assert.True(t, hasErr)
	_, hasErr = resp.Error()
	assert.False(t, hasErr, "WithError must not modify the original")

	assert.Equal(t, ActionGlobalEdit, NewEditResponse(EditPayload{Kind: EditGlobal}).Action())
	assert.True(t, NewQuitResponse().IsQuit())
}

func TestAssistantResponseJSON(t *testing.T) {
	resp := NewClarifyResponse(ActionAnswer, ClarifyPayload{Message: "hi", SuggestedPrompts: []string{"a"}})

	b, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "answer", decoded["action"])
	assert.Contains(t, decoded, "clarify")
	assert.NotContains(t, decoded, "edit")
	assert.NotContains(t, decoded, "info")
	assert.NotContains(t, decoded, "error")
}

func TestStageError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", NewStageError(KindDetection, "detect", base))

	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindDetection, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(base))
	assert.Nil(t, NewStageError(KindLoad, "load", nil))
	assert.Contains(t, err.Error(), "detect (detection): boom")
}

func TestRegionHelpers(t *testing.T) {
	r := Region{X: 10, Y: 20, Width: 100, Height: 80, Label: "car"}
	cx, cy := r.Center()
	assert.Equal(t, 60, cx)
	assert.Equal(t, 60, cy)
	assert.Equal(t, "car@10,20 100x80", r.String())
}

func TestAssistantResponseIsImmutable(t *testing.T) {
	params := EditParameters{Brightness: 30}
	detected := []Region{{X: 1, Y: 1, Width: 2, Height: 2, Label: "car"}}
	resp := NewEditResponse(EditPayload{Kind: EditLocal, Parameters: &params, Detected: detected, Edited: detected})

	// caller mutating its own inputs
	params.Brightness = -100
	detected[0].Label = "tree"

	got, ok := resp.Edit()
	require.True(t, ok)
	assert.Equal(t, 30, got.Parameters.Brightness)
	assert.Equal(t, "car", got.Detected[0].Label)

	// caller mutating what an accessor returned
	got.Parameters.Brightness = 99
	got.Detected[0].Label = "bus"
	got.Edited = append(got.Edited[:0], Region{Label: "boat"})

	again, _ := resp.Edit()
	assert.Equal(t, 30, again.Parameters.Brightness)
	assert.Equal(t, "car", again.Detected[0].Label)
	assert.Equal(t, "car", again.Edited[0].Label)

	clarify := NewClarifyResponse(ActionClarify, ClarifyPayload{Message: "?", SuggestedPrompts: []string{"a", "b"}})
	c, _ := clarify.Clarify()
	c.SuggestedPrompts[0] = "z"
	c2, _ := clarify.Clarify()
	assert.Equal(t, []string{"a", "b"}, c2.SuggestedPrompts)

	info := NewInfoResponse(InfoPayload{DominantColors: []string{"#000000"}, Histogram: Histogram{Red: []int{1}}})
	i, _ := info.Info()
	i.DominantColors[0] = "#ffffff"
	i.Histogram.Red[0] = 7
	i2, _ := info.Info()
	assert.Equal(t, []string{"#000000"}, i2.DominantColors)
	assert.Equal(t, []int{1}, i2.Histogram.Red)
}
